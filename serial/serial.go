package serial

import "errors"

// MaxStringLength is the maximum allowed length for a serialized string or
// byte slice. Reads that announce a larger length are rejected as corrupt.
const MaxStringLength = 64 << 20

// Sentinel errors for serialization operations.
var (
	// ErrNotSerializable marks a value that is intentionally not
	// serializable. Callers suppress diagnostics when a failure is (or
	// wraps) this marker; any other failure is reported.
	ErrNotSerializable = errors.New("serial: value not serializable")

	ErrCorrupt     = errors.New("serial: archive corrupt")
	ErrInvalidMark = errors.New("serial: invalid rollback mark")
)
