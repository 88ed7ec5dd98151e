package pack

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/packcache/observe"
	"github.com/jonwraymond/packcache/serial"
)

// Pack is the in-memory cache container, itself persisted as one serialized
// archive.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Get and Set never fail; Serialize skips and quarantines bad
//   entries instead of aborting.
type Pack struct {
	mu             sync.Mutex
	version        string
	content        map[string]*Entry
	lastAccess     map[string]time.Time
	used           map[string]struct{}
	unserializable map[string]struct{}
	invalid        bool

	logger  observe.Logger
	metrics observe.Metrics
	now     func() time.Time
}

// Option configures a Pack.
type Option func(*Pack)

// WithLogger sets the diagnostic logger.
func WithLogger(l observe.Logger) Option {
	return func(p *Pack) {
		p.logger = l.WithComponent("pack")
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(p *Pack) {
		p.metrics = m
	}
}

// WithClock substitutes the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pack) {
		p.now = now
	}
}

// New creates an empty Pack with the given cache-format version.
func New(version string, opts ...Option) *Pack {
	p := &Pack{
		version:        version,
		content:        make(map[string]*Entry),
		lastAccess:     make(map[string]time.Time),
		used:           make(map[string]struct{}),
		unserializable: make(map[string]struct{}),
		logger:         observe.NopObserver().Logger(),
		metrics:        observe.NopObserver().Metrics(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the entry for identifier, or nil if absent. The identifier is
// marked used so the next garbage collection pass sees a fresh access time.
func (p *Pack) Get(identifier string) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.used[identifier] = struct{}{}
	return p.content[identifier]
}

// Set stores an entry. A quarantined identifier is silently dropped for the
// remainder of the process; anything else marks the pack invalid (needing a
// re-persist) and overwrites the previous entry.
func (p *Pack) Set(identifier string, entry *Entry) {
	if err := ValidateIdentifier(identifier); err != nil {
		p.logger.Debug(context.Background(), "rejected entry", observe.Field{Key: "error", Value: err.Error()})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, bad := p.unserializable[identifier]; bad {
		return
	}
	p.used[identifier] = struct{}{}
	p.invalid = true
	p.content[identifier] = entry
}

// Invalid reports whether any write happened since the pack was created or
// deserialized. Persisting does not clear it; a fresh load does.
func (p *Pack) Invalid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invalid
}

// Len returns the number of entries currently held.
func (p *Pack) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.content)
}

// Version returns the cache-format version the pack was created with.
func (p *Pack) Version() string {
	return p.version
}

// flushUsed folds the used set into lastAccess at the current time. Callers
// must hold p.mu. Running before GC and serialization guarantees an entry
// touched since the last flush is never collected in the same pass.
func (p *Pack) flushUsed() {
	now := p.now()
	for identifier := range p.used {
		p.lastAccess[identifier] = now
	}
	p.used = make(map[string]struct{})
}

// CollectGarbage removes every entry whose recorded last access is older than
// maxAge. Entries that were never accessed since being loaded have no access
// baseline and are left alone until first touch. Returns the number of
// entries removed.
func (p *Pack) CollectGarbage(maxAge time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.flushUsed()

	cutoff := p.now().Add(-maxAge)
	removed := 0
	for identifier, at := range p.lastAccess {
		if at.Before(cutoff) {
			if _, ok := p.content[identifier]; ok {
				delete(p.content, identifier)
				removed++
			}
			delete(p.lastAccess, identifier)
		}
	}

	if removed > 0 {
		p.invalid = true
		p.metrics.RecordEviction(context.Background(), removed)
		p.logger.Verbose(context.Background(), "garbage collected",
			observe.Field{Key: "removed", Value: removed},
			observe.Field{Key: "remaining", Value: len(p.content)},
		)
	}
	return removed
}

// Serialize writes the pack to w: format version, then (identifier, entry)
// pairs terminated by an empty-identifier sentinel, then the last-access map,
// then the unserializable set.
//
// Each entry is written under a snapshot. A payload that fails to resolve or
// serialize is rolled back and its identifier quarantined so it is never
// attempted again this process; serialization continues with the next entry.
// Failures wrapping serial.ErrNotSerializable are expected and quarantined
// without a diagnostic.
func (p *Pack) Serialize(w *serial.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.flushUsed()

	ctx := context.Background()
	w.WriteString(p.version)

	for identifier, entry := range p.content {
		if _, bad := p.unserializable[identifier]; bad {
			continue
		}

		mark := w.Snapshot()
		w.WriteString(identifier)
		if err := entry.writeTo(w); err != nil {
			if rbErr := w.Rollback(mark); rbErr != nil {
				return rbErr
			}
			p.unserializable[identifier] = struct{}{}
			p.metrics.RecordQuarantine(ctx)
			// Values declared unserializable on purpose are quarantined
			// silently; anything else is a real failure worth surfacing.
			if !errors.Is(err, serial.ErrNotSerializable) {
				p.logger.Warning(ctx, "entry serialization failed",
					observe.Field{Key: "identifier", Value: identifier},
					observe.Field{Key: "error", Value: err.Error()},
				)
			}
			continue
		}
	}
	w.WriteString("")

	w.WriteUvarint(uint64(len(p.lastAccess)))
	for identifier, at := range p.lastAccess {
		w.WriteString(identifier)
		w.WriteInt64(at.UnixMilli())
	}

	w.WriteUvarint(uint64(len(p.unserializable)))
	for identifier := range p.unserializable {
		w.WriteString(identifier)
	}

	return nil
}

// Deserialize reads an archive written by Serialize. On any error the pack is
// left unchanged; the caller treats the archive as an empty cache.
func (p *Pack) Deserialize(r *serial.Reader) error {
	version, err := r.ReadString()
	if err != nil {
		return err
	}

	content := make(map[string]*Entry)
	for {
		identifier, err := r.ReadString()
		if err != nil {
			return err
		}
		if identifier == "" {
			break
		}
		entry, err := readEntry(r, identifier)
		if err != nil {
			return err
		}
		content[identifier] = entry
	}

	n, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	lastAccess := make(map[string]time.Time, n)
	for i := uint64(0); i < n; i++ {
		identifier, err := r.ReadString()
		if err != nil {
			return err
		}
		ms, err := r.ReadInt64()
		if err != nil {
			return err
		}
		lastAccess[identifier] = time.UnixMilli(ms)
	}

	n, err = r.ReadUvarint()
	if err != nil {
		return err
	}
	unserializable := make(map[string]struct{}, n)
	for i := uint64(0); i < n; i++ {
		identifier, err := r.ReadString()
		if err != nil {
			return err
		}
		unserializable[identifier] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.version = version
	p.content = content
	p.lastAccess = lastAccess
	p.used = make(map[string]struct{})
	p.unserializable = unserializable
	p.invalid = false
	return nil
}
