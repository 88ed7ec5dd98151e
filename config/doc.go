// Package config defines the recognized cache engine options, their defaults,
// and validation, plus loading from a host tool's configuration file.
package config
