package store

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/packcache/config"
	"github.com/jonwraymond/packcache/observe"
	"github.com/jonwraymond/packcache/pack"
	"github.com/jonwraymond/packcache/serial"
)

// Result is the outcome of a lookup.
type Result struct {
	// Data is the cached payload. Only valid when Hit is true.
	Data []byte

	// Hit reports whether a matching entry was found.
	Hit bool

	// Provide stores the freshly computed value after a miss, closing the
	// compute-then-store loop. Nil on a hit.
	Provide func(ctx context.Context, data []byte) error
}

// Dispatcher routes lookups and stores according to the configured mode.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: lookups degrade to misses; stores degrade to no-ops. Failures
//   surface only through diagnostics, never as fatal errors to the host.
type Dispatcher struct {
	mode        Mode
	version     string
	archivePath string

	queue *Queue
	files *FileStore

	logger  observe.Logger
	metrics observe.Metrics

	packMu     sync.Mutex
	packLoaded bool
	pack       *pack.Pack

	bg errgroup.Group
}

// NewDispatcher creates a dispatcher for the given configuration.
func NewDispatcher(cfg *config.Config, obs observe.Observer) (*Dispatcher, error) {
	mode, err := ParseMode(cfg.Store)
	if err != nil {
		return nil, err
	}
	hasher, err := NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		mode:        mode,
		version:     cfg.Version,
		archivePath: cfg.ArchivePath(),
		queue:       NewQueue(),
		files:       NewFileStore(cfg.FileRoot(), hasher),
		logger:      obs.Logger().WithComponent("store"),
		metrics:     obs.Metrics(),
	}, nil
}

// Mode returns the configured storage mode.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// PendingLen returns the number of queued persistence actions.
func (d *Dispatcher) PendingLen() int {
	return d.queue.Len()
}

// TakeAction removes and returns the oldest queued persistence action.
func (d *Dispatcher) TakeAction() (Action, bool) {
	return d.queue.Take()
}

// entryFor builds the entry for a store operation. With an etag the payload
// sits behind a producer so serialization cost is deferred until the entry is
// actually flushed; without one the raw data is stored directly.
func (d *Dispatcher) entryFor(identifier, etag string, data []byte) *pack.Entry {
	if etag == pack.NoETag {
		return pack.NewEntry(identifier, etag, d.version, data)
	}
	return pack.NewLazyEntry(identifier, etag, d.version, func() ([]byte, error) {
		return data, nil
	})
}

// Store persists a computed value under the configured mode. Pack and idle
// modes return immediately with the work queued; background returns with the
// write in flight and its completion queued; instant awaits the write.
func (d *Dispatcher) Store(ctx context.Context, identifier, etag string, data []byte) error {
	if err := pack.ValidateIdentifier(identifier); err != nil {
		d.logger.Debug(ctx, "store rejected", observe.Field{Key: "error", Value: err.Error()})
		return nil
	}

	start := time.Now()
	entry := d.entryFor(identifier, etag, data)
	var err error

	switch d.mode {
	case ModePack:
		d.queue.Put(identifier, func(ctx context.Context) error {
			d.sharedPack(ctx).Set(identifier, entry)
			return nil
		})

	case ModeIdle:
		d.queue.Put(identifier, func(ctx context.Context) error {
			return d.files.Write(ctx, entry)
		})

	case ModeBackground:
		done := make(chan error, 1)
		d.bg.Go(func() error {
			done <- d.files.Write(context.Background(), entry)
			return nil
		})
		d.queue.Put(identifier, func(ctx context.Context) error {
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		})

	case ModeInstant:
		err = d.files.Write(ctx, entry)
		if err != nil {
			d.logger.Warning(ctx, "store failed",
				observe.Field{Key: "identifier", Value: identifier},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	d.metrics.RecordStore(ctx, d.mode.String(), time.Since(start), err)
	return nil
}

// Lookup resolves an identifier+etag query. A found entry counts only when
// identifier, etag, and format version all match; anything else is a miss
// whose Result carries a Provide follow-up for the freshly computed value.
func (d *Dispatcher) Lookup(ctx context.Context, identifier, etag string) (*Result, error) {
	start := time.Now()

	var entry *pack.Entry
	if d.mode == ModePack {
		entry = d.sharedPack(ctx).Get(identifier)
	} else {
		var err error
		entry, err = d.files.Read(ctx, identifier)
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warning(ctx, "entry read failed",
				observe.Field{Key: "identifier", Value: identifier},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	if entry != nil && entry.Matches(identifier, etag, d.version) {
		data, err := entry.Data()
		if err == nil {
			d.metrics.RecordLookup(ctx, d.mode.String(), true, time.Since(start))
			return &Result{Data: data, Hit: true}, nil
		}
		d.logger.Warning(ctx, "entry payload unavailable",
			observe.Field{Key: "identifier", Value: identifier},
			observe.Field{Key: "error", Value: err.Error()},
		)
	} else if entry != nil {
		d.logger.Debug(ctx, "stale entry",
			observe.Field{Key: "identifier", Value: identifier},
			observe.Field{Key: "want_etag", Value: etag},
			observe.Field{Key: "have_etag", Value: entry.ETag},
			observe.Field{Key: "have_version", Value: entry.Version},
		)
	}

	d.metrics.RecordLookup(ctx, d.mode.String(), false, time.Since(start))
	return &Result{
		Provide: func(ctx context.Context, data []byte) error {
			return d.Store(ctx, identifier, etag, data)
		},
	}, nil
}

// sharedPack returns the process-wide pack, loading the archive on first
// use. An absent or corrupt archive is an empty cache, never an error.
func (d *Dispatcher) sharedPack(ctx context.Context) *pack.Pack {
	d.packMu.Lock()
	defer d.packMu.Unlock()

	if d.packLoaded {
		return d.pack
	}
	d.packLoaded = true
	d.pack = pack.New(d.version, pack.WithLogger(d.logger), pack.WithMetrics(d.metrics))

	r, err := serial.OpenFile(d.archivePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warning(ctx, "archive unreadable, starting empty",
				observe.Field{Key: "path", Value: d.archivePath},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
		return d.pack
	}
	if err := d.pack.Deserialize(r); err != nil {
		d.logger.Warning(ctx, "archive corrupt, starting empty",
			observe.Field{Key: "path", Value: d.archivePath},
			observe.Field{Key: "error", Value: err.Error()},
		)
		d.pack = pack.New(d.version, pack.WithLogger(d.logger), pack.WithMetrics(d.metrics))
		return d.pack
	}

	d.logger.Verbose(ctx, "archive loaded",
		observe.Field{Key: "path", Value: d.archivePath},
		observe.Field{Key: "entries", Value: d.pack.Len()},
	)
	return d.pack
}

// CollectGarbage runs an age-based GC pass over the shared pack. A no-op
// outside pack mode or before the pack was ever touched.
func (d *Dispatcher) CollectGarbage(maxAge time.Duration) int {
	d.packMu.Lock()
	loaded := d.packLoaded
	p := d.pack
	d.packMu.Unlock()

	if d.mode != ModePack || !loaded {
		return 0
	}
	return p.CollectGarbage(maxAge)
}

// PersistPack writes the shared pack archive if any write happened since it
// was loaded. On a write failure the in-memory pack is replaced with a fresh
// empty one so the process does not keep retrying a failing target.
func (d *Dispatcher) PersistPack(ctx context.Context) error {
	d.packMu.Lock()
	defer d.packMu.Unlock()

	if d.mode != ModePack || !d.packLoaded || !d.pack.Invalid() {
		return nil
	}

	start := time.Now()
	entries := d.pack.Len()

	w := serial.NewWriter()
	err := d.pack.Serialize(w)
	if err == nil {
		err = w.WriteFile(d.archivePath)
	}
	d.metrics.RecordPersist(ctx, entries, time.Since(start), err)

	if err != nil {
		d.logger.Warning(ctx, "archive write failed, dropping in-memory pack",
			observe.Field{Key: "path", Value: d.archivePath},
			observe.Field{Key: "error", Value: err.Error()},
		)
		d.pack = pack.New(d.version, pack.WithLogger(d.logger), pack.WithMetrics(d.metrics))
		return err
	}

	d.logger.Verbose(ctx, "archive written",
		observe.Field{Key: "path", Value: d.archivePath},
		observe.Field{Key: "entries", Value: entries},
	)
	return nil
}

// Quiesce finishes a natural idle drain: stale entries are collected and the
// pack persisted. Called by the idle scheduler when the queue empties.
func (d *Dispatcher) Quiesce(ctx context.Context) error {
	d.CollectGarbage(DefaultMaxAge)
	return d.PersistPack(ctx)
}

// FinalFlush completes all outstanding persistence work for shutdown: stray
// background writes are awaited and the pack written one final time.
func (d *Dispatcher) FinalFlush(ctx context.Context) error {
	if err := d.bg.Wait(); err != nil {
		d.logger.Warning(ctx, "background write failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return d.PersistPack(ctx)
}

// DefaultMaxAge is the garbage-collection window applied when an idle drain
// empties the queue.
const DefaultMaxAge = 48 * time.Hour
