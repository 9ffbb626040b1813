package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"sapauth/pkg/engine"
	"sapauth/pkg/parser"
)

const defaultCacheSize = 32

// datasetNamespace scopes the name-based UUIDs used as dataset identities.
var datasetNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:sapauth:dataset"))

// SnapshotCache memoizes derived snapshots by dataset identity and window.
// One cache may be shared by several datasets; keys never collide across them.
type SnapshotCache struct {
	entries *lru.Cache[string, *engine.Snapshot]
	group   singleflight.Group
}

// NewSnapshotCache creates a cache holding at most size snapshots.
func NewSnapshotCache(size int) (*SnapshotCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, err := lru.New[string, *engine.Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("create snapshot cache: %w", err)
	}
	return &SnapshotCache{entries: entries}, nil
}

// Len reports how many snapshots are cached.
func (c *SnapshotCache) Len() int {
	return c.entries.Len()
}

// Options configures Open.
type Options struct {
	Rules engine.Rules
	// Now pins the reference instant for every snapshot of the dataset. Zero means time.Now() at open.
	Now time.Time
	// Cache is shared across datasets when set; otherwise each dataset gets its own.
	Cache     *SnapshotCache
	CacheSize int
	Logger    *slog.Logger
}

// Dataset is one loaded export: its raw tables, the all-time snapshot, and
// the cache of windowed snapshots derived from it.
type Dataset struct {
	// ID identifies the dataset contents; equal bytes give equal IDs.
	ID     string
	Name   string
	Result *parser.Result

	base   *engine.Snapshot
	cache  *SnapshotCache
	logger *slog.Logger
}

// Open fetches and parses an export, then derives its all-time snapshot.
func Open(ctx context.Context, src Source, opts Options) (*Dataset, error) {
	name, data, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Load(name, data, opts)
}

// Load builds a dataset from bytes already in memory.
func Load(name string, data []byte, opts Options) (*Dataset, error) {
	result, err := parser.Load(name, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	cache := opts.Cache
	if cache == nil {
		if cache, err = NewSnapshotCache(opts.CacheSize); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	ds := &Dataset{
		ID:     uuid.NewSHA1(datasetNamespace, data).String(),
		Name:   name,
		Result: result,
		base:   engine.Derive(result.Tables, engine.Options{Now: now, Rules: opts.Rules}),
		cache:  cache,
		logger: logger,
	}
	logger.Debug("loaded dataset",
		"name", name,
		"id", ds.ID,
		"sheets", result.Sheets,
		"warnings", len(result.Warnings),
		"users", len(ds.base.Users),
		"roles", len(ds.base.Roles),
		"tcodes", len(ds.base.TCodes),
	)
	return ds, nil
}

// Snapshot returns the snapshot for a window. All-time windows return the base
// snapshot; other windows are derived once and served from the cache, with
// concurrent requests for the same window sharing one derivation.
func (d *Dataset) Snapshot(w *engine.Window) *engine.Snapshot {
	if w.IsAllTime() {
		return d.base
	}

	key := d.ID + "|" + w.Key()
	if snap, ok := d.cache.entries.Get(key); ok {
		return snap
	}

	v, _, _ := d.cache.group.Do(key, func() (any, error) {
		if snap, ok := d.cache.entries.Get(key); ok {
			return snap, nil
		}
		d.logger.Debug("snapshot cache miss", "dataset", d.ID, "window", w.Key())
		snap := d.base.Rewindow(w)
		d.cache.entries.Add(key, snap)
		return snap, nil
	})
	return v.(*engine.Snapshot)
}

// Base returns the all-time snapshot.
func (d *Dataset) Base() *engine.Snapshot {
	return d.base
}
