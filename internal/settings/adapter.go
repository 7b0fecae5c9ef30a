package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Adapter loads and saves records on behalf of the controller. It never
// returns an error: failures are logged and the caller keeps its in-memory
// state.
type Adapter struct {
	store Store
	log   *slog.Logger
}

// NewAdapter wraps store. A nil store behaves as an empty MemoryStore.
func NewAdapter(store Store, log *slog.Logger) *Adapter {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{store: store, log: log}
}

// Load returns the raw record stored under key.
func (a *Adapter) Load(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil {
		a.log.Warn("settings load failed", "key", key, "error", err)
		return nil, false
	}
	return raw, ok
}

// Save encodes v as JSON and stores it under key.
func (a *Adapter) Save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		a.log.Warn("settings encode failed", "key", key, "error", err)
		return
	}
	if err := a.store.Set(ctx, key, raw); err != nil {
		a.log.Warn("settings save failed", "key", key, "error", err)
	}
}

// Config selects and configures a Store backend.
type Config struct {
	Backend     string
	Path        string
	DatabaseURL string
}

// Open builds the Store named by cfg.Backend. The returned close func
// releases any connection and is never nil.
func Open(ctx context.Context, cfg Config) (Store, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), func() {}, nil
	case "file":
		s, err := OpenFileStore(cfg.Path)
		if err != nil {
			return nil, func() {}, err
		}
		return s, func() {}, nil
	case "postgres":
		pool, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		s := NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		return s, pool.Close, nil
	}
	return nil, func() {}, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
