// Package store provides persistent TokenStore implementations selected
// through configuration.
package store

import (
	"context"
	"fmt"

	scribe "github.com/goliatone/go-scribe"
)

// Open returns the store configured by cfg and a function releasing its
// resources.
func Open(ctx context.Context, cfg scribe.Config) (scribe.TokenStore, func() error, error) {
	noop := func() error { return nil }
	key := cfg.GetTokenKey()

	switch cfg.GetStoreDriver() {
	case "", scribe.StoreDriverMemory:
		return scribe.NewMemoryStore(), noop, nil
	case scribe.StoreDriverFile:
		return NewFileStore(cfg.GetStorePath(), key), noop, nil
	case scribe.StoreDriverRedis:
		s, err := ConnectRedis(ctx, cfg.GetRedisURL(), key)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case scribe.StoreDriverSQLite:
		s, err := OpenSQLite(ctx, cfg.GetStorePath(), key)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.GetStoreDriver())
	}
}
