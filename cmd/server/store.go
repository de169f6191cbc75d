package main

import (
	"context"
	"fmt"

	vc "github.com/umeed-health/umeed/internal/cfg"
	"github.com/umeed-health/umeed/internal/postgres"
	"github.com/umeed-health/umeed/internal/triage"
	"github.com/umeed-health/umeed/internal/triage/memstore"
	"github.com/umeed-health/umeed/internal/triage/pgstore"
	"github.com/umeed-health/umeed/internal/triage/sqlitestore"
)

// visitStore is the selected visit store and how to release it.
type visitStore struct {
	triage.Store
	kind  string
	close func()
}

// openStore picks postgres, then sqlite, then memory, based on which
// settings are present. dbMetrics may be nil.
func openStore(ctx context.Context, appCfg *vc.Config, dbMetrics *postgres.Metrics) (*visitStore, error) {
	switch {
	case appCfg.DatabaseURL != "":
		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL, dbMetrics)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		s, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("pgstore init: %w", err)
		}
		return &visitStore{Store: s, kind: "postgres", close: pool.Close}, nil

	case appCfg.SQLitePath != "":
		s, err := sqlitestore.New(ctx, appCfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore init: %w", err)
		}
		return &visitStore{Store: s, kind: "sqlite", close: func() { _ = s.Close() }}, nil

	default:
		return &visitStore{Store: memstore.New(), kind: "memory", close: func() {}}, nil
	}
}
