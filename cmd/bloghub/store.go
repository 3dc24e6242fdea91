package main

import (
	"fmt"
	"log/slog"

	"github.com/hypergopher/bloghub"
	"github.com/hypergopher/bloghub/bboltstore"
	"github.com/hypergopher/bloghub/sqlitestore"
)

// openStore opens and initializes the configured store.
func openStore(cfg StoreConfig, logger *slog.Logger) (bloghub.Store, error) {
	var store bloghub.Store

	switch cfg.Driver {
	case "memory":
		store = bloghub.NewMemoryStore()
	case "bbolt":
		store = bboltstore.New(cfg.Path, logger)
	case "sqlite":
		db, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		store = sqlitestore.NewSQLiteStore(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if err := store.Init(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error initializing %s store: %w", cfg.Driver, err)
	}

	logger.Info("store opened", slog.String("driver", cfg.Driver), slog.String("path", cfg.Path))
	return store, nil
}
