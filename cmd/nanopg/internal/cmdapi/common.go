package cmdapi

import (
	"fmt"
	"os"

	"github.com/nanopg/nanopg/sql/nanoconfig"
	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/sync"
)

// loadConfig reads the project config named by the --config flag.
func loadConfig() (*nanoconfig.Config, error) {
	cfg, err := nanoconfig.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// connectDevPool builds a connection pool against the dev database a
// config's plan is computed against, applying its SessionParams per
// spec.md §6. A pool, rather than one shared Conn, is required because
// introspection and (at concurrency > 1) migration apply each run
// several queries in parallel, and a Conn handles one query at a time.
func connectDevPool(cfg *nanoconfig.Config) (*pgwire.Pool, error) {
	dsn := cfg.Dev.ConnectionString
	if dsn == "" {
		return nil, fmt.Errorf("cmdapi: dev.connectionString is not set in %s", configPath)
	}
	return pgwire.NewPool(dsn, pgwire.Options{SessionParams: cfg.Dev.Connection}), nil
}

// readSources loads every resolved schema file's contents for sync.Compute.
func readSources(cfg *nanoconfig.Config) ([]sync.Source, error) {
	paths, err := cfg.ResolveSchemaFiles()
	if err != nil {
		return nil, err
	}
	sources := make([]sync.Source, 0, len(paths))
	for _, p := range paths {
		text, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cmdapi: read %s: %w", p, err)
		}
		sources = append(sources, sync.Source{Path: p, Text: string(text)})
	}
	return sources, nil
}
