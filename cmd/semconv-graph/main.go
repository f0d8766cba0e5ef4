// Command semconv-graph stands up the semantic-conventions graph catalog:
// it opens (or creates) the embedded database, applies the schema, bulk
// imports the convention data when the Metric table is empty, and serves
// the GraphQL endpoint.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dd0wney/semconv-graph/pkg/config"
	"github.com/dd0wney/semconv-graph/pkg/conventions"
	"github.com/dd0wney/semconv-graph/pkg/loader"
	"github.com/dd0wney/semconv-graph/pkg/logging"
	"github.com/dd0wney/semconv-graph/pkg/metrics"
	"github.com/dd0wney/semconv-graph/pkg/schema"
	"github.com/dd0wney/semconv-graph/pkg/server"
	"github.com/dd0wney/semconv-graph/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "semconv-graph: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dataDir := flag.String("data", "", "Database directory (overrides config)")
	importDir := flag.String("import", "", "Import file directory (overrides config)")
	modelDir := flag.String("model", "", "Semantic-conventions model directory (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *importDir != "" {
		cfg.ImportDir = *importDir
	}
	if *modelDir != "" {
		cfg.ModelDir = *modelDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	reg := metrics.NewRegistry()

	store, err := storage.Open(storage.Options{
		DataDir: cfg.DataDir,
		Logger:  logger,
		Metrics: reg,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := schema.Apply(store); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("schema applied", logging.Int("tables", len(store.ShowTables())))

	if err := importIfEmpty(cfg, store, logger, reg); err != nil {
		return fmt.Errorf("bulk import: %w", err)
	}

	srv, err := server.New(store, logger, reg)
	if err != nil {
		return err
	}
	handler, err := srv.Handler()
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(
		fmt.Sprintf(":%d", cfg.Port),
		handler,
		time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
		logger,
	)
	logger.Info("graphql endpoint ready",
		logging.String("url", fmt.Sprintf("http://localhost:%d/graphql", cfg.Port)))
	return gs.Start()
}

// importIfEmpty runs the one-shot bulk import when the Metric table holds
// no rows. With a model directory configured, the conventions tree is
// parsed and exported to import files first; otherwise any import files
// already present in the import directory are loaded.
func importIfEmpty(cfg config.Config, store *storage.Store, logger logging.Logger, reg *metrics.Registry) error {
	count, err := store.CountNodes(schema.TableMetric)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("store already populated, skipping import",
			logging.Table(schema.TableMetric), logging.Count(count))
		return nil
	}

	l := loader.New(store, logger, reg)

	if cfg.ModelDir != "" {
		timer := logging.StartTimer(logger, "conventions import",
			logging.Path(cfg.ModelDir))

		ds, err := conventions.NewReader(logger).ReadModelDir(cfg.ModelDir)
		if err != nil {
			return err
		}
		ds.Prune()

		files, err := ds.Export(cfg.ImportDir)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.Rel == "" {
				if _, err := l.CopyNodes(f.Table, f.Path); err != nil {
					return err
				}
			} else {
				if _, err := l.CopyRels(f.Rel, f.Table, f.ToTable, f.Path); err != nil {
					return err
				}
			}
		}
		timer.End()
		return nil
	}

	if cfg.ImportDir == "" {
		return nil
	}

	// Node files before relationship files: relationship inserts require
	// their endpoints to exist.
	for _, def := range schema.NodeTables() {
		path := filepath.Join(cfg.ImportDir, def.Name+"s.json")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := l.CopyNodes(def.Name, path); err != nil {
			return err
		}
	}
	for _, relDef := range schema.RelTables() {
		target, _ := schema.RelEndpoint(relDef.Name)
		for _, pair := range relDef.Pairs {
			path := filepath.Join(cfg.ImportDir, fmt.Sprintf("rel_%s_%s.json", pair.From, relDef.Name))
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if _, err := l.CopyRels(relDef.Name, pair.From, target, path); err != nil {
				return err
			}
		}
	}
	return nil
}
