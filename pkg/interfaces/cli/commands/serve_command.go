package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lbatista/fabrica/pkg/application/services/batch"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/production"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
	"github.com/lbatista/fabrica/pkg/infrastructure/config"
	"github.com/lbatista/fabrica/pkg/infrastructure/logging"
	"github.com/lbatista/fabrica/pkg/infrastructure/metrics"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/csv"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/sqlite"
	"github.com/lbatista/fabrica/pkg/interfaces/rest"
)

// ServeCommand runs the HTTP server against a SQLite-backed catalog.
type ServeCommand struct{}

// NewServeCommand creates a serve command
func NewServeCommand() *ServeCommand {
	return &ServeCommand{}
}

// Execute loads configuration from the environment and serves until
// interrupted.
func (c *ServeCommand) Execute(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogAsJSON); err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.L()

	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog := sqlite.NewCatalogRepository(store)
	orders := sqlite.NewOrderRepository(store)
	seq := sqlite.NewSequenceRepository(store)

	if cfg.ScenarioPath != "" {
		scenario, err := csv.NewLoader().LoadScenario(cfg.ScenarioPath)
		if err != nil {
			return fmt.Errorf("error loading scenario: %w", err)
		}
		for _, item := range scenario.Items {
			if err := catalog.SaveItem(ctx, item); err != nil {
				return err
			}
		}
		for _, recipe := range scenario.Recipes {
			if err := catalog.SaveRecipe(ctx, recipe); err != nil {
				return err
			}
		}
		for kind, last := range scenario.Sequences {
			if err := seq.Seed(ctx, repositories.SequenceKind(kind), last); err != nil {
				return err
			}
		}
		log.Info("scenario loaded",
			logging.String("path", cfg.ScenarioPath),
			logging.Int("items", len(scenario.Items)),
			logging.Int("recipes", len(scenario.Recipes)))
	}

	plan := planner.NewService(catalog, catalog, log)
	purch := purchasing.NewService(catalog, catalog, orders, seq, log)
	prod := production.NewService(catalog, catalog, orders, seq, plan, purch, log)
	coord := batch.NewCoordinator(plan, prod, purch, log)
	collector := metrics.NewCollector()

	server := rest.NewServer(catalog, plan, prod, purch, coord, collector, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logging.String("addr", cfg.HTTPAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
