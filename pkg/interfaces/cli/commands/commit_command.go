package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/lbatista/fabrica/pkg/application/services/batch"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/production"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/csv"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/sqlite"
	"github.com/lbatista/fabrica/pkg/interfaces/cli/output"
)

// CommitCommand turns a selection into persisted orders: one production
// order per selection plus a consolidated purchase order when stock does
// not cover the requirements.
type CommitCommand struct {
	config Config
}

// NewCommitCommand creates a commit command with the given configuration
func NewCommitCommand(config Config) *CommitCommand {
	return &CommitCommand{config: config}
}

// Execute loads the scenario into the database and commits the selection.
func (c *CommitCommand) Execute(ctx context.Context) error {
	if c.config.ScenarioFile == "" {
		return fmt.Errorf("a scenario file is required (-scenario)")
	}
	if len(c.config.Selections) == 0 {
		return fmt.Errorf("at least one selection is required, e.g. PF001=3")
	}
	if c.config.DatabasePath == "" {
		return fmt.Errorf("a database path is required (-db)")
	}

	store, err := sqlite.Open(ctx, c.config.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog := sqlite.NewCatalogRepository(store)
	orders := sqlite.NewOrderRepository(store)
	seq := sqlite.NewSequenceRepository(store)

	scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioFile)
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

	if c.config.Verbose {
		fmt.Printf("Loaded %d items, %d recipes into %s\n",
			len(scenario.Items), len(scenario.Recipes), c.config.DatabasePath)
	}

	selections, err := parseSelections(ctx, catalog, c.config.Selections)
	if err != nil {
		return err
	}

	plan := planner.NewService(catalog, catalog, nil)
	purch := purchasing.NewService(catalog, catalog, orders, seq, nil)
	prod := production.NewService(catalog, catalog, orders, seq, plan, purch, nil)
	coord := batch.NewCoordinator(plan, prod, purch, nil)

	if err := coord.Select(selections); err != nil {
		return err
	}
	result, err := coord.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return output.Commit(os.Stdout, result, output.Config{
		Format:  c.config.Format,
		Verbose: c.config.Verbose,
	})
}
