package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/csv"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/memory"
	"github.com/lbatista/fabrica/pkg/interfaces/cli/output"
)

// Config holds configuration shared by the scenario-driven commands.
type Config struct {
	ScenarioFile string
	Selections   []string // PF001=3 pairs
	Format       string
	Verbose      bool
	DatabasePath string // commit only
}

// SimulateCommand aggregates requirements for a selection without touching
// stock or creating orders.
type SimulateCommand struct {
	config Config
}

// NewSimulateCommand creates a simulate command with the given configuration
func NewSimulateCommand(config Config) *SimulateCommand {
	return &SimulateCommand{config: config}
}

// Execute runs the simulation and prints the requirement/shortage table.
func (c *SimulateCommand) Execute(ctx context.Context) error {
	if c.config.ScenarioFile == "" {
		return fmt.Errorf("a scenario file is required (-scenario)")
	}
	if len(c.config.Selections) == 0 {
		return fmt.Errorf("at least one selection is required, e.g. PF001=3")
	}

	scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioFile)
	if err != nil {
		return fmt.Errorf("error loading scenario: %w", err)
	}

	catalog := memory.NewCatalogRepository()
	if err := catalog.LoadItems(scenario.Items); err != nil {
		return fmt.Errorf("failed to load items into repository: %w", err)
	}
	if err := catalog.LoadRecipes(scenario.Recipes); err != nil {
		return fmt.Errorf("failed to load recipes into repository: %w", err)
	}

	if c.config.Verbose {
		fmt.Printf("Loaded %d items, %d recipes\n", len(scenario.Items), len(scenario.Recipes))
	}

	selections, err := parseSelections(ctx, catalog, c.config.Selections)
	if err != nil {
		return err
	}

	plan := planner.NewService(catalog, catalog, nil)
	result, err := plan.Simulate(ctx, selections)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	return output.Simulation(os.Stdout, result, output.Config{
		Format:  c.config.Format,
		Verbose: c.config.Verbose,
	})
}

// parseSelections resolves PF001=3 pairs to recipe selections.
func parseSelections(ctx context.Context, catalog repositories.CatalogRepository, pairs []string) ([]dto.Selection, error) {
	var selections []dto.Selection
	for _, pair := range pairs {
		code, qtyStr, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid selection %q, expected CODE=QTY", pair)
		}

		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("invalid quantity in selection %q", pair)
		}

		item, err := catalog.GetItemByCode(ctx, entities.ItemCode(strings.TrimSpace(code)))
		if err != nil {
			return nil, err
		}
		recipe, err := catalog.RecipeForProduct(ctx, item.ID)
		if err != nil {
			return nil, err
		}

		selections = append(selections, dto.Selection{RecipeID: recipe.ID, Quantity: qty})
	}
	return selections, nil
}
