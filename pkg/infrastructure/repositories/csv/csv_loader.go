package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/services"
)

// Loader handles loading catalog scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Scenario is a fully parsed catalog ready to load into a repository.
type Scenario struct {
	Items     []*entities.Item
	Recipes   []*entities.Recipe
	Sequences map[string]int64 // last used number per sequence kind
}

// Manifest describes a scenario directory. Paths are relative to the
// manifest file.
type Manifest struct {
	Items     string           `yaml:"items"`
	BOM       string           `yaml:"bom"`
	Sequences map[string]int64 `yaml:"sequences"`
}

// LoadScenario reads a scenario manifest and the CSV files it names.
// BOM positions are healed on load, so hand-edited files with duplicate or
// missing positions come out consistent.
func (l *Loader) LoadScenario(manifestPath string) (*Scenario, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario manifest %s: %w", manifestPath, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse scenario manifest: %w", err)
	}
	if manifest.Items == "" {
		return nil, fmt.Errorf("scenario manifest must name an items file")
	}

	dir := filepath.Dir(manifestPath)

	items, err := l.LoadItems(filepath.Join(dir, manifest.Items))
	if err != nil {
		return nil, err
	}

	scenario := &Scenario{Items: items, Sequences: manifest.Sequences}

	if manifest.BOM != "" {
		recipes, err := l.loadRecipes(filepath.Join(dir, manifest.BOM), items)
		if err != nil {
			return nil, err
		}
		scenario.Recipes = recipes
	}

	return scenario, nil
}

// LoadItems loads catalog items from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	records, err := readAll(filename)
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"code", "name", "kind", "unit", "stock", "min_stock", "unit_cost", "sale_price", "loss_pct", "cook_factor"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("items CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var items []*entities.Item
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("items CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		item, err := parseItem(record)
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// bomRow is one line of a bom.csv file before grouping into recipes.
type bomRow struct {
	productCode    entities.ItemCode
	ingredientCode entities.ItemCode
	qty            float64
	position       int
	fcOverride     *float64
}

// LoadBOM loads raw BOM rows from a CSV file
func (l *Loader) LoadBOM(filename string) ([]bomRow, error) {
	records, err := readAll(filename)
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_code", "ingredient_code", "qty", "position", "cook_factor_override"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("BOM CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var rows []bomRow
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("BOM CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		row, err := parseBOMRow(record)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func (l *Loader) loadRecipes(filename string, items []*entities.Item) ([]*entities.Recipe, error) {
	rows, err := l.LoadBOM(filename)
	if err != nil {
		return nil, err
	}

	byCode := make(map[entities.ItemCode]*entities.Item, len(items))
	for _, item := range items {
		byCode[item.Code] = item
	}

	// group rows into one recipe per product, preserving file order
	recipes := make(map[entities.ItemCode]*entities.Recipe)
	var order []entities.ItemCode
	for _, row := range rows {
		product, ok := byCode[row.productCode]
		if !ok {
			return nil, fmt.Errorf("BOM references unknown product %s", row.productCode)
		}
		if product.Kind != entities.FinishedGood {
			return nil, fmt.Errorf("BOM product %s is not a finished good", row.productCode)
		}
		ingredient, ok := byCode[row.ingredientCode]
		if !ok {
			return nil, fmt.Errorf("BOM references unknown ingredient %s", row.ingredientCode)
		}

		recipe, ok := recipes[row.productCode]
		if !ok {
			recipe, _ = entities.NewRecipe(entities.RecipeID("recipe-"+string(product.Code)), product.ID)
			recipes[row.productCode] = recipe
			order = append(order, row.productCode)
		}
		recipe.Lines = append(recipe.Lines, entities.BOMLine{
			ItemID:     ingredient.ID,
			Qty:        row.qty,
			FCOverride: row.fcOverride,
			Position:   row.position,
		})
	}

	result := make([]*entities.Recipe, 0, len(order))
	for _, code := range order {
		recipe := recipes[code]
		services.NewRecipeRegistry(recipe, nil).Heal()
		result = append(result, recipe)
	}
	return result, nil
}

// Helper functions for parsing CSV records

func readAll(filename string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s must have header and at least one data row", filename)
	}
	return records, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseItem(record []string) (*entities.Item, error) {
	code := entities.ItemCode(strings.TrimSpace(record[0]))
	name := strings.TrimSpace(record[1])

	kind, err := parseKind(record[2])
	if err != nil {
		return nil, err
	}

	unit, err := entities.ParseUnit(strings.TrimSpace(record[3]))
	if err != nil {
		return nil, err
	}

	item, err := entities.NewItem(entities.ItemID("item-"+string(code)), code, name, kind, unit)
	if err != nil {
		return nil, err
	}

	if item.Stock, err = parseFloat("stock", record[4]); err != nil {
		return nil, err
	}
	if item.MinStock, err = parseFloat("min_stock", record[5]); err != nil {
		return nil, err
	}
	if item.UnitCost, err = parseDecimal("unit_cost", record[6]); err != nil {
		return nil, err
	}
	if item.SalePrice, err = parseDecimal("sale_price", record[7]); err != nil {
		return nil, err
	}
	if item.LossPct, err = parseFloat("loss_pct", record[8]); err != nil {
		return nil, err
	}

	if cf := strings.TrimSpace(record[9]); cf != "" {
		if item.CookFactor, err = parseFloat("cook_factor", cf); err != nil {
			return nil, err
		}
	}

	return item, nil
}

func parseBOMRow(record []string) (bomRow, error) {
	row := bomRow{
		productCode:    entities.ItemCode(strings.TrimSpace(record[0])),
		ingredientCode: entities.ItemCode(strings.TrimSpace(record[1])),
	}

	qty, err := parseFloat("qty", record[2])
	if err != nil {
		return bomRow{}, err
	}
	if qty <= 0 {
		return bomRow{}, fmt.Errorf("qty must be positive, got %g", qty)
	}
	row.qty = qty

	if pos := strings.TrimSpace(record[3]); pos != "" {
		row.position, err = strconv.Atoi(pos)
		if err != nil {
			return bomRow{}, fmt.Errorf("invalid position: %s", record[3])
		}
	}

	if fc := strings.TrimSpace(record[4]); fc != "" {
		value, err := parseFloat("cook_factor_override", fc)
		if err != nil {
			return bomRow{}, err
		}
		row.fcOverride = &value
	}

	return row, nil
}

func parseKind(s string) (entities.ItemKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MP", "RAW":
		return entities.RawMaterial, nil
	case "PF", "FINISHED":
		return entities.FinishedGood, nil
	default:
		return entities.RawMaterial, fmt.Errorf("invalid kind: %s (expected MP or PF)", s)
	}
}

func parseFloat(field, s string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	return value, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return value, nil
}
