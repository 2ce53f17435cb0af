package services

import (
	"errors"
	"sort"
	"testing"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

func newTestRecipe(t *testing.T) *entities.Recipe {
	t.Helper()
	recipe, err := entities.NewRecipe("R1", "item-pf-1")
	if err != nil {
		t.Fatalf("Failed to create recipe: %v", err)
	}
	return recipe
}

func assertUniquePositions(t *testing.T, recipe *entities.Recipe) {
	t.Helper()
	seen := make(map[int]bool)
	for _, line := range recipe.Lines {
		if line.Position <= 0 {
			t.Errorf("Position must be positive, got %d for item %s", line.Position, line.ItemID)
		}
		if seen[line.Position] {
			t.Errorf("Duplicate position %d", line.Position)
		}
		seen[line.Position] = true
	}
}

func TestRecipeRegistry_AddLine_AssignsNextFreePosition(t *testing.T) {
	reg := NewRecipeRegistry(newTestRecipe(t), nil)

	for i, item := range []entities.ItemID{"a", "b", "c"} {
		if err := reg.AddLine(item, 1, nil, 0); err != nil {
			t.Fatalf("Failed to add line %d: %v", i, err)
		}
	}

	recipe := reg.Recipe()
	if len(recipe.Lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(recipe.Lines))
	}
	for i, line := range recipe.Lines {
		if line.Position != i+1 {
			t.Errorf("Expected position %d, got %d", i+1, line.Position)
		}
	}
}

func TestRecipeRegistry_AddLine_RelocatesOccupant(t *testing.T) {
	reg := NewRecipeRegistry(newTestRecipe(t), AutoRelocatePolicy{})

	if err := reg.AddLine("a", 1, nil, 1); err != nil {
		t.Fatalf("Failed to add first line: %v", err)
	}
	if err := reg.AddLine("b", 2, nil, 1); err != nil {
		t.Fatalf("Failed to add conflicting line: %v", err)
	}

	recipe := reg.Recipe()
	if got := recipe.LineAt(1); got == nil || got.ItemID != "b" {
		t.Errorf("Expected item b at position 1, got %+v", got)
	}
	if got := recipe.LineAt(2); got == nil || got.ItemID != "a" {
		t.Errorf("Expected relocated item a at position 2, got %+v", got)
	}
	assertUniquePositions(t, recipe)
}

func TestRecipeRegistry_ConfirmPolicy_DeclinedKeepsExisting(t *testing.T) {
	declined := ConfirmPolicy{Confirm: func(int, entities.BOMLine) bool { return false }}
	reg := NewRecipeRegistry(newTestRecipe(t), declined)

	if err := reg.AddLine("a", 1, nil, 1); err != nil {
		t.Fatalf("Failed to add first line: %v", err)
	}

	err := reg.AddLine("b", 2, nil, 1)
	if !errors.Is(err, entities.ErrPositionConflict) {
		t.Fatalf("Expected position conflict error, got %v", err)
	}
	if len(reg.Recipe().Lines) != 1 {
		t.Errorf("Declined conflict must not mutate the recipe")
	}
}

func TestRecipeRegistry_RejectPolicy(t *testing.T) {
	reg := NewRecipeRegistry(newTestRecipe(t), RejectPolicy{})

	if err := reg.AddLine("a", 1, nil, 3); err != nil {
		t.Fatalf("Failed to add first line: %v", err)
	}
	if err := reg.AddLine("b", 1, nil, 3); !errors.Is(err, entities.ErrPositionConflict) {
		t.Errorf("Expected position conflict error, got %v", err)
	}
}

func TestRecipeRegistry_UpdateLine_PreservesPosition(t *testing.T) {
	reg := NewRecipeRegistry(newTestRecipe(t), nil)
	if err := reg.AddLine("a", 1, nil, 5); err != nil {
		t.Fatalf("Failed to add line: %v", err)
	}

	override := 0.8
	if err := reg.UpdateLine("a", 2.5, &override, 0); err != nil {
		t.Fatalf("Failed to update line: %v", err)
	}

	line := reg.Recipe().LineFor("a")
	if line.Position != 5 {
		t.Errorf("Expected preserved position 5, got %d", line.Position)
	}
	if line.Qty != 2.5 {
		t.Errorf("Expected quantity 2.5, got %g", line.Qty)
	}
	if line.FCOverride == nil || *line.FCOverride != 0.8 {
		t.Errorf("Expected yield override 0.8, got %v", line.FCOverride)
	}
}

func TestRecipeRegistry_Reposition_SwapsViaNextFree(t *testing.T) {
	reg := NewRecipeRegistry(newTestRecipe(t), AutoRelocatePolicy{})
	if err := reg.AddLine("a", 1, nil, 1); err != nil {
		t.Fatalf("Failed to add line a: %v", err)
	}
	if err := reg.AddLine("b", 1, nil, 2); err != nil {
		t.Fatalf("Failed to add line b: %v", err)
	}

	if err := reg.Reposition("b", 1); err != nil {
		t.Fatalf("Failed to reposition: %v", err)
	}

	recipe := reg.Recipe()
	if got := recipe.LineAt(1); got == nil || got.ItemID != "b" {
		t.Errorf("Expected item b at position 1, got %+v", got)
	}
	// a was relocated to the lowest free position, which is 3 while b still held 2
	if got := recipe.LineFor("a"); got.Position != 3 {
		t.Errorf("Expected item a relocated to 3, got %d", got.Position)
	}
	assertUniquePositions(t, recipe)
}

func TestRecipeRegistry_MutationSequenceKeepsInvariant(t *testing.T) {
	reg := NewRecipeRegistry(newTestRecipe(t), nil)

	items := []entities.ItemID{"a", "b", "c", "d", "e"}
	for _, item := range items {
		if err := reg.AddLine(item, 1, nil, 0); err != nil {
			t.Fatalf("Failed to add %s: %v", item, err)
		}
	}
	if err := reg.RemoveLine("b"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if err := reg.AddLine("f", 1, nil, 0); err != nil {
		t.Fatalf("Failed to add f: %v", err)
	}
	if err := reg.Reposition("e", 1); err != nil {
		t.Fatalf("Failed to reposition: %v", err)
	}

	assertUniquePositions(t, reg.Recipe())

	// removed position 2 was refilled by f; repositioning e onto 1 pushed a
	// to the next free slot, which was 6 at that point
	var positions []int
	for _, line := range reg.Recipe().Lines {
		positions = append(positions, line.Position)
	}
	sort.Ints(positions)
	expected := []int{1, 2, 3, 4, 6}
	for i, p := range positions {
		if p != expected[i] {
			t.Fatalf("Expected positions %v, got %v", expected, positions)
		}
	}
}

func TestRecipeRegistry_Heal(t *testing.T) {
	recipe := newTestRecipe(t)
	recipe.Lines = []entities.BOMLine{
		{ItemID: "a", Qty: 1, Position: 2},
		{ItemID: "b", Qty: 1, Position: 2},  // duplicate
		{ItemID: "c", Qty: 1, Position: 0},  // invalid
		{ItemID: "d", Qty: 1, Position: 7},  // valid, preserved
		{ItemID: "e", Qty: 1, Position: -1}, // invalid
	}

	reg := NewRecipeRegistry(recipe, nil)
	reg.Heal()

	assertUniquePositions(t, recipe)

	expected := map[entities.ItemID]int{
		"a": 2, // valid first occurrence keeps its position
		"b": 1, // lowest free
		"c": 3,
		"d": 7,
		"e": 4,
	}
	for item, pos := range expected {
		if got := recipe.LineFor(item).Position; got != pos {
			t.Errorf("Item %s: expected position %d, got %d", item, pos, got)
		}
	}
}
