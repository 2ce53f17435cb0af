package services

import (
	"fmt"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// ConflictDecision is the outcome of a position-conflict resolution.
type ConflictDecision int

const (
	// Relocate moves the current occupant to the next free position.
	Relocate ConflictDecision = iota
	// KeepExisting leaves the recipe untouched and fails the mutation.
	KeepExisting
)

// ConflictPolicy decides what happens when a user-supplied position is
// already occupied. The confirmation UI plugs in here; the registry itself
// never talks to the user.
type ConflictPolicy interface {
	Resolve(requested int, occupant entities.BOMLine) (ConflictDecision, error)
}

// AutoRelocatePolicy always moves the occupant to the next free position.
type AutoRelocatePolicy struct{}

func (AutoRelocatePolicy) Resolve(int, entities.BOMLine) (ConflictDecision, error) {
	return Relocate, nil
}

// ConfirmPolicy asks the injected callback before relocating.
type ConfirmPolicy struct {
	Confirm func(requested int, occupant entities.BOMLine) bool
}

func (p ConfirmPolicy) Resolve(requested int, occupant entities.BOMLine) (ConflictDecision, error) {
	if p.Confirm != nil && p.Confirm(requested, occupant) {
		return Relocate, nil
	}
	return KeepExisting, nil
}

// RejectPolicy refuses conflicting positions outright.
type RejectPolicy struct{}

func (RejectPolicy) Resolve(requested int, occupant entities.BOMLine) (ConflictDecision, error) {
	return KeepExisting, fmt.Errorf("%w: position %d", entities.ErrPositionConflict, requested)
}

// RecipeRegistry owns the ordered, uniquely-positioned BOM line set of one
// recipe. After every mutation the positions form a set of unique positive
// integers.
type RecipeRegistry struct {
	recipe *entities.Recipe
	policy ConflictPolicy
}

// NewRecipeRegistry wraps a recipe with the given conflict policy. A nil
// policy auto-relocates, which is the behavior for positions the user never
// specified.
func NewRecipeRegistry(recipe *entities.Recipe, policy ConflictPolicy) *RecipeRegistry {
	if policy == nil {
		policy = AutoRelocatePolicy{}
	}
	return &RecipeRegistry{recipe: recipe, policy: policy}
}

// Recipe returns the wrapped recipe.
func (r *RecipeRegistry) Recipe() *entities.Recipe {
	return r.recipe
}

// AddLine appends an ingredient line. With position <= 0 the next free
// position is assigned, so no conflict is possible. A user-specified position
// that collides is resolved through the policy: the occupant is relocated to
// the next free position, never overwritten.
func (r *RecipeRegistry) AddLine(itemID entities.ItemID, qty float64, fcOverride *float64, position int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: line quantity must be positive, got %g", entities.ErrInvalidQuantity, qty)
	}
	if r.recipe.LineFor(itemID) != nil {
		return fmt.Errorf("recipe %s already has a line for item %s", r.recipe.ID, itemID)
	}

	if position <= 0 {
		position = NextPosition(r.positions())
	} else if err := r.vacate(position); err != nil {
		return err
	}

	r.recipe.Lines = append(r.recipe.Lines, entities.BOMLine{
		ItemID:     itemID,
		Qty:        qty,
		FCOverride: fcOverride,
		Position:   position,
	})
	return nil
}

// UpdateLine changes quantity and yield override in place. The position is
// preserved unless newPosition is > 0 and differs from the current one.
func (r *RecipeRegistry) UpdateLine(itemID entities.ItemID, qty float64, fcOverride *float64, newPosition int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: line quantity must be positive, got %g", entities.ErrInvalidQuantity, qty)
	}
	line := r.recipe.LineFor(itemID)
	if line == nil {
		return fmt.Errorf("%w: recipe %s has no line for item %s", entities.ErrNotFound, r.recipe.ID, itemID)
	}

	if newPosition > 0 && newPosition != line.Position {
		if err := r.vacate(newPosition); err != nil {
			return err
		}
		line.Position = newPosition
	}
	line.Qty = qty
	line.FCOverride = fcOverride
	return nil
}

// RemoveLine deletes the line for the item. Remaining positions keep their
// values; gaps are acceptable and heal only on the next load.
func (r *RecipeRegistry) RemoveLine(itemID entities.ItemID) error {
	for i := range r.recipe.Lines {
		if r.recipe.Lines[i].ItemID == itemID {
			r.recipe.Lines = append(r.recipe.Lines[:i], r.recipe.Lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: recipe %s has no line for item %s", entities.ErrNotFound, r.recipe.ID, itemID)
}

// Reposition moves an existing line to a new position, resolving conflicts
// through the policy.
func (r *RecipeRegistry) Reposition(itemID entities.ItemID, newPosition int) error {
	if newPosition <= 0 {
		return fmt.Errorf("%w: position must be positive, got %d", entities.ErrInvalidQuantity, newPosition)
	}
	line := r.recipe.LineFor(itemID)
	if line == nil {
		return fmt.Errorf("%w: recipe %s has no line for item %s", entities.ErrNotFound, r.recipe.ID, itemID)
	}
	return r.UpdateLine(itemID, line.Qty, line.FCOverride, newPosition)
}

// Heal renumbers faulty positions after an external data change. Lines whose
// position is a unique positive integer keep it; duplicates and non-positive
// values are reassigned from the lowest free integer upward, in ascending
// original order.
func (r *RecipeRegistry) Heal() {
	seen := make(map[int]bool, len(r.recipe.Lines))
	var faulty []int

	for i := range r.recipe.Lines {
		p := r.recipe.Lines[i].Position
		if p <= 0 || seen[p] {
			faulty = append(faulty, i)
			continue
		}
		seen[p] = true
	}

	for _, i := range faulty {
		next := 1
		for seen[next] {
			next++
		}
		r.recipe.Lines[i].Position = next
		seen[next] = true
	}
}

// vacate frees the requested position, relocating its occupant when the
// policy allows it.
func (r *RecipeRegistry) vacate(position int) error {
	occupant := r.recipe.LineAt(position)
	if occupant == nil {
		return nil
	}

	decision, err := r.policy.Resolve(position, *occupant)
	if err != nil {
		return err
	}
	if decision != Relocate {
		return fmt.Errorf("%w: position %d kept by item %s", entities.ErrPositionConflict, position, occupant.ItemID)
	}

	occupied := append(r.positions(), position)
	occupant.Position = NextPosition(occupied)
	return nil
}

func (r *RecipeRegistry) positions() []int {
	positions := make([]int, 0, len(r.recipe.Lines))
	for i := range r.recipe.Lines {
		positions = append(positions, r.recipe.Lines[i].Position)
	}
	return positions
}
