package services

import (
	"testing"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

func TestNextItemCode(t *testing.T) {
	testCases := []struct {
		name     string
		kind     entities.ItemKind
		existing []entities.ItemCode
		expected entities.ItemCode
	}{
		{"empty catalog", entities.RawMaterial, nil, "MP001"},
		{"sequential", entities.RawMaterial, []entities.ItemCode{"MP001", "MP002"}, "MP003"},
		{"reuses gap left by deletion", entities.RawMaterial, []entities.ItemCode{"MP001", "MP003"}, "MP002"},
		{"prefixes are independent", entities.FinishedGood, []entities.ItemCode{"MP001", "MP002"}, "PF001"},
		{"ignores foreign prefixes", entities.FinishedGood, []entities.ItemCode{"PF001", "MP002", "XX005"}, "PF002"},
		{"ignores malformed codes", entities.RawMaterial, []entities.ItemCode{"MP001", "MPabc"}, "MP002"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextItemCode(tc.kind, tc.existing)
			if got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestNextPosition(t *testing.T) {
	testCases := []struct {
		name     string
		occupied []int
		expected int
	}{
		{"empty recipe", nil, 1},
		{"dense positions", []int{1, 2, 3}, 4},
		{"fills lowest gap", []int{1, 3, 4}, 2},
		{"ignores non-positive junk", []int{0, -2, 2}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextPosition(tc.occupied)
			if got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}
