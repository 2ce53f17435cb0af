package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// NextItemCode allocates the lowest unused code number for the kind's prefix
// among the codes currently in use. Numbers freed by deletion are reused.
func NextItemCode(kind entities.ItemKind, existing []entities.ItemCode) entities.ItemCode {
	prefix := kind.CodePrefix()

	used := make(map[int]bool, len(existing))
	for _, code := range existing {
		if n, ok := parseCodeNumber(code, prefix); ok {
			used[n] = true
		}
	}

	n := 1
	for used[n] {
		n++
	}
	return entities.ItemCode(fmt.Sprintf("%s%03d", prefix, n))
}

// parseCodeNumber extracts the numeric suffix of a code with the given prefix.
func parseCodeNumber(code entities.ItemCode, prefix string) (int, bool) {
	s := string(code)
	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(prefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NextPosition returns the lowest unused positive integer among the occupied
// BOM line positions.
func NextPosition(occupied []int) int {
	used := make(map[int]bool, len(occupied))
	for _, p := range occupied {
		if p > 0 {
			used[p] = true
		}
	}

	n := 1
	for used[n] {
		n++
	}
	return n
}
