package bloghub

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	maxCategoryName = 100
	maxTagName      = 50
)

// CheckCategoryName trims the name and checks it is non-empty and at most 100 characters.
func CheckCategoryName(name string) (string, error) {
	return checkName("category", name, maxCategoryName)
}

// CheckTagName trims the name and checks it is non-empty and at most 50 characters.
func CheckTagName(name string) (string, error) {
	return checkName("tag", name, maxTagName)
}

func checkName(kind, name string, limit int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is required", ErrInvalidName, kind)
	}
	if utf8.RuneCountInString(name) > limit {
		return "", fmt.Errorf("%w: %s name is longer than %d characters", ErrInvalidName, kind, limit)
	}
	return name, nil
}

// SortTaxonomyCounts orders taxonomy counts by name.
func SortTaxonomyCounts(counts []TaxonomyCount) {
	slices.SortFunc(counts, func(a, b TaxonomyCount) int {
		return strings.Compare(a.Name, b.Name)
	})
}
