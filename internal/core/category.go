package core

import (
	"fmt"
	"strings"
)

// Category classifies an expense. The set is closed: every record carries
// exactly one of the six values below, and filters reject anything else.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryOther         Category = "Other"
)

// Categories returns all valid categories in display order. The order is
// also the deterministic tie-break order for insight selection.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryEntertainment,
		CategoryShopping,
		CategoryBills,
		CategoryOther,
	}
}

// String implements fmt.Stringer
func (c Category) String() string {
	return string(c)
}

// IsValid returns true if the category is one of the six known values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryEntertainment,
		CategoryShopping, CategoryBills, CategoryOther:
		return true
	default:
		return false
	}
}

// Rank returns the position of the category in the fixed enumeration,
// or len(Categories()) for unknown values.
func (c Category) Rank() int {
	for i, known := range Categories() {
		if c == known {
			return i
		}
	}
	return len(Categories())
}

// ParseCategory matches a category name case-insensitively.
// Returns a ValidationError naming the allowed set on unknown input.
func ParseCategory(s string) (Category, error) {
	name := strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(name, string(c)) {
			return c, nil
		}
	}
	return "", &ValidationError{
		Field:  "category",
		Reason: fmt.Sprintf("unknown category %q, must be one of %v", s, Categories()),
	}
}
