package model

import (
	"fmt"
	"strings"
)

// Category is one of the five fixed tab categories
type Category string

const (
	CategoryWork          Category = "work"
	CategoryLearning      Category = "learning"
	CategoryEntertainment Category = "entertainment"
	CategorySocial        Category = "social"
	CategoryOther         Category = "other"
)

// Categories lists every category in canonical order.
// Model output index i maps to Categories[i].
var Categories = []Category{
	CategoryWork,
	CategoryLearning,
	CategoryEntertainment,
	CategorySocial,
	CategoryOther,
}

// NumCategories is the size of the model output space
const NumCategories = 5

// ParseCategory converts a string into a Category, rejecting unknown labels
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q (expected one of %s)", s, categoryList())
	}
	return c, nil
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Index returns the canonical position of c, or -1 if unknown
func (c Category) Index() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return -1
}

func (c Category) String() string {
	return string(c)
}

func categoryList() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
