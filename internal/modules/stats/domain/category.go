package domain

import "recall/internal/platform/slug"

// Category is the canonical game category a free-form label maps to.
type Category string

const (
	CategoryPeople        Category = "people"
	CategoryPlaces        Category = "places"
	CategoryObjects       Category = "objects"
	CategoryCategoryMatch Category = "category-match"
	CategoryOther         Category = "other"
)

var spellings = map[string]Category{
	"people":                   CategoryPeople,
	"person":                   CategoryPeople,
	"faces":                    CategoryPeople,
	"name-that-memory-people":  CategoryPeople,
	"places":                   CategoryPlaces,
	"place":                    CategoryPlaces,
	"locations":                CategoryPlaces,
	"name-that-memory-places":  CategoryPlaces,
	"objects":                  CategoryObjects,
	"object":                   CategoryObjects,
	"things":                   CategoryObjects,
	"name-that-memory-objects": CategoryObjects,
	"category-match":           CategoryCategoryMatch,
	"categorymatch":            CategoryCategoryMatch,
	"category-matching":        CategoryCategoryMatch,
	"other":                    CategoryOther,
}

// Categories lists every canonical category in display order.
func Categories() []Category {
	return []Category{CategoryPeople, CategoryPlaces, CategoryObjects, CategoryCategoryMatch, CategoryOther}
}

// Classify never fails; unknown labels map to CategoryOther.
func Classify(raw string) Category {
	if c, ok := spellings[slug.Hyphenate(raw)]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) Label() string {
	switch c {
	case CategoryPeople:
		return "People"
	case CategoryPlaces:
		return "Places"
	case CategoryObjects:
		return "Objects"
	case CategoryCategoryMatch:
		return "Category Match"
	default:
		return "Other"
	}
}
