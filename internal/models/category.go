package models

// Category is a facility type label as stored in the catalog "type" column
type Category string

const (
	CategoryRestaurant Category = "음식점"
	CategoryHospital   Category = "병원"
	CategoryPharmacy   Category = "약국"
	CategoryCafe       Category = "카페"

	// CategoryNone is returned by the classifier when no keyword tier hits
	CategoryNone Category = "없음"
)

// Categories lists the enumerated categories in their fixed order.
// The order is also the tie-break order of the category classifier.
var Categories = []Category{
	CategoryHospital,
	CategoryRestaurant,
	CategoryCafe,
	CategoryPharmacy,
}

// categorySlugs maps each category to the filesystem-safe token used for index file
// names. Changing a slug orphans existing index files.
var categorySlugs = map[Category]string{
	CategoryRestaurant: "restaurant",
	CategoryHospital:   "hospital",
	CategoryPharmacy:   "pharmacy",
	CategoryCafe:       "cafe",
}

// Slug returns the English file token for the category, or "" for unknown categories
func (c Category) Slug() string {
	return categorySlugs[c]
}

// IsKnown reports whether c is one of the enumerated categories
func (c Category) IsKnown() bool {
	_, ok := categorySlugs[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts either the Korean label or the English slug
func ParseCategory(s string) (Category, bool) {
	if c := Category(s); c.IsKnown() {
		return c, true
	}
	for c, slug := range categorySlugs {
		if slug == s {
			return c, true
		}
	}
	return "", false
}
