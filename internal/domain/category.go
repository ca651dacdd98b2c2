package domain

import "fmt"

type Category string

const (
	CategoryInternational Category = "international"
	CategoryIndian        Category = "indian"
	CategorySports        Category = "sports"
	CategoryTech          Category = "tech"
)

// Categories lists every category in the order digests are assembled.
var Categories = []Category{
	CategoryInternational,
	CategoryIndian,
	CategorySports,
	CategoryTech,
}

var categoryLabels = map[Category]string{
	CategoryInternational: "International",
	CategoryIndian:        "Indian",
	CategorySports:        "Sports",
	CategoryTech:          "Tech",
}

// Label is the human readable name used in digest paragraphs.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
