package intel

import "strings"

// Category is the typed selection mask for a lookup: five independent
// bits, each enabling one classification domain. The lightweight flag
// indexes (mobile, satellite, crawler) and the override hierarchy run
// on every IP lookup regardless of the mask.
type Category uint8

const (
	CategoryCompany Category = 1 << iota
	CategoryASN
	CategoryLocation
	CategoryDatacenter
	CategoryBlacklist

	CategoryAll = CategoryCompany | CategoryASN | CategoryLocation |
		CategoryDatacenter | CategoryBlacklist
)

// Has reports whether every bit of c is enabled in m.
func (m Category) Has(c Category) bool { return m&c == c }

var categoryNames = map[string]Category{
	"company":    CategoryCompany,
	"asn":        CategoryASN,
	"location":   CategoryLocation,
	"datacenter": CategoryDatacenter,
	"blacklist":  CategoryBlacklist,
}

// ParseCategories builds a mask from a comma-separated list of
// category names. An empty list means all categories; unknown names
// are reported.
func ParseCategories(s string) (Category, bool) {
	if strings.TrimSpace(s) == "" {
		return CategoryAll, true
	}
	var m Category
	for _, name := range strings.Split(s, ",") {
		c, ok := categoryNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, false
		}
		m |= c
	}
	return m, true
}

func (m Category) String() string {
	if m == CategoryAll {
		return "all"
	}
	var names []string
	for _, name := range []string{"company", "asn", "location", "datacenter", "blacklist"} {
		if m.Has(categoryNames[name]) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
