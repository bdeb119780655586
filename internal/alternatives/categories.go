package alternatives

import "strings"

// Category groups a family of products under a label, the keywords that
// identify it in a title or URL, and the generic term appended to search
// queries when attribute extraction comes up short.
type Category struct {
	Label      string
	Keywords   []string
	SearchTerm string
}

// DefaultCategories is the built-in category table. Callers can append their
// own entries before constructing a Finder to extend coverage.
var DefaultCategories = []Category{
	{
		Label:      "shoes",
		Keywords:   []string{"shoe", "sneaker", "trainer", "boot", "footwear"},
		SearchTerm: "shoes",
	},
	{
		Label:      "computers",
		Keywords:   []string{"laptop", "computer", "pc", "desktop", "macbook", "chromebook"},
		SearchTerm: "laptop",
	},
	{
		Label:      "phones",
		Keywords:   []string{"phone", "iphone", "smartphone", "android", "galaxy", "pixel"},
		SearchTerm: "smartphone",
	},
	{
		Label:      "tvs",
		Keywords:   []string{"tv", "television", "smart tv", "led tv", "oled", "qled"},
		SearchTerm: "tv",
	},
	{
		Label:      "audio",
		Keywords:   []string{"headphone", "earphone", "earbud", "airpod", "speaker", "soundbar"},
		SearchTerm: "headphones",
	},
	{
		Label:      "appliances",
		Keywords:   []string{"refrigerator", "washer", "dryer", "dishwasher", "microwave", "oven", "vacuum"},
		SearchTerm: "appliance",
	},
	{
		Label:      "gaming",
		Keywords:   []string{"xbox", "playstation", "ps5", "ps4", "nintendo", "switch", "gaming", "console"},
		SearchTerm: "console",
	},
	{
		Label:      "home",
		Keywords:   []string{"furniture", "chair", "table", "desk", "mattress", "bed", "sofa", "couch"},
		SearchTerm: "furniture",
	},
}

const CategoryGeneral = "general"

// IdentifyCategory matches a title and URL against the table. Keywords are
// matched as substrings of the lowercased inputs, first hit wins.
func IdentifyCategory(table []Category, title, url string) string {
	haystack := strings.ToLower(title) + " " + strings.ToLower(url)
	for _, c := range table {
		for _, kw := range c.Keywords {
			if strings.Contains(haystack, kw) {
				return c.Label
			}
		}
	}
	return CategoryGeneral
}

func searchTermFor(table []Category, label string) string {
	for _, c := range table {
		if c.Label == label {
			return c.SearchTerm
		}
	}
	return ""
}
