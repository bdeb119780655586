package alternatives

import (
	"regexp"
	"strings"
)

var (
	modelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z0-9]+-[A-Z0-9]+\b`),
		regexp.MustCompile(`\b[A-Z][0-9]{1,4}\b`),
		regexp.MustCompile(`\b[A-Z]{1,3}[0-9]{2,4}\b`),
	}

	sizePattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:inch|"|in\b)`)
	colorPattern = regexp.MustCompile(`\b(black|white|blue|red|green|yellow|gray|grey|silver|gold|rose gold|purple|pink)\b`)

	shoeSizePattern = regexp.MustCompile(`size\s*(\d+(?:\.\d+)?)`)
	cpuPattern      = regexp.MustCompile(`\b(i3|i5|i7|i9|ryzen|core)\b`)
	ramPattern      = regexp.MustCompile(`(\d+)\s*gb\s*(?:ram|memory)`)
	storagePattern  = regexp.MustCompile(`(\d+)\s*(gb|tb)\s*(?:ssd|hdd|storage)`)
	capacityPattern = regexp.MustCompile(`(\d+)\s*(gb|tb)`)
	genPattern      = regexp.MustCompile(`(\d+(?:nd|rd|th)?\s*gen)`)
)

// ExtractBrand takes the leading token of the title; retailer listings
// almost always front-load the brand.
func ExtractBrand(title string) string {
	parts := strings.Fields(title)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// ExtractModel looks for model-number shapes like "X-T30", "A7" or "EOS80D".
// When nothing matches it falls back to the second title token.
func ExtractModel(title string) string {
	for _, p := range modelPatterns {
		if m := p.FindString(title); m != "" {
			return m
		}
	}
	parts := strings.Fields(title)
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}

// ExtractAttributes pulls size and color plus category-specific details
// (CPU and RAM for computers, storage for phones, shoe sizing).
func ExtractAttributes(title, category string) []string {
	lower := strings.ToLower(title)
	var attrs []string

	if m := sizePattern.FindStringSubmatch(lower); m != nil {
		attrs = append(attrs, m[1]+" inch")
	}
	if m := colorPattern.FindStringSubmatch(lower); m != nil {
		attrs = append(attrs, m[1])
	}

	switch category {
	case "shoes":
		if m := shoeSizePattern.FindStringSubmatch(lower); m != nil {
			attrs = append(attrs, "size "+m[1])
		}
		if strings.Contains(lower, "women") {
			attrs = append(attrs, "women")
		} else if strings.Contains(lower, "men") {
			attrs = append(attrs, "men")
		}
	case "computers":
		if m := cpuPattern.FindStringSubmatch(lower); m != nil {
			attrs = append(attrs, m[1])
		}
		if m := ramPattern.FindStringSubmatch(lower); m != nil {
			attrs = append(attrs, m[1]+"GB RAM")
		}
		if m := storagePattern.FindStringSubmatch(lower); m != nil {
			attrs = append(attrs, m[1]+m[2]+" storage")
		}
	case "phones":
		if m := capacityPattern.FindStringSubmatch(lower); m != nil {
			attrs = append(attrs, m[1]+m[2])
		}
		if m := genPattern.FindStringSubmatch(lower); m != nil {
			attrs = append(attrs, m[1])
		}
	}
	return attrs
}

// BuildQuery assembles a targeted search query from brand, model, and at most
// two attributes. A generic category term backfills queries that end up too
// sparse to be selective.
func BuildQuery(table []Category, brand, model string, attrs []string, category string) string {
	var parts []string
	if brand != "" {
		parts = append(parts, brand)
	}
	if model != "" && model != brand {
		parts = append(parts, model)
	}
	if len(attrs) > 2 {
		attrs = attrs[:2]
	}
	parts = append(parts, attrs...)

	if len(parts) < 3 && category != CategoryGeneral {
		if term := searchTermFor(table, category); term != "" {
			parts = append(parts, term)
		}
	}
	return strings.Join(parts, " ")
}
