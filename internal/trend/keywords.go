package trend

import "strings"

// ExtractKeywords lower-cases and trims product names, drops empties and
// duplicates (first occurrence wins), then appends additional keywords under
// the same rule.
func ExtractKeywords(names []string, additional []string) []string {
	seen := make(map[string]struct{}, len(names)+len(additional))
	keywords := make([]string, 0, len(names)+len(additional))

	add := func(raw string) {
		k := strings.ToLower(strings.TrimSpace(raw))
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}

	for _, n := range names {
		add(n)
	}
	for _, n := range additional {
		add(n)
	}
	return keywords
}
