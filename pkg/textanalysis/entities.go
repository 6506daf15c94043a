package textanalysis

import "regexp"

// Entity patterns. These are coarse heuristics over original-case text, not a
// trained recogniser; false positives are expected.
var (
	peoplePattern = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)

	// The place is capture group 1; the preposition is not reported.
	placePattern = regexp.MustCompile(`\b(?:in|at|from|to)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

	organizationPattern = regexp.MustCompile(
		`\b[A-Z][A-Za-z&]*(?:\s+[A-Z][A-Za-z&]*)*\s+(?:Corporation|Organization|Company|Corp|Inc|LLC|Ltd)\b`)

	datePattern = regexp.MustCompile(`(?i)` +
		`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b` +
		`|\b\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})\b` +
		`|\b(?:today|tomorrow|yesterday|next week|last week)\b`)
)

func extractEntities(text string) Entities {
	return Entities{
		People:        dedup(peoplePattern.FindAllString(text, -1)),
		Places:        dedup(submatches(placePattern, text, 1)),
		Organizations: dedup(organizationPattern.FindAllString(text, -1)),
		Dates:         dedup(datePattern.FindAllString(text, -1)),
	}
}

func submatches(re *regexp.Regexp, text string, group int) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[group])
	}
	return out
}

// dedup drops repeated strings, keeping first-seen order. The result is
// never nil.
func dedup(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
