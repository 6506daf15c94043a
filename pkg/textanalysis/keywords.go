package textanalysis

import (
	"sort"
	"unicode/utf8"
)

const (
	maxKeywords      = 10
	minKeywordLength = 4
)

// keywords ranks tokens of at least minKeywordLength runes that are not stop
// words by descending frequency. Ties keep the order of first occurrence.
func (t *tables) keywords(tokens []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minKeywordLength || t.stopWords.has(tok) {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	if order == nil {
		return []string{}
	}
	return order
}
