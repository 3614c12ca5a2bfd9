package analytics

import (
	"regexp"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinTokenLength is the shortest token that is counted.
const MinTokenLength = 2

var tokenPattern = regexp.MustCompile(`\b\w+\b`)

// FrequencyTable counts tokens and remembers the order of first occurrence.
// The zero value is not usable; create tables with NewFrequencyTable.
type FrequencyTable struct {
	counts map[string]int
	order  []string
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[string]int)}
}

// CountText lowercases text, tokenizes it and returns the resulting table.
func CountText(text string) *FrequencyTable {
	table := NewFrequencyTable()
	table.AddText(text)
	return table
}

// FromMap builds a table from an existing mapping. The mapping carries no
// order, so keys are inserted in lexical order.
func FromMap(m map[string]int) *FrequencyTable {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := NewFrequencyTable()
	for _, k := range keys {
		table.Add(k, m[k])
	}
	return table
}

// AddText tokenizes text and counts every token of at least MinTokenLength.
func (t *FrequencyTable) AddText(text string) {
	lower := cases.Lower(language.Und).String(text)
	for _, token := range tokenPattern.FindAllString(lower, -1) {
		if len(token) < MinTokenLength {
			continue
		}
		t.Add(token, 1)
	}
}

// Add increases the count of token by n.
func (t *FrequencyTable) Add(token string, n int) {
	if _, ok := t.counts[token]; !ok {
		t.order = append(t.order, token)
	}
	t.counts[token] += n
}

// Count returns the occurrences of token.
func (t *FrequencyTable) Count(token string) int {
	return t.counts[token]
}

// Len returns the number of distinct tokens.
func (t *FrequencyTable) Len() int {
	return len(t.order)
}

// Keys returns the tokens in order of first occurrence.
func (t *FrequencyTable) Keys() []string {
	return append([]string(nil), t.order...)
}

// Map returns a copy of the counts.
func (t *FrequencyTable) Map() map[string]int {
	m := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		m[k] = v
	}
	return m
}
