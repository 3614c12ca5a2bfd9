// Package analytics tokenizes page text and derives word statistics.
//
// Tokens are runs of ASCII word characters found by the regular expression
// \b\w+\b after lowercasing. Tokens shorter than two characters are ignored.
// Counts keep the order in which each token first appeared so that ranking
// ties are resolved the same way on every run.
//
// Total word count is always the sum of the frequency counts. A whitespace
// split of paragraph text would give a different number on the same page and
// is not used anywhere in this module.
package analytics
