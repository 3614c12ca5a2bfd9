package analytics

import (
	"sort"
	"unicode/utf8"
)

const (
	// TopWordsLimit is the number of entries returned by Stats.TopWords.
	TopWordsLimit = 5

	// WordsPerMinute is the reading speed used for ReadingMinutes.
	WordsPerMinute = 200
)

// WordCount is a token and its number of occurrences.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Stats summarizes a frequency table.
type Stats struct {
	// TotalWords is the sum of all counts.
	TotalWords int `json:"totalWords"`
	// UniqueWords is the number of distinct tokens.
	UniqueWords int `json:"uniqueWords"`
	// AverageWordLength is the mean length in characters of the distinct
	// tokens. It is 0 when there are none.
	AverageWordLength float64 `json:"averageWordLength"`
	// TopWords holds up to five tokens by descending count. Equal counts
	// keep the table order.
	TopWords []WordCount `json:"topWords"`
	// ReadingMinutes is ceil(TotalWords / 200).
	ReadingMinutes int `json:"readingMinutes"`
}

// Summarize computes Stats for table.
func Summarize(table *FrequencyTable) Stats {
	stats := Stats{TopWords: []WordCount{}}
	if table == nil || table.Len() == 0 {
		return stats
	}

	entries := make([]WordCount, 0, table.Len())
	totalChars := 0
	for _, word := range table.order {
		count := table.counts[word]
		stats.TotalWords += count
		totalChars += utf8.RuneCountInString(word)
		entries = append(entries, WordCount{Word: word, Count: count})
	}

	stats.UniqueWords = len(entries)
	stats.AverageWordLength = float64(totalChars) / float64(stats.UniqueWords)
	stats.ReadingMinutes = ReadingMinutes(stats.TotalWords)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > TopWordsLimit {
		entries = entries[:TopWordsLimit]
	}
	stats.TopWords = entries
	return stats
}

// SummarizeMap computes Stats for a bare mapping such as
// PageRecord.WordFrequency. Ties are ordered by key.
func SummarizeMap(m map[string]int) Stats {
	return Summarize(FromMap(m))
}

// SummarizeText tokenizes text and computes its Stats.
func SummarizeText(text string) Stats {
	return Summarize(CountText(text))
}

// ReadingMinutes returns the whole minutes needed to read totalWords words.
func ReadingMinutes(totalWords int) int {
	if totalWords <= 0 {
		return 0
	}
	return (totalWords + WordsPerMinute - 1) / WordsPerMinute
}
