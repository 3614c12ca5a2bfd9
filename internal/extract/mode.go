package extract

import (
	"fmt"
	"strings"
)

// Mode selects how strictly a page is cleaned and filtered.
type Mode int

const (
	// ModeContent strips non-content markup and filters administrative links.
	ModeContent Mode = iota
	// ModeGeneric keeps everything.
	ModeGeneric
)

// String returns the name used in configuration files and flags.
func (m Mode) String() string {
	switch m {
	case ModeContent:
		return "content"
	case ModeGeneric:
		return "generic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "content" or "generic". The empty string means content.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "content", "strict":
		return ModeContent, nil
	case "generic", "client":
		return ModeGeneric, nil
	default:
		return 0, fmt.Errorf("unknown extraction mode %q: expected content or generic", s)
	}
}

// WordSource selects which text feeds the word frequency table.
type WordSource int

const (
	// WordSourceBody counts every word in the body text.
	WordSourceBody WordSource = iota
	// WordSourceHeadings counts only heading text and the content bound to it.
	WordSourceHeadings
)
