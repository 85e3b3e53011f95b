// Package calendar turns planner output into calendar entries and exports them.
package calendar

import (
	"strings"
)

const (
	FallbackTask    = "Check your plan"
	FallbackDetails = "Review your farming plan"
	FallbackTip     = "Contact support if you need help understanding this entry"

	fallbackDateLen = 10
)

// Entry is one calendar line. Date is kept as written by the planner.
// Fallback marks entries substituted for lines that did not parse.
type Entry struct {
	Date     string
	Task     string
	Details  string
	Tip      string
	Fallback bool
}

// Extract parses every non-empty line of text as "<date>: <task> - <details> - <tip>".
// It never fails: a line that does not match yields a fallback entry, so the
// result has exactly one entry per non-empty line, in order.
func Extract(text string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, ParseLine(line))
	}
	return entries
}

// ParseLine parses a single line; see Extract.
func ParseLine(line string) Entry {
	line = strings.TrimSpace(line)

	date, rest, ok := strings.Cut(line, ":")
	if !ok {
		return fallback(line)
	}
	parts := strings.SplitN(rest, "-", 3)
	if len(parts) != 3 {
		return fallback(line)
	}

	return Entry{
		Date:    strings.TrimSpace(date),
		Task:    strings.TrimSpace(parts[0]),
		Details: strings.TrimSpace(parts[1]),
		Tip:     strings.TrimSpace(parts[2]),
	}
}

func fallback(line string) Entry {
	date := []rune(line)
	if len(date) > fallbackDateLen {
		date = date[:fallbackDateLen]
	}
	return Entry{
		Date:     strings.TrimSpace(string(date)),
		Task:     FallbackTask,
		Details:  FallbackDetails,
		Tip:      FallbackTip,
		Fallback: true,
	}
}

// Fallbacks counts substituted entries.
func Fallbacks(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Fallback {
			n++
		}
	}
	return n
}
