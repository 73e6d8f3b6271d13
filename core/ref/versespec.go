package ref

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// VerseRange is one contiguous run of verses within a chapter.
type VerseRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// VerseSpec is a parsed verse specification like "31-33,46": the canonical
// string form, the flattened verse list (first-seen order, de-duplicated),
// and the ranges that produced it.
type VerseSpec struct {
	Spec   string       `json:"verseSpec"`
	Verses []int        `json:"verses"`
	Ranges []VerseRange `json:"ranges"`
}

// verseEntry is one comma-separated element of a verse spec: a bare verse
// number or an ascending range.
type verseEntry struct {
	Start int  `parser:"@Number"`
	End   *int `parser:"('-' @Number)?"`
}

var verseEntryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+`},
	{Name: "Dash", Pattern: `-`},
})

var verseEntryParser = participle.MustBuild[verseEntry](
	participle.Lexer(verseEntryLexer),
)

// ParseVerseSpec parses a verse specification ("16", "16-18", "31-33,46").
// Whitespace is stripped before splitting. A spec with no entries (empty,
// blank, or only separators) returns (nil, nil): no verses requested.
func ParseVerseSpec(raw string) (*VerseSpec, error) {
	cleaned := strings.Join(strings.Fields(raw), "")
	if cleaned == "" {
		return nil, nil
	}

	var (
		ranges []VerseRange
		verses []int
		seen   = make(map[int]bool)
	)

	for _, part := range strings.Split(cleaned, ",") {
		if part == "" {
			continue
		}

		entry, err := verseEntryParser.ParseString("", part)
		if err != nil {
			return nil, fmt.Errorf("invalid verse range %q: use formats like 16, 16-18, or 31-33,46", part)
		}
		if entry.Start <= 0 {
			return nil, fmt.Errorf("invalid verse number: %s", part)
		}

		end := entry.Start
		if entry.End != nil {
			end = *entry.End
			if end <= 0 {
				return nil, fmt.Errorf("invalid verse range: %s", part)
			}
			if end < entry.Start {
				return nil, fmt.Errorf("verse range must be ascending: %s", part)
			}
		}

		ranges = append(ranges, VerseRange{Start: entry.Start, End: end})
		for v := entry.Start; v <= end; v++ {
			if !seen[v] {
				seen[v] = true
				verses = append(verses, v)
			}
		}
	}

	if len(ranges) == 0 {
		return nil, nil
	}

	return &VerseSpec{
		Spec:   canonicalSpec(ranges),
		Verses: verses,
		Ranges: ranges,
	}, nil
}

// canonicalSpec re-renders ranges in minimal form: degenerate ranges
// collapse to a bare number, entries join with commas.
func canonicalSpec(ranges []VerseRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		if r.Start == r.End {
			parts[i] = fmt.Sprintf("%d", r.Start)
		} else {
			parts[i] = fmt.Sprintf("%d-%d", r.Start, r.End)
		}
	}
	return strings.Join(parts, ",")
}
