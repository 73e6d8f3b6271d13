package resolve

import (
	"regexp"
	"strings"
)

// ordinalTokens maps ordinal words and roman numerals people commonly type
// for 1/2/3 books onto their digit form, token by token.
var ordinalTokens = map[string]string{
	"first":  "1",
	"1st":    "1",
	"one":    "1",
	"second": "2",
	"2nd":    "2",
	"two":    "2",
	"third":  "3",
	"3rd":    "3",
	"three":  "3",
	"i":      "1",
	"ii":     "2",
	"iii":    "3",
}

var (
	unicodeDashes  = strings.NewReplacer("–", "-", "—", "-")
	digitThenAlpha = regexp.MustCompile(`(\d)([a-z])`)
	alphaThenDigit = regexp.MustCompile(`([a-z])(\d)`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	leadingOrdinal = regexp.MustCompile(`^([123])\s+`)
)

// NormalizeQuery normalizes free-text book input for matching: lowercase,
// unify dashes, split digit/letter boundaries ("1sam" -> "1 sam",
// "ps23" -> "ps 23"), collapse punctuation and whitespace, and map ordinal
// tokens ("first", "ii") to digits.
func NormalizeQuery(input string) string {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return ""
	}

	value = unicodeDashes.Replace(value)
	value = digitThenAlpha.ReplaceAllString(value, "$1 $2")
	value = alphaThenDigit.ReplaceAllString(value, "$1 $2")
	value = nonAlnum.ReplaceAllString(value, " ")

	tokens := strings.Fields(value)
	for i, token := range tokens {
		if digit, ok := ordinalTokens[token]; ok {
			tokens[i] = digit
		}
	}
	return strings.Join(tokens, " ")
}

// parseLeadingOrdinal reports the 1/2/3 ordinal a normalized query starts
// with, or 0 when it has none.
func parseLeadingOrdinal(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	switch tokens[0] {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	}
	return 0
}

// bookOrdinal reports the leading ordinal of a book's display name
// ("2 Samuel" -> 2), or 0 for books without one.
func bookOrdinal(name string) int {
	m := leadingOrdinal.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0
	}
	return int(m[1][0] - '0')
}
