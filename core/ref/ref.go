// Package ref parses free-text scripture references ("matt 25:31-33,46",
// "Ps 23") into canonical (book, chapter, verse-set) triples. Book names go
// through core/resolve, so parsing has three outcomes rather than two:
// success, parse error, or a confirmation request carrying ranked book
// candidates for interactive disambiguation.
package ref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DailyBread/core/canon"
	"github.com/FocuswithJustin/DailyBread/core/resolve"
)

// Kind discriminates parse outcomes.
type Kind string

const (
	// KindOK is a fully resolved reference.
	KindOK Kind = "ok"
	// KindNeedsConfirmation means the book name needs user confirmation;
	// the result carries the resolver output and display suggestions.
	KindNeedsConfirmation Kind = "needs_confirmation"
	// KindError is a malformed or out-of-range reference.
	KindError Kind = "error"
)

// Reference is a fully parsed scripture reference. Constructed per parse,
// immutable, handed to text-fetching collaborators via APIName/Chapter/
// VerseSpec.
type Reference struct {
	BookID       string `json:"bookId"`
	BookName     string `json:"bookName"`
	APIName      string `json:"apiName"`
	Chapter      int    `json:"chapter"`
	VerseSpec    string `json:"verseSpec,omitempty"`
	Verses       []int  `json:"verses,omitempty"`
	ChapterWhole bool   `json:"chapterWhole"`
	Display      string `json:"reference"`
}

// String returns the display form, e.g. "Matthew 25:31-33,46".
func (r *Reference) String() string {
	return r.Display
}

// Result is the tagged outcome of ParseDetailed. Kind selects the shape:
// Parsed for ok; Resolver, Suggestions, BookPart, Chapter and VerseSpecRaw
// for needs_confirmation (enough for a disambiguation flow to resume the
// parse later); Message for error.
type Result struct {
	Kind            Kind            `json:"kind"`
	NormalizedInput string          `json:"normalizedInput"`
	Message         string          `json:"message,omitempty"`
	BookPart        string          `json:"bookPart,omitempty"`
	Chapter         int             `json:"chapter,omitempty"`
	VerseSpecRaw    string          `json:"verseSpecRaw,omitempty"`
	Resolver        *resolve.Result `json:"resolver,omitempty"`
	Suggestions     []string        `json:"suggestions,omitempty"`
	Parsed          *Reference      `json:"parsed,omitempty"`
}

// Options tunes a parse call.
type Options struct {
	// MaxCandidates caps resolver candidates carried on confirmation
	// results; 0 means resolve.DefaultMaxCandidates.
	MaxCandidates int
}

// ChapterCounter reports how many chapters a book has, 0 when unknown.
// Unknown books skip chapter-bound validation.
type ChapterCounter func(bookID string) int

// Parser splits reference strings and resolves their book part. Build once
// and share; it is immutable and safe for concurrent use.
type Parser struct {
	resolver     *resolve.Resolver
	chapterCount ChapterCounter
}

// NewParser returns a Parser using the given resolver and chapter-count
// source. A nil chapterCount disables chapter-bound validation.
func NewParser(resolver *resolve.Resolver, chapterCount ChapterCounter) *Parser {
	if chapterCount == nil {
		chapterCount = func(string) int { return 0 }
	}
	return &Parser{resolver: resolver, chapterCount: chapterCount}
}

// trailingChapter captures the last run of digits as the chapter, with an
// optional ":verse-spec" tail. Book names never end in digits except
// through this chapter marker, so anchoring at the end is reliable.
var trailingChapter = regexp.MustCompile(`(\d+)(?::([\d,\-\s]+))?\s*$`)

// normalizeInput prepares a raw reference: trim, collapse whitespace,
// unify unicode dashes, strip periods.
func normalizeInput(input string) string {
	value := strings.Join(strings.Fields(input), " ")
	value = strings.NewReplacer("–", "-", "—", "-").Replace(value)
	return strings.ReplaceAll(value, ".", "")
}

// parts is the structural split of a reference before book resolution.
type parts struct {
	normalized     string
	bookPart       string
	chapter        int
	verseSpecRaw   string
	assumedChapter bool
}

// splitParts performs the structural split. It returns a non-nil Result
// when the input is structurally malformed.
func splitParts(input string) (parts, *Result) {
	normalized := normalizeInput(input)
	if normalized == "" {
		return parts{}, &Result{
			Kind:            KindError,
			NormalizedInput: normalized,
			Message:         "Reference is required.",
		}
	}

	m := trailingChapter.FindStringSubmatchIndex(normalized)
	if m == nil {
		// Book-only input ("john", "1 samuel") assumes chapter 1. A colon
		// with no parseable tail ("john 3:") is malformed, not book-only.
		if strings.Contains(normalized, ":") {
			return parts{}, &Result{
				Kind:            KindError,
				NormalizedInput: normalized,
				Message:         fmt.Sprintf("Unable to parse reference %q. Try formats like \"John 3:16\", \"Ps 23\", or \"Matt 25:31-33,46\".", normalized),
			}
		}
		return parts{
			normalized:     normalized,
			bookPart:       normalized,
			chapter:        1,
			assumedChapter: true,
		}, nil
	}

	chapterText := normalized[m[2]:m[3]]
	chapter, err := strconv.Atoi(chapterText)
	if err != nil || chapter <= 0 {
		return parts{}, &Result{
			Kind:            KindError,
			NormalizedInput: normalized,
			Message:         fmt.Sprintf("Invalid chapter number: %s", chapterText),
		}
	}

	bookPart := strings.TrimSpace(normalized[:m[0]])
	if bookPart == "" {
		return parts{}, &Result{
			Kind:            KindError,
			NormalizedInput: normalized,
			Message:         fmt.Sprintf("Missing book name in reference %q. Example: \"John 3:16\".", normalized),
		}
	}

	verseSpecRaw := ""
	if m[4] >= 0 {
		verseSpecRaw = normalized[m[4]:m[5]]
	}

	return parts{
		normalized:   normalized,
		bookPart:     bookPart,
		chapter:      chapter,
		verseSpecRaw: verseSpecRaw,
	}, nil
}

// ParseDetailed parses a reference and returns a tagged Result. It never
// panics or returns a Go error: malformed input is KindError, ambiguous
// book names are KindNeedsConfirmation.
func (p *Parser) ParseDetailed(input string, opts Options) Result {
	split, errResult := splitParts(input)
	if errResult != nil {
		return *errResult
	}

	resolved := p.resolver.Resolve(split.bookPart, resolve.Options{
		MaxCandidates: opts.MaxCandidates,
	})

	if resolved.Kind != resolve.KindResolved {
		return Result{
			Kind:            KindNeedsConfirmation,
			NormalizedInput: split.normalized,
			BookPart:        split.bookPart,
			Chapter:         split.chapter,
			VerseSpecRaw:    split.verseSpecRaw,
			Resolver:        &resolved,
			Suggestions:     BookSuggestions(resolved.Candidates),
		}
	}

	return p.finish(split, resolved)
}

// finish validates chapter bounds and the verse spec for a resolved book,
// assembling the final Reference. The disambiguation flow re-enters here
// through ParseConfirmed once a user picks a candidate.
func (p *Parser) finish(split parts, resolved resolve.Result) Result {
	book := resolved.Book
	if book == nil {
		return Result{
			Kind:            KindError,
			NormalizedInput: split.normalized,
			Message:         fmt.Sprintf("Book not found for id %s.", resolved.BookID),
		}
	}

	if maxChapters := p.chapterCount(book.ID); maxChapters > 0 && split.chapter > maxChapters {
		plural := "s"
		if maxChapters == 1 {
			plural = ""
		}
		return Result{
			Kind:            KindError,
			NormalizedInput: split.normalized,
			Message:         fmt.Sprintf("%s only has %d chapter%s.", book.Name, maxChapters, plural),
		}
	}

	spec, err := ParseVerseSpec(split.verseSpecRaw)
	if err != nil {
		return Result{
			Kind:            KindError,
			NormalizedInput: split.normalized,
			Message:         err.Error(),
		}
	}

	parsed := &Reference{
		BookID:       book.ID,
		BookName:     book.Name,
		APIName:      book.APIName,
		Chapter:      split.chapter,
		ChapterWhole: spec == nil,
		Display:      fmt.Sprintf("%s %d", book.Name, split.chapter),
	}
	if spec != nil {
		parsed.VerseSpec = spec.Spec
		parsed.Verses = spec.Verses
		parsed.Display = fmt.Sprintf("%s %d:%s", book.Name, split.chapter, spec.Spec)
	}

	return Result{
		Kind:            KindOK,
		NormalizedInput: split.normalized,
		Parsed:          parsed,
		Resolver:        &resolved,
	}
}

// ParseConfirmed resumes a pending parse with a user-chosen book. The
// chapter and raw verse spec come from the needs_confirmation Result that
// prompted the confirmation.
func (p *Parser) ParseConfirmed(pending Result, bookID string) Result {
	book, ok := canon.BookByID(bookID)
	if !ok {
		return Result{
			Kind:            KindError,
			NormalizedInput: pending.NormalizedInput,
			Message:         fmt.Sprintf("Book not found for id %s.", bookID),
		}
	}

	split := parts{
		normalized:   pending.NormalizedInput,
		bookPart:     pending.BookPart,
		chapter:      pending.Chapter,
		verseSpecRaw: pending.VerseSpecRaw,
	}
	resolved := resolve.Result{
		Kind:   resolve.KindResolved,
		BookID: book.ID,
		Book:   book,
		Score:  1,
		Method: resolve.MethodAlias,
	}
	return p.finish(split, resolved)
}

// Parse is the convenience wrapper for call sites without a disambiguation
// surface: anything but KindOK becomes an error with a human-readable
// message, including "Did you mean" suggestions when candidates exist.
func (p *Parser) Parse(input string) (*Reference, error) {
	detailed := p.ParseDetailed(input, Options{})
	switch detailed.Kind {
	case KindOK:
		return detailed.Parsed, nil
	case KindNeedsConfirmation:
		suffix := ""
		if len(detailed.Suggestions) > 0 {
			suffix = fmt.Sprintf(" Did you mean: %s?", strings.Join(detailed.Suggestions, ", "))
		}
		return nil, fmt.Errorf("I couldn't confidently resolve %q.%s", detailed.BookPart, suffix)
	default:
		if detailed.Message == "" {
			return nil, fmt.Errorf("invalid reference")
		}
		return nil, fmt.Errorf("%s", detailed.Message)
	}
}

// BookSuggestions renders candidates as display strings like
// "1 Samuel (1SA)", de-duplicated by book ID in ranked order.
func BookSuggestions(candidates []resolve.Candidate) []string {
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		id := strings.ToUpper(c.BookID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		book := c.Book
		if book == nil {
			if b, ok := canon.BookByID(id); ok {
				book = b
			} else {
				continue
			}
		}
		out = append(out, fmt.Sprintf("%s (%s)", book.Name, book.ID))
	}
	return out
}
