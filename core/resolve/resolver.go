// Package resolve turns free-text book names ("matt", "1sam", "song of
// songs") into canonical book IDs. Exact alias hits resolve immediately;
// everything else goes through fuzzy scoring with an ambiguity-aware
// confirmation path so close calls are surfaced instead of guessed.
package resolve

import (
	"sort"
	"strings"

	"github.com/FocuswithJustin/DailyBread/core/canon"
)

// DefaultMaxCandidates caps candidate lists returned for confirmation.
const DefaultMaxCandidates = 5

// Thresholds gating auto-resolution. These are deliberately conservative:
// they trade false auto-resolves against confirmation-prompt friction, and
// the comparison operators are part of the contract ("2 john" must never
// silently resolve to "1 john").
const (
	autoResolveMinScore = 0.92
	ambiguousScoreDelta = 0.06
	ambiguityFloor      = 0.75
)

// Ordinal mismatch penalties. An input carrying a 1/2/3 ordinal almost
// certainly names an ordinal book, so non-matching candidates are pushed
// well below the auto-resolve floor.
const (
	ordinalMismatchFactor = 0.35
	ordinalMissingFactor  = 0.15
)

// Kind discriminates resolver outcomes.
type Kind string

const (
	// KindResolved is a single confident match.
	KindResolved Kind = "resolved"
	// KindNeedsConfirmation carries ranked candidates for the caller to
	// confirm interactively.
	KindNeedsConfirmation Kind = "needs_confirmation"
	// KindNotFound means nothing matched at all.
	KindNotFound Kind = "not_found"
)

// Method records which matching path produced a result.
type Method string

const (
	// MethodAlias is an exact hit in the alias index.
	MethodAlias Method = "alias"
	// MethodFuzzy is similarity scoring over the whole catalog.
	MethodFuzzy Method = "fuzzy"
)

// Reason explains non-resolved outcomes.
type Reason string

const (
	// ReasonEmpty: input normalized to nothing.
	ReasonEmpty Reason = "empty"
	// ReasonNoCandidates: no book scored above zero.
	ReasonNoCandidates Reason = "no_candidates"
	// ReasonAmbiguousAlias: an alias maps to several books ("sam").
	ReasonAmbiguousAlias Reason = "ambiguous_alias"
	// ReasonAmbiguousFuzzy: top two fuzzy scores are too close to call.
	ReasonAmbiguousFuzzy Reason = "ambiguous_fuzzy"
	// ReasonLowConfidence: best fuzzy score below the auto-resolve floor.
	ReasonLowConfidence Reason = "low_confidence"
)

// Candidate is one scored book, produced per Resolve call.
type Candidate struct {
	BookID string      `json:"bookId"`
	Book   *canon.Book `json:"book"`
	Score  float64     `json:"score"`
	Method Method      `json:"method"`
}

// Result is the tagged outcome of a Resolve call. Kind selects which
// fields are meaningful: BookID/Book/Score/Method for resolved,
// Candidates/Reason for needs_confirmation and not_found. Input and
// NormalizedInput are always set for diagnostics.
type Result struct {
	Kind            Kind        `json:"kind"`
	Input           string      `json:"input"`
	NormalizedInput string      `json:"normalizedInput"`
	BookID          string      `json:"bookId,omitempty"`
	Book            *canon.Book `json:"book,omitempty"`
	Score           float64     `json:"score,omitempty"`
	Method          Method      `json:"method,omitempty"`
	Reason          Reason      `json:"reason,omitempty"`
	Candidates      []Candidate `json:"candidates"`
}

// Options tunes a Resolve call.
type Options struct {
	// MaxCandidates caps the candidate list; 0 means DefaultMaxCandidates.
	MaxCandidates int
}

// scoredBook holds the precomputed matching surface for one catalog entry.
type scoredBook struct {
	book       *canon.Book
	ordinal    int
	normalized []string
}

// Resolver matches free text against a book catalog. Build it once with
// NewResolver; it is immutable afterward and safe for concurrent use.
type Resolver struct {
	books      []scoredBook
	aliasIndex map[string][]string
	// ordinalBases holds normalized base names that exist in ordinal
	// variants ("samuel" from "1 Samuel"/"2 Samuel", "john" from
	// "1 John".."3 John"). An input ordinal pointing at one of these is
	// meaningful and must never be discarded.
	ordinalBases map[string]bool
}

// NewResolver builds a resolver over the given catalog, constructing the
// alias index and per-book normalized matching surfaces up front.
func NewResolver(books []canon.Book) *Resolver {
	r := &Resolver{
		aliasIndex:   make(map[string][]string),
		ordinalBases: make(map[string]bool),
	}

	for i := range books {
		b := &books[i]
		if ord := bookOrdinal(b.Name); ord != 0 {
			if base := NormalizeQuery(leadingOrdinal.ReplaceAllString(b.Name, "")); base != "" {
				r.ordinalBases[base] = true
			}
		}
		surface := make([]string, 0, len(b.Aliases)+3)
		for _, raw := range rawAliases(b) {
			normalized := NormalizeQuery(raw)
			if normalized == "" {
				continue
			}
			surface = append(surface, normalized)
			r.addAlias(normalized, b.ID)
		}
		r.books = append(r.books, scoredBook{
			book:       b,
			ordinal:    bookOrdinal(b.Name),
			normalized: surface,
		})
	}

	// Common shorthand inputs that are ambiguous without an ordinal. They
	// map to several books on purpose so callers prompt for confirmation
	// instead of silently picking one.
	r.addAlias(NormalizeQuery("sam"), "1SA")
	r.addAlias(NormalizeQuery("sam"), "2SA")
	r.addAlias(NormalizeQuery("samuel"), "1SA")
	r.addAlias(NormalizeQuery("samuel"), "2SA")

	return r
}

func rawAliases(b *canon.Book) []string {
	out := make([]string, 0, len(b.Aliases)+3)
	out = append(out, b.ID, b.Name, b.APIName)
	return append(out, b.Aliases...)
}

func (r *Resolver) addAlias(normalized, bookID string) {
	if normalized == "" {
		return
	}
	r.insertAlias(normalized, bookID)
	compact := strings.ReplaceAll(normalized, " ", "")
	if compact != normalized {
		r.insertAlias(compact, bookID)
	}
}

func (r *Resolver) insertAlias(key, bookID string) {
	for _, existing := range r.aliasIndex[key] {
		if existing == bookID {
			return
		}
	}
	r.aliasIndex[key] = append(r.aliasIndex[key], bookID)
}

func (r *Resolver) bookByID(id string) *canon.Book {
	for i := range r.books {
		if r.books[i].book.ID == id {
			return r.books[i].book
		}
	}
	return nil
}

// Resolve matches input against the catalog. It never returns an error:
// empty or hopeless input is KindNotFound, ambiguity is
// KindNeedsConfirmation with ranked candidates.
func (r *Resolver) Resolve(input string, opts Options) Result {
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	normalized := NormalizeQuery(input)
	if normalized == "" {
		return Result{
			Kind:            KindNotFound,
			Input:           input,
			NormalizedInput: normalized,
			Reason:          ReasonEmpty,
			Candidates:      []Candidate{},
		}
	}

	if ids, ok := r.aliasIndex[normalized]; ok && len(ids) > 0 {
		return r.resolveAlias(input, normalized, ids, maxCandidates)
	}

	// Ordinal-noise fallback: "1 genesis" carries an ordinal no catalog
	// book can claim (there is no 2 Genesis), so the ordinal is treated as
	// noise and the remainder matched exactly. The fallback never fires
	// when the remainder belongs to an ordinal family ("2 jhn" stays on
	// the fuzzy path, so the ordinal keeps its full weight there).
	if result, ok := r.resolveOrdinalNoise(input, normalized, maxCandidates); ok {
		return result
	}

	return r.resolveFuzzy(input, normalized, maxCandidates)
}

func (r *Resolver) resolveOrdinalNoise(input, normalized string, maxCandidates int) (Result, bool) {
	tokens := strings.Fields(normalized)
	if parseLeadingOrdinal(tokens) == 0 || len(tokens) < 2 {
		return Result{}, false
	}

	remainder := strings.Join(tokens[1:], " ")
	ids := r.aliasIndex[remainder]
	if len(ids) == 0 {
		ids = r.aliasIndex[strings.ReplaceAll(remainder, " ", "")]
	}
	if len(ids) != 1 {
		return Result{}, false
	}

	book := r.bookByID(ids[0])
	if book == nil || bookOrdinal(book.Name) != 0 {
		return Result{}, false
	}
	if r.ordinalBases[NormalizeQuery(book.Name)] {
		return Result{}, false
	}

	return r.resolveAlias(input, normalized, ids, maxCandidates), true
}

func (r *Resolver) resolveAlias(input, normalized string, ids []string, maxCandidates int) Result {
	if len(ids) == 1 {
		book := r.bookByID(ids[0])
		return Result{
			Kind:            KindResolved,
			Input:           input,
			NormalizedInput: normalized,
			BookID:          ids[0],
			Book:            book,
			Score:           1,
			Method:          MethodAlias,
			Candidates:      []Candidate{{BookID: ids[0], Book: book, Score: 1, Method: MethodAlias}},
		}
	}

	// Ambiguous alias: all candidates share a fixed sub-certain score so
	// the caller confirms rather than trusts.
	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		book := r.bookByID(id)
		if book == nil {
			continue
		}
		candidates = append(candidates, Candidate{BookID: id, Book: book, Score: 0.86, Method: MethodAlias})
	}
	sortCandidates(candidates)
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	score := 0.0
	if len(candidates) > 0 {
		score = candidates[0].Score
	}
	return Result{
		Kind:            KindNeedsConfirmation,
		Input:           input,
		NormalizedInput: normalized,
		Score:           score,
		Method:          MethodAlias,
		Reason:          ReasonAmbiguousAlias,
		Candidates:      candidates,
	}
}

func (r *Resolver) resolveFuzzy(input, normalized string, maxCandidates int) Result {
	inputOrdinal := parseLeadingOrdinal(strings.Fields(normalized))

	scored := make([]Candidate, 0, len(r.books))
	for i := range r.books {
		sb := &r.books[i]

		best := 0.0
		for _, candidate := range sb.normalized {
			if s := scoreNormalized(normalized, candidate); s > best {
				best = s
				if best >= 1 {
					break
				}
			}
		}

		if inputOrdinal != 0 && sb.ordinal != 0 && inputOrdinal != sb.ordinal {
			best *= ordinalMismatchFactor
		} else if inputOrdinal != 0 && sb.ordinal == 0 {
			best *= ordinalMissingFactor
		}

		scored = append(scored, Candidate{
			BookID: sb.book.ID,
			Book:   sb.book,
			Score:  clamp01(best),
			Method: MethodFuzzy,
		})
	}
	sortCandidates(scored)

	top := scored[0]
	if top.Score <= 0 {
		return Result{
			Kind:            KindNotFound,
			Input:           input,
			NormalizedInput: normalized,
			Reason:          ReasonNoCandidates,
			Candidates:      []Candidate{},
		}
	}

	candidates := make([]Candidate, 0, maxCandidates)
	for _, c := range scored {
		if len(candidates) >= maxCandidates || c.Score <= 0 {
			break
		}
		candidates = append(candidates, c)
	}

	second := Candidate{}
	hasSecond := len(scored) > 1 && scored[1].Score > 0
	if hasSecond {
		second = scored[1]
	}
	ambiguous := hasSecond &&
		top.Score >= ambiguityFloor &&
		second.Score >= ambiguityFloor &&
		top.Score-second.Score <= ambiguousScoreDelta

	if top.Score >= autoResolveMinScore && !ambiguous {
		return Result{
			Kind:            KindResolved,
			Input:           input,
			NormalizedInput: normalized,
			BookID:          top.BookID,
			Book:            top.Book,
			Score:           top.Score,
			Method:          MethodFuzzy,
			Candidates:      candidates,
		}
	}

	reason := ReasonLowConfidence
	if ambiguous {
		reason = ReasonAmbiguousFuzzy
	}
	return Result{
		Kind:            KindNeedsConfirmation,
		Input:           input,
		NormalizedInput: normalized,
		Score:           top.Score,
		Method:          MethodFuzzy,
		Reason:          reason,
		Candidates:      candidates,
	}
}

// sortCandidates orders by score descending, then book ID ascending for a
// stable tie-break.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].BookID < candidates[j].BookID
	})
}
