package verses

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/FocuswithJustin/DailyBread/core/canon"
)

// Selection identifies a single verse picked from the index.
type Selection struct {
	BookID  string `json:"bookId"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
}

// VerseAtOffset maps a 0-based offset into a book's verses, in chapter
// order, to a concrete (chapter, verse) pair. Offsets give deterministic
// selection for tests and the HTTP API's offset override.
func VerseAtOffset(bookID string, offset int) (Selection, error) {
	book, ok := canon.BookByID(bookID)
	if !ok {
		return Selection{}, fmt.Errorf("unknown book: %s", bookID)
	}
	rec, ok := mustLoad().books[book.ID]
	if !ok {
		return Selection{}, fmt.Errorf("no verse counts for book %s", book.ID)
	}
	if offset < 0 || offset >= rec.total {
		return Selection{}, fmt.Errorf("verse offset %d out of range for %s (0..%d)", offset, book.ID, rec.total-1)
	}

	remaining := offset
	for i, count := range rec.chapters {
		if remaining < count {
			return Selection{BookID: book.ID, Chapter: i + 1, Verse: remaining + 1}, nil
		}
		remaining -= count
	}
	// Unreachable: offset was bounds-checked against the book total.
	return Selection{}, fmt.Errorf("verse offset mapping failed for %s", book.ID)
}

// VerseAtOffsetInTestament maps an offset into a whole testament, walking
// books in canon order.
func VerseAtOffsetInTestament(t canon.Testament, offset int) (Selection, error) {
	totals := mustLoad().totals
	limit := totals.OT
	if t == canon.NewTestament {
		limit = totals.NT
	}
	if offset < 0 || offset >= limit {
		return Selection{}, fmt.Errorf("verse offset %d out of range for %s (0..%d)", offset, t, limit-1)
	}

	remaining := offset
	for _, bookID := range canon.BookIDsByTestament(t) {
		total := totals.ByBook[bookID]
		if remaining < total {
			return VerseAtOffset(bookID, remaining)
		}
		remaining -= total
	}
	return Selection{}, fmt.Errorf("verse offset mapping failed for testament %s", t)
}

// VerseAtOffsetInScope resolves scope ("OT", "NT", a book ID, or a book
// alias) and maps the offset within it.
func VerseAtOffsetInScope(scope string, offset int) (Selection, error) {
	upper := strings.ToUpper(strings.TrimSpace(scope))
	if upper == string(canon.OldTestament) || upper == string(canon.NewTestament) {
		return VerseAtOffsetInTestament(canon.Testament(upper), offset)
	}
	bookID, ok := canon.NormalizeBookID(scope)
	if !ok {
		return Selection{}, fmt.Errorf("unknown scope: %s", scope)
	}
	return VerseAtOffset(bookID, offset)
}

// RandomVerseInScope picks a uniformly random verse from the scope.
func RandomVerseInScope(scope string) (Selection, error) {
	upper := strings.ToUpper(strings.TrimSpace(scope))
	totals := mustLoad().totals

	switch upper {
	case string(canon.OldTestament):
		return VerseAtOffsetInTestament(canon.OldTestament, rand.IntN(totals.OT))
	case string(canon.NewTestament):
		return VerseAtOffsetInTestament(canon.NewTestament, rand.IntN(totals.NT))
	}

	bookID, ok := canon.NormalizeBookID(scope)
	if !ok {
		return Selection{}, fmt.Errorf("unknown scope: %s", scope)
	}
	total := totals.ByBook[bookID]
	if total <= 0 {
		return Selection{}, fmt.Errorf("no verse counts for book %s", bookID)
	}
	return VerseAtOffset(bookID, rand.IntN(total))
}
