// Package canon provides the static catalog of the 66 Protestant-canon
// Bible books: canonical IDs, display names, upstream API names,
// testaments, accepted aliases, and canon-order navigation.
package canon

import "strings"

// Testament identifies which testament a book belongs to.
type Testament string

const (
	// OldTestament covers Genesis through Malachi.
	OldTestament Testament = "OT"
	// NewTestament covers Matthew through Revelation.
	NewTestament Testament = "NT"
)

// Book is one catalog entry. ID is the stable uppercase code (e.g. "1SA",
// "JHN"); APIName is the book name the upstream text-lookup service expects.
type Book struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIName   string    `json:"apiName"`
	Testament Testament `json:"testament"`
	Aliases   []string  `json:"aliases"`
}

// books is the catalog in canon order. Order is load-bearing: navigation and
// verse-offset mapping walk this slice front to back.
var books = []Book{
	// Old Testament
	{ID: "GEN", Name: "Genesis", APIName: "Genesis", Testament: OldTestament, Aliases: []string{"gen", "ge"}},
	{ID: "EXO", Name: "Exodus", APIName: "Exodus", Testament: OldTestament, Aliases: []string{"exo", "ex"}},
	{ID: "LEV", Name: "Leviticus", APIName: "Leviticus", Testament: OldTestament, Aliases: []string{"lev", "le"}},
	{ID: "NUM", Name: "Numbers", APIName: "Numbers", Testament: OldTestament, Aliases: []string{"num", "nu", "nm", "nb"}},
	{ID: "DEU", Name: "Deuteronomy", APIName: "Deuteronomy", Testament: OldTestament, Aliases: []string{"deu", "deut", "dt"}},
	{ID: "JOS", Name: "Joshua", APIName: "Joshua", Testament: OldTestament, Aliases: []string{"jos", "josh", "jsh"}},
	{ID: "JDG", Name: "Judges", APIName: "Judges", Testament: OldTestament, Aliases: []string{"jdg", "judg", "jg", "jd"}},
	{ID: "RUT", Name: "Ruth", APIName: "Ruth", Testament: OldTestament, Aliases: []string{"rut", "rth", "ru"}},
	{ID: "1SA", Name: "1 Samuel", APIName: "1 Samuel", Testament: OldTestament, Aliases: []string{"1sa", "1 sam", "1sam", "i sam", "first samuel", "1 samuel"}},
	{ID: "2SA", Name: "2 Samuel", APIName: "2 Samuel", Testament: OldTestament, Aliases: []string{"2sa", "2 sam", "2sam", "ii sam", "second samuel", "2 samuel"}},
	{ID: "1KI", Name: "1 Kings", APIName: "1 Kings", Testament: OldTestament, Aliases: []string{"1ki", "1 kgs", "1kgs", "1 king", "1kings", "i kings", "first kings", "1 kings"}},
	{ID: "2KI", Name: "2 Kings", APIName: "2 Kings", Testament: OldTestament, Aliases: []string{"2ki", "2 kgs", "2kgs", "2 king", "2kings", "ii kings", "second kings", "2 kings"}},
	{ID: "1CH", Name: "1 Chronicles", APIName: "1 Chronicles", Testament: OldTestament, Aliases: []string{"1ch", "1 chr", "1chr", "i chronicles", "first chronicles", "1 chronicles"}},
	{ID: "2CH", Name: "2 Chronicles", APIName: "2 Chronicles", Testament: OldTestament, Aliases: []string{"2ch", "2 chr", "2chr", "ii chronicles", "second chronicles", "2 chronicles"}},
	{ID: "EZR", Name: "Ezra", APIName: "Ezra", Testament: OldTestament, Aliases: []string{"ezr", "ezra", "ez"}},
	{ID: "NEH", Name: "Nehemiah", APIName: "Nehemiah", Testament: OldTestament, Aliases: []string{"neh", "ne"}},
	{ID: "EST", Name: "Esther", APIName: "Esther", Testament: OldTestament, Aliases: []string{"est", "es"}},
	{ID: "JOB", Name: "Job", APIName: "Job", Testament: OldTestament, Aliases: []string{"job", "jb"}},
	{ID: "PSA", Name: "Psalms", APIName: "Psalms", Testament: OldTestament, Aliases: []string{"psa", "ps", "psalm", "psalms", "pslm", "psm"}},
	{ID: "PRO", Name: "Proverbs", APIName: "Proverbs", Testament: OldTestament, Aliases: []string{"pro", "prov", "prv", "pr"}},
	{ID: "ECC", Name: "Ecclesiastes", APIName: "Ecclesiastes", Testament: OldTestament, Aliases: []string{"ecc", "eccl", "qoheleth", "ec"}},
	{ID: "SNG", Name: "Song of Solomon", APIName: "Song of Solomon", Testament: OldTestament, Aliases: []string{"sng", "song", "song of solomon", "songofsolomon", "song of songs", "songofsongs", "songs", "canticles"}},
	{ID: "ISA", Name: "Isaiah", APIName: "Isaiah", Testament: OldTestament, Aliases: []string{"isa", "is"}},
	{ID: "JER", Name: "Jeremiah", APIName: "Jeremiah", Testament: OldTestament, Aliases: []string{"jer", "je", "jr"}},
	{ID: "LAM", Name: "Lamentations", APIName: "Lamentations", Testament: OldTestament, Aliases: []string{"lam", "la"}},
	{ID: "EZK", Name: "Ezekiel", APIName: "Ezekiel", Testament: OldTestament, Aliases: []string{"ezk", "ezek", "eze"}},
	{ID: "DAN", Name: "Daniel", APIName: "Daniel", Testament: OldTestament, Aliases: []string{"dan", "da", "dn"}},
	{ID: "HOS", Name: "Hosea", APIName: "Hosea", Testament: OldTestament, Aliases: []string{"hos", "ho"}},
	{ID: "JOL", Name: "Joel", APIName: "Joel", Testament: OldTestament, Aliases: []string{"jol", "joel", "jl"}},
	{ID: "AMO", Name: "Amos", APIName: "Amos", Testament: OldTestament, Aliases: []string{"amo", "am"}},
	{ID: "OBA", Name: "Obadiah", APIName: "Obadiah", Testament: OldTestament, Aliases: []string{"oba", "ob"}},
	{ID: "JON", Name: "Jonah", APIName: "Jonah", Testament: OldTestament, Aliases: []string{"jon", "jnh"}},
	{ID: "MIC", Name: "Micah", APIName: "Micah", Testament: OldTestament, Aliases: []string{"mic", "mc"}},
	{ID: "NAM", Name: "Nahum", APIName: "Nahum", Testament: OldTestament, Aliases: []string{"nam", "na"}},
	{ID: "HAB", Name: "Habakkuk", APIName: "Habakkuk", Testament: OldTestament, Aliases: []string{"hab", "hb"}},
	{ID: "ZEP", Name: "Zephaniah", APIName: "Zephaniah", Testament: OldTestament, Aliases: []string{"zep", "zeph", "zp"}},
	{ID: "HAG", Name: "Haggai", APIName: "Haggai", Testament: OldTestament, Aliases: []string{"hag", "hg"}},
	{ID: "ZEC", Name: "Zechariah", APIName: "Zechariah", Testament: OldTestament, Aliases: []string{"zec", "zech", "zc"}},
	{ID: "MAL", Name: "Malachi", APIName: "Malachi", Testament: OldTestament, Aliases: []string{"mal", "ml"}},

	// New Testament
	{ID: "MAT", Name: "Matthew", APIName: "Matthew", Testament: NewTestament, Aliases: []string{"mat", "matt", "mt"}},
	{ID: "MRK", Name: "Mark", APIName: "Mark", Testament: NewTestament, Aliases: []string{"mrk", "mark", "mk", "mr"}},
	{ID: "LUK", Name: "Luke", APIName: "Luke", Testament: NewTestament, Aliases: []string{"luk", "luke", "lk"}},
	{ID: "JHN", Name: "John", APIName: "John", Testament: NewTestament, Aliases: []string{"jhn", "john", "jn"}},
	{ID: "ACT", Name: "Acts", APIName: "Acts", Testament: NewTestament, Aliases: []string{"act", "acts", "ac"}},
	{ID: "ROM", Name: "Romans", APIName: "Romans", Testament: NewTestament, Aliases: []string{"rom", "ro", "rm"}},
	{ID: "1CO", Name: "1 Corinthians", APIName: "1 Corinthians", Testament: NewTestament, Aliases: []string{"1co", "1 cor", "1cor", "i cor", "first corinthians", "1 corinthians"}},
	{ID: "2CO", Name: "2 Corinthians", APIName: "2 Corinthians", Testament: NewTestament, Aliases: []string{"2co", "2 cor", "2cor", "ii cor", "second corinthians", "2 corinthians"}},
	{ID: "GAL", Name: "Galatians", APIName: "Galatians", Testament: NewTestament, Aliases: []string{"gal", "ga"}},
	{ID: "EPH", Name: "Ephesians", APIName: "Ephesians", Testament: NewTestament, Aliases: []string{"eph", "ep"}},
	{ID: "PHP", Name: "Philippians", APIName: "Philippians", Testament: NewTestament, Aliases: []string{"php", "phil", "phl"}},
	{ID: "COL", Name: "Colossians", APIName: "Colossians", Testament: NewTestament, Aliases: []string{"col", "co"}},
	{ID: "1TH", Name: "1 Thessalonians", APIName: "1 Thessalonians", Testament: NewTestament, Aliases: []string{"1th", "1 thes", "1thes", "i thess", "1 thessalonians", "first thessalonians"}},
	{ID: "2TH", Name: "2 Thessalonians", APIName: "2 Thessalonians", Testament: NewTestament, Aliases: []string{"2th", "2 thes", "2thes", "ii thess", "2 thessalonians", "second thessalonians"}},
	{ID: "1TI", Name: "1 Timothy", APIName: "1 Timothy", Testament: NewTestament, Aliases: []string{"1ti", "1 tim", "1tim", "i tim", "1 timothy", "first timothy"}},
	{ID: "2TI", Name: "2 Timothy", APIName: "2 Timothy", Testament: NewTestament, Aliases: []string{"2ti", "2 tim", "2tim", "ii tim", "2 timothy", "second timothy"}},
	{ID: "TIT", Name: "Titus", APIName: "Titus", Testament: NewTestament, Aliases: []string{"tit", "ti"}},
	{ID: "PHM", Name: "Philemon", APIName: "Philemon", Testament: NewTestament, Aliases: []string{"phm", "philemon", "philem", "pm"}},
	{ID: "HEB", Name: "Hebrews", APIName: "Hebrews", Testament: NewTestament, Aliases: []string{"heb", "he"}},
	{ID: "JAS", Name: "James", APIName: "James", Testament: NewTestament, Aliases: []string{"jas", "james", "jm", "ja"}},
	{ID: "1PE", Name: "1 Peter", APIName: "1 Peter", Testament: NewTestament, Aliases: []string{"1pe", "1 pet", "1pet", "i pet", "1 peter", "first peter"}},
	{ID: "2PE", Name: "2 Peter", APIName: "2 Peter", Testament: NewTestament, Aliases: []string{"2pe", "2 pet", "2pet", "ii pet", "2 peter", "second peter"}},
	{ID: "1JN", Name: "1 John", APIName: "1 John", Testament: NewTestament, Aliases: []string{"1jn", "1 jn", "1 john", "first john", "i john"}},
	{ID: "2JN", Name: "2 John", APIName: "2 John", Testament: NewTestament, Aliases: []string{"2jn", "2 jn", "2 john", "second john", "ii john"}},
	{ID: "3JN", Name: "3 John", APIName: "3 John", Testament: NewTestament, Aliases: []string{"3jn", "3 jn", "3 john", "third john", "iii john"}},
	{ID: "JUD", Name: "Jude", APIName: "Jude", Testament: NewTestament, Aliases: []string{"jud", "jude"}},
	{ID: "REV", Name: "Revelation", APIName: "Revelation", Testament: NewTestament, Aliases: []string{"rev", "re", "revelation"}},
}

var (
	booksByID        map[string]*Book
	bookIDByAlias    map[string]string
	bookIDsByTestOrd map[Testament][]string
)

func init() {
	booksByID = make(map[string]*Book, len(books))
	bookIDByAlias = make(map[string]string)
	bookIDsByTestOrd = map[Testament][]string{
		OldTestament: nil,
		NewTestament: nil,
	}

	for i := range books {
		b := &books[i]
		booksByID[b.ID] = b
		bookIDsByTestOrd[b.Testament] = append(bookIDsByTestOrd[b.Testament], b.ID)

		aliases := make([]string, 0, len(b.Aliases)+3)
		aliases = append(aliases, b.ID, b.Name, b.APIName)
		aliases = append(aliases, b.Aliases...)
		for _, alias := range aliases {
			registerAlias(alias, b.ID)
		}
	}
}

func registerAlias(alias, bookID string) {
	normalized := normalizeAlias(alias)
	if normalized == "" {
		return
	}
	// Keep first match; avoids accidental overwrites by ambiguous short aliases.
	if _, ok := bookIDByAlias[normalized]; !ok {
		bookIDByAlias[normalized] = bookID
	}
	compact := strings.ReplaceAll(normalized, " ", "")
	if compact != normalized {
		if _, ok := bookIDByAlias[compact]; !ok {
			bookIDByAlias[compact] = bookID
		}
	}
}

func normalizeAlias(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, ".", "")
	return strings.Join(strings.Fields(value), " ")
}

// Books returns the catalog in canon order. The returned slice is a copy;
// the catalog itself is immutable.
func Books() []Book {
	out := make([]Book, len(books))
	copy(out, books)
	return out
}

// Count returns the number of books in the catalog.
func Count() int {
	return len(books)
}

// BookByID looks up a book by its canonical ID, case-insensitively.
func BookByID(id string) (*Book, bool) {
	b, ok := booksByID[strings.ToUpper(strings.TrimSpace(id))]
	return b, ok
}

// NormalizeBookID maps an exact alias (ID, name, API name, or declared
// shorthand) to a canonical book ID. It does no fuzzy matching; use
// core/resolve for tolerant resolution.
func NormalizeBookID(input string) (string, bool) {
	normalized := normalizeAlias(input)
	if normalized == "" {
		return "", false
	}
	if id, ok := bookIDByAlias[normalized]; ok {
		return id, true
	}
	compact := strings.ReplaceAll(normalized, " ", "")
	id, ok := bookIDByAlias[compact]
	return id, ok
}

// BookIDsByTestament returns book IDs for a testament in canon order.
func BookIDsByTestament(t Testament) []string {
	ids := bookIDsByTestOrd[Testament(strings.ToUpper(strings.TrimSpace(string(t))))]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Direction selects which neighbor NextBookID walks to.
type Direction int

const (
	// Next walks forward in canon order.
	Next Direction = iota
	// Prev walks backward in canon order.
	Prev
)

// NextBookID returns the neighboring book in canon order, or false at
// either end of the canon (Genesis has no predecessor, Revelation no
// successor).
func NextBookID(bookID string, dir Direction) (string, bool) {
	id := strings.ToUpper(strings.TrimSpace(bookID))
	for i := range books {
		if books[i].ID != id {
			continue
		}
		j := i + 1
		if dir == Prev {
			j = i - 1
		}
		if j < 0 || j >= len(books) {
			return "", false
		}
		return books[j].ID, true
	}
	return "", false
}
