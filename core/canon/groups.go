package canon

import "strings"

// Group is a traditional grouping of books used for navigation menus.
type Group struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	BookIDs []string `json:"bookIds"`
}

var groups = []Group{
	{ID: "ot_pentateuch", Label: "OT: Pentateuch", BookIDs: []string{"GEN", "EXO", "LEV", "NUM", "DEU"}},
	{ID: "ot_history", Label: "OT: History", BookIDs: []string{"JOS", "JDG", "RUT", "1SA", "2SA", "1KI", "2KI", "1CH", "2CH", "EZR", "NEH", "EST"}},
	{ID: "ot_poetry", Label: "OT: Poetry & Wisdom", BookIDs: []string{"JOB", "PSA", "PRO", "ECC", "SNG"}},
	{ID: "ot_major_prophets", Label: "OT: Major Prophets", BookIDs: []string{"ISA", "JER", "LAM", "EZK", "DAN"}},
	{ID: "ot_minor_prophets", Label: "OT: Minor Prophets", BookIDs: []string{"HOS", "JOL", "AMO", "OBA", "JON", "MIC", "NAM", "HAB", "ZEP", "HAG", "ZEC", "MAL"}},
	{ID: "nt_gospels", Label: "NT: Gospels", BookIDs: []string{"MAT", "MRK", "LUK", "JHN"}},
	{ID: "nt_history", Label: "NT: History", BookIDs: []string{"ACT"}},
	{ID: "nt_paul", Label: "NT: Paul's Letters", BookIDs: []string{"ROM", "1CO", "2CO", "GAL", "EPH", "PHP", "COL", "1TH", "2TH", "1TI", "2TI", "TIT", "PHM"}},
	{ID: "nt_general", Label: "NT: General Letters", BookIDs: []string{"HEB", "JAS", "1PE", "2PE", "1JN", "2JN", "3JN", "JUD"}},
	{ID: "nt_apocalypse", Label: "NT: Apocalypse", BookIDs: []string{"REV"}},
}

var (
	groupsByID    map[string]*Group
	groupIDByBook map[string]string
)

func init() {
	groupsByID = make(map[string]*Group, len(groups))
	groupIDByBook = make(map[string]string, len(books))
	for i := range groups {
		g := &groups[i]
		groupsByID[g.ID] = g
		for _, bookID := range g.BookIDs {
			groupIDByBook[bookID] = g.ID
		}
	}
}

// Groups returns all canon groups in display order.
func Groups() []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

// GroupByID returns a group by its identifier.
func GroupByID(id string) (*Group, bool) {
	g, ok := groupsByID[strings.ToLower(strings.TrimSpace(id))]
	return g, ok
}

// GroupForBook returns the group containing the given book.
func GroupForBook(bookID string) (*Group, bool) {
	id, ok := groupIDByBook[strings.ToUpper(strings.TrimSpace(bookID))]
	if !ok {
		return nil, false
	}
	return groupsByID[id], true
}
