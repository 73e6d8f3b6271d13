package canon

import "testing"

func TestCatalogInvariants(t *testing.T) {
	all := Books()
	if len(all) != 66 {
		t.Fatalf("expected 66 books, got %d", len(all))
	}

	seen := make(map[string]bool, len(all))
	for _, b := range all {
		if seen[b.ID] {
			t.Errorf("duplicate book id %s", b.ID)
		}
		seen[b.ID] = true
		if b.Testament != OldTestament && b.Testament != NewTestament {
			t.Errorf("%s: invalid testament %q", b.ID, b.Testament)
		}
		if b.Name == "" || b.APIName == "" {
			t.Errorf("%s: missing name or api name", b.ID)
		}
	}

	ot := BookIDsByTestament(OldTestament)
	nt := BookIDsByTestament(NewTestament)
	if len(ot) != 39 || len(nt) != 27 {
		t.Errorf("testament split = %d OT / %d NT, want 39/27", len(ot), len(nt))
	}
	if all[0].ID != "GEN" || all[len(all)-1].ID != "REV" {
		t.Errorf("canon order broken: first %s last %s", all[0].ID, all[len(all)-1].ID)
	}
}

func TestBookByID(t *testing.T) {
	tests := []struct {
		id     string
		wantOK bool
		name   string
	}{
		{"JHN", true, "John"},
		{"jhn", true, "John"},
		{" 1sa ", true, "1 Samuel"},
		{"XYZ", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		b, ok := BookByID(tt.id)
		if ok != tt.wantOK {
			t.Errorf("BookByID(%q) ok = %v, want %v", tt.id, ok, tt.wantOK)
			continue
		}
		if ok && b.Name != tt.name {
			t.Errorf("BookByID(%q) name = %q, want %q", tt.id, b.Name, tt.name)
		}
	}
}

func TestNormalizeBookID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"john", "JHN", true},
		{"Jn.", "JHN", true},
		{"1 Samuel", "1SA", true},
		{"songofsolomon", "SNG", true},
		{"Song of Songs", "SNG", true},
		{"psalm", "PSA", true},
		{"nonsense", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeBookID(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("NormalizeBookID(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNextBookID(t *testing.T) {
	tests := []struct {
		id     string
		dir    Direction
		want   string
		wantOK bool
	}{
		{"GEN", Next, "EXO", true},
		{"GEN", Prev, "", false},
		{"REV", Next, "", false},
		{"REV", Prev, "JUD", true},
		{"MAL", Next, "MAT", true},
		{"XYZ", Next, "", false},
	}
	for _, tt := range tests {
		got, ok := NextBookID(tt.id, tt.dir)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NextBookID(%s, %v) = %q, %v; want %q, %v", tt.id, tt.dir, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGroupsCoverCanonExactlyOnce(t *testing.T) {
	counts := make(map[string]int)
	for _, g := range Groups() {
		for _, id := range g.BookIDs {
			counts[id]++
			if _, ok := BookByID(id); !ok {
				t.Errorf("group %s references unknown book %s", g.ID, id)
			}
		}
	}
	for _, b := range Books() {
		if counts[b.ID] != 1 {
			t.Errorf("book %s appears in %d groups, want 1", b.ID, counts[b.ID])
		}
	}
}

func TestGroupForBook(t *testing.T) {
	g, ok := GroupForBook("psa")
	if !ok || g.ID != "ot_poetry" {
		t.Fatalf("GroupForBook(psa) = %+v, %v", g, ok)
	}
	if _, ok := GroupForBook("nope"); ok {
		t.Fatal("GroupForBook(nope) should not resolve")
	}
}
