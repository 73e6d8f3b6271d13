package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/DailyBread/core/canon"
)

// miniUSFX builds a dump with every canonical book so buildIndex's
// completeness check passes. Each book gets one chapter, with Genesis
// carrying the interesting markers.
func miniUSFX(t *testing.T) []byte {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<usfx>`)
	for _, book := range canon.Books() {
		if book.ID == "GEN" {
			b.WriteString(`<book id="GEN"><c id="1"/><p><v id="1"/><v id="2"/></p><c id="2"/><p><v id="1"/><v id="2-3"/></p></book>`)
			continue
		}
		b.WriteString(`<book id="` + book.ID + `"><c id="1"/><p><v id="1"/></p></book>`)
	}
	// Apocryphal books are skipped, not an error.
	b.WriteString(`<book id="TOB"><c id="1"/><p><v id="1"/></p></book>`)
	b.WriteString(`</usfx>`)
	return []byte(b.String())
}

func TestBuildIndex(t *testing.T) {
	idx, err := buildIndex(miniUSFX(t), "web")
	if err != nil {
		t.Fatalf("buildIndex: %v", err)
	}

	if idx.TranslationID != "web" {
		t.Errorf("translation = %s, want web", idx.TranslationID)
	}
	if len(idx.Books) != canon.Count() {
		t.Fatalf("books = %d, want %d", len(idx.Books), canon.Count())
	}
	if _, ok := idx.Books["TOB"]; ok {
		t.Error("apocryphal book should be skipped")
	}

	gen := idx.Books["GEN"]
	if gen.Testament != "OT" {
		t.Errorf("GEN testament = %s, want OT", gen.Testament)
	}
	if gen.Chapters["1"] != 2 {
		t.Errorf("GEN 1 = %d verses, want 2", gen.Chapters["1"])
	}
	// Chapter 2 has one plain verse plus the "2-3" bridge.
	if gen.Chapters["2"] != 3 {
		t.Errorf("GEN 2 = %d verses, want 3", gen.Chapters["2"])
	}
}

func TestMarkersInOrder(t *testing.T) {
	doc, err := xmlquery.Parse(strings.NewReader(
		`<book id="GEN"><c id="1"/><p><v id="1"/><v id="2"/></p><c id="2"/><p><v id="1"/></p></book>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	book := xmlquery.FindOne(doc, "//book")

	var got []string
	for _, m := range markersInOrder(book) {
		got = append(got, m.Data+m.SelectAttr("id"))
	}
	want := []string{"c1", "v1", "v2", "c2", "v1"}
	if len(got) != len(want) {
		t.Fatalf("markers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("markers = %v, want %v", got, want)
		}
	}
}

func TestBuildIndexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not usfx", `<osis><div type="book"/></osis>`},
		{"verse before chapter", `<usfx><book id="GEN"><v id="1"/></book></usfx>`},
		{"bad chapter id", `<usfx><book id="GEN"><c id="x"/><v id="1"/></book></usfx>`},
		{"bad verse id", `<usfx><book id="GEN"><c id="1"/><v id="x"/></book></usfx>`},
		{"incomplete canon", `<usfx><book id="GEN"><c id="1"/><v id="1"/></book></usfx>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildIndex([]byte(tt.input), "web"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestVerseSpan(t *testing.T) {
	tests := []struct {
		id      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{" 12 ", 1, false},
		{"17-18", 2, false},
		{"1-5", 5, false},
		{"5-1", 0, true},
		{"0", 0, true},
		{"x", 0, true},
		{"1-x", 0, true},
	}

	for _, tt := range tests {
		got, err := verseSpan(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("verseSpan(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("verseSpan(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte(`{"translationId":"web"}`)
	compressed, err := compress(payload)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	r, err := xz.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("xz reader: %v", err)
	}
	decompressed, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Errorf("round trip mismatch: %q", decompressed)
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Errorf("no args exit = %d, want 1", code)
	}
	if code := run([]string{"--help"}, &stdout, &stderr); code != 0 {
		t.Errorf("--help exit = %d, want 0", code)
	}
	if code := run([]string{"--bogus"}, &stdout, &stderr); code != 1 {
		t.Errorf("unknown flag exit = %d, want 1", code)
	}
}
