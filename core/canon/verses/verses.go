// Package verses provides the generated per-chapter verse-count index for
// the WEB translation, used for chapter-bound validation, verse totals,
// and random verse selection.
//
// The index is embedded as an xz-compressed JSON file produced by
// tools/versecounts-gen. It is decompressed and validated once, on first
// use; the BLAKE3 digest of the decompressed payload identifies the index
// build in diagnostics.
package verses

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/DailyBread/core/canon"
)

//go:embed data/verse_counts.json.xz
var compressedIndex []byte

// indexFile mirrors the JSON layout written by tools/versecounts-gen.
type indexFile struct {
	TranslationID string                `json:"translationId"`
	Books         map[string]bookRecord `json:"books"`
}

type bookRecord struct {
	Testament string         `json:"testament"`
	Chapters  map[string]int `json:"chapters"`
}

// book holds the decoded, validated counts for one book. Chapter N's verse
// count is chapters[N-1].
type book struct {
	chapters []int
	total    int
}

type index struct {
	books  map[string]*book
	digest string
	totals Totals
}

// Totals aggregates verse counts across the canon.
type Totals struct {
	All    int            `json:"all"`
	OT     int            `json:"ot"`
	NT     int            `json:"nt"`
	ByBook map[string]int `json:"byBook"`
}

var (
	loadOnce sync.Once
	loaded   *index
	loadErr  error
)

// load decodes the embedded index exactly once.
func load() (*index, error) {
	loadOnce.Do(func() {
		loaded, loadErr = decode(compressedIndex)
	})
	return loaded, loadErr
}

func decode(compressed []byte) (*index, error) {
	r, err := xz.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("opening verse count index: %w", err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing verse count index: %w", err)
	}

	sum := blake3.Sum256(payload)

	var file indexFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decoding verse count index: %w", err)
	}
	if file.TranslationID != "web" {
		return nil, fmt.Errorf("unexpected translation id %q in verse count index", file.TranslationID)
	}

	idx := &index{
		books:  make(map[string]*book, len(file.Books)),
		digest: hex.EncodeToString(sum[:]),
		totals: Totals{ByBook: make(map[string]int, len(file.Books))},
	}

	for bookID, record := range file.Books {
		meta, ok := canon.BookByID(bookID)
		if !ok {
			return nil, fmt.Errorf("verse count index references unknown book %s", bookID)
		}

		chapters := make([]int, len(record.Chapters))
		for key, count := range record.Chapters {
			n, err := strconv.Atoi(key)
			if err != nil || n < 1 || n > len(chapters) {
				return nil, fmt.Errorf("%s: chapter key %q out of range 1..%d", bookID, key, len(chapters))
			}
			if count <= 0 {
				return nil, fmt.Errorf("%s chapter %d: verse count must be positive, got %d", bookID, n, count)
			}
			if chapters[n-1] != 0 {
				return nil, fmt.Errorf("%s: duplicate chapter %d", bookID, n)
			}
			chapters[n-1] = count
		}

		b := &book{chapters: chapters}
		for _, count := range chapters {
			b.total += count
		}

		idx.books[meta.ID] = b
		idx.totals.ByBook[meta.ID] = b.total
		idx.totals.All += b.total
		switch meta.Testament {
		case canon.OldTestament:
			idx.totals.OT += b.total
		case canon.NewTestament:
			idx.totals.NT += b.total
		}
	}

	return idx, nil
}

// mustLoad is used by the read accessors. The index is embedded at build
// time, so a decode failure means a broken build, not a runtime condition.
func mustLoad() *index {
	idx, err := load()
	if err != nil {
		panic(fmt.Sprintf("verses: embedded index invalid: %v", err))
	}
	return idx
}

// Verify decodes the embedded index and reports any validation error.
// Call it at startup to fail fast instead of panicking on first lookup.
func Verify() error {
	_, err := load()
	return err
}

// IndexDigest returns the BLAKE3 digest (hex) of the decompressed index
// payload, identifying the generated data build.
func IndexDigest() string {
	return mustLoad().digest
}

// ChapterCount returns the number of chapters in a book, or 0 when the
// index has no data for it ("skip bound validation").
func ChapterCount(bookID string) int {
	id, ok := canon.NormalizeBookID(bookID)
	if !ok {
		return 0
	}
	b, ok := mustLoad().books[id]
	if !ok {
		return 0
	}
	return len(b.chapters)
}

// VerseCount returns the number of verses in a chapter, or 0 when unknown.
func VerseCount(bookID string, chapter int) int {
	id, ok := canon.NormalizeBookID(bookID)
	if !ok {
		return 0
	}
	b, ok := mustLoad().books[id]
	if !ok || chapter < 1 || chapter > len(b.chapters) {
		return 0
	}
	return b.chapters[chapter-1]
}

// VerseTotals returns aggregate verse counts. The ByBook map is shared;
// callers must not mutate it.
func VerseTotals() Totals {
	return mustLoad().totals
}
