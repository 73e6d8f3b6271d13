// Command versecounts-gen builds the embedded verse-count index from a
// USFX XML dump of the World English Bible.
//
// Usage:
//
//	versecounts-gen --input eng-web.usfx.xml --output core/canon/verses/data/verse_counts.json.xz
//
// The output is the xz-compressed JSON consumed by core/canon/verses.
// The BLAKE3 digest of the uncompressed payload is printed so a data
// refresh can be traced back to its source dump.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/DailyBread/core/canon"
)

// indexFile is the JSON layout read back by core/canon/verses.
type indexFile struct {
	TranslationID string                `json:"translationId"`
	Books         map[string]bookCounts `json:"books"`
}

type bookCounts struct {
	Testament string         `json:"testament"`
	Chapters  map[string]int `json:"chapters"`
}

// bookExpr selects the book elements of a USFX dump.
var bookExpr = xpath.MustCompile("//book")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the generator and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	input := ""
	output := ""
	translation := "web"

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--input", "-i":
			if i+1 < len(args) {
				input = args[i+1]
				i++
			}
		case "--output", "-o":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "--translation", "-t":
			if i+1 < len(args) {
				translation = args[i+1]
				i++
			}
		case "--help", "-h":
			printUsageTo(stdout)
			return 0
		default:
			fmt.Fprintf(stderr, "unknown argument: %s\n", args[i])
			printUsageTo(stderr)
			return 1
		}
	}

	if input == "" || output == "" {
		printUsageTo(stderr)
		return 1
	}

	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	idx, err := buildIndex(data, translation)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	payload, err := json.Marshal(idx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	digest := blake3.Sum256(payload)

	compressed, err := compress(payload)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := os.WriteFile(output, compressed, 0644); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "wrote %s: %d books, %d bytes compressed\n", output, len(idx.Books), len(compressed))
	fmt.Fprintf(stdout, "index digest: %s\n", hex.EncodeToString(digest[:]))
	return 0
}

// buildIndex walks the USFX books and counts verse markers per chapter.
// Books outside the 66-book canon (the WEB dump carries apocrypha) are
// skipped.
func buildIndex(data []byte, translationID string) (*indexFile, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing USFX: %w", err)
	}

	bookNodes := xmlquery.QuerySelectorAll(doc, bookExpr)
	if len(bookNodes) == 0 {
		return nil, fmt.Errorf("no <book> elements found; input does not look like USFX")
	}

	idx := &indexFile{
		TranslationID: translationID,
		Books:         make(map[string]bookCounts),
	}

	for _, bookNode := range bookNodes {
		usfmID := strings.TrimSpace(bookNode.SelectAttr("id"))
		meta, ok := canon.BookByID(usfmID)
		if !ok {
			continue
		}

		chapters := make(map[string]int)
		chapter := 0
		for _, marker := range markersInOrder(bookNode) {
			switch marker.Data {
			case "c":
				n, err := strconv.Atoi(strings.TrimSpace(marker.SelectAttr("id")))
				if err != nil || n < 1 {
					return nil, fmt.Errorf("%s: bad chapter marker id %q", meta.ID, marker.SelectAttr("id"))
				}
				chapter = n
			case "v":
				if chapter == 0 {
					return nil, fmt.Errorf("%s: verse marker before first chapter marker", meta.ID)
				}
				span, err := verseSpan(marker.SelectAttr("id"))
				if err != nil {
					return nil, fmt.Errorf("%s chapter %d: %w", meta.ID, chapter, err)
				}
				chapters[strconv.Itoa(chapter)] += span
			}
		}

		if len(chapters) == 0 {
			return nil, fmt.Errorf("%s: no chapters found", meta.ID)
		}
		idx.Books[meta.ID] = bookCounts{
			Testament: string(meta.Testament),
			Chapters:  chapters,
		}
	}

	if len(idx.Books) != canon.Count() {
		return nil, fmt.Errorf("found %d canonical books, want %d", len(idx.Books), canon.Count())
	}
	return idx, nil
}

// markersInOrder walks the book subtree depth-first and returns its <c>
// and <v> marker elements in document order. Each verse marker must be
// attributed to the chapter marker that precedes it in the document, so
// the traversal cannot use an XPath union, which yields results per
// branch rather than per position.
func markersInOrder(book *xmlquery.Node) []*xmlquery.Node {
	var markers []*xmlquery.Node
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode && (child.Data == "c" || child.Data == "v") {
				markers = append(markers, child)
			}
			walk(child)
		}
	}
	walk(book)
	return markers
}

// verseSpan returns how many verses a marker covers. Bridged verses use
// a range id like "17-18".
func verseSpan(id string) (int, error) {
	id = strings.TrimSpace(id)
	if start, end, ok := strings.Cut(id, "-"); ok {
		a, errA := strconv.Atoi(start)
		b, errB := strconv.Atoi(end)
		if errA != nil || errB != nil || a < 1 || b < a {
			return 0, fmt.Errorf("bad verse range id %q", id)
		}
		return b - a + 1, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("bad verse marker id %q", id)
	}
	return 1, nil
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating xz writer: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing index: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing xz stream: %w", err)
	}
	return buf.Bytes(), nil
}

func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, "Usage: versecounts-gen --input <usfx.xml> --output <verse_counts.json.xz> [--translation web]")
}
