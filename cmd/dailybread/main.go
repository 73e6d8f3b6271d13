// Command dailybread is the CLI for the DailyBread reference service.
// It starts the API server and exposes the resolver, parser and random
// verse picker for one-shot terminal use.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/DailyBread/core/canon"
	"github.com/FocuswithJustin/DailyBread/core/canon/verses"
	"github.com/FocuswithJustin/DailyBread/core/ref"
	"github.com/FocuswithJustin/DailyBread/core/resolve"
	"github.com/FocuswithJustin/DailyBread/core/sqlite"
	"github.com/FocuswithJustin/DailyBread/internal/api"
	"github.com/FocuswithJustin/DailyBread/internal/bibleapi"
	"github.com/FocuswithJustin/DailyBread/internal/logging"
)

// CLI defines the command-line interface for dailybread.
var CLI struct {
	LogLevel  string `name:"log-level" env:"DAILYBREAD_LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" env:"DAILYBREAD_LOG_FORMAT" default:"json" help:"Log format (json, text)"`

	Serve   ServeCmd   `cmd:"" help:"Start the REST API server"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a book name to its canonical entry"`
	Parse   ParseCmd   `cmd:"" help:"Parse a free-text scripture reference"`
	Random  RandomCmd  `cmd:"" help:"Pick a random verse"`
	Books   BooksCmd   `cmd:"" help:"List the book catalog"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port        int           `help:"HTTP server port" env:"DAILYBREAD_PORT" default:"8080"`
	DB          string        `help:"SQLite database path (empty disables persistence)" env:"DAILYBREAD_DB" type:"path"`
	Origins     []string      `help:"CORS allowed origins (empty allows all)" env:"DAILYBREAD_ORIGINS"`
	APIKey      string        `name:"api-key" help:"Require this X-API-Key on API routes" env:"DAILYBREAD_API_KEY"`
	RateLimit   int           `name:"rate-limit" help:"Requests per minute per IP (0 disables)" env:"DAILYBREAD_RATE_LIMIT"`
	RateBurst   int           `name:"rate-burst" help:"Rate limit burst size" default:"10"`
	Translation string        `help:"Upstream translation id" env:"DAILYBREAD_TRANSLATION" default:"web"`
	Upstream    string        `help:"bible-api.com base URL override" env:"DAILYBREAD_UPSTREAM"`
	EventLevel  string        `name:"event-level" help:"Minimum bot-event level kept in the ring" default:"info"`
	SessionTTL  time.Duration `name:"session-ttl" help:"Disambiguation session lifetime" default:"25m"`
	TLSCert     string        `name:"tls-cert" help:"TLS certificate file" type:"path"`
	TLSKey      string        `name:"tls-key" help:"TLS private key file" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg := api.Config{
		Port:              c.Port,
		DBPath:            c.DB,
		UpstreamBaseURL:   c.Upstream,
		Translation:       c.Translation,
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.RateBurst,
		AllowedOrigins:    c.Origins,
		EventLevel:        c.EventLevel,
		SessionTTL:        c.SessionTTL,
	}
	if c.APIKey != "" {
		cfg.Auth = api.AuthConfig{Enabled: true, APIKey: c.APIKey}
	}
	if c.TLSCert != "" || c.TLSKey != "" {
		cfg.TLS = api.TLSConfig{Enabled: true, CertFile: c.TLSCert, KeyFile: c.TLSKey}
	}
	return api.Start(cfg)
}

// ResolveCmd resolves a book name from the command line.
type ResolveCmd struct {
	Text []string `arg:"" help:"Book name to resolve (may be several words)"`
}

func (c *ResolveCmd) Run() error {
	resolver := resolve.NewResolver(canon.Books())
	result := resolver.Resolve(strings.Join(c.Text, " "), resolve.Options{})
	return printJSON(result)
}

// ParseCmd parses a full scripture reference from the command line.
type ParseCmd struct {
	Text []string `arg:"" help:"Reference to parse, e.g. 'matt 25:31-33,46'"`
}

func (c *ParseCmd) Run() error {
	parser := ref.NewParser(resolve.NewResolver(canon.Books()), verses.ChapterCount)
	result := parser.ParseDetailed(strings.Join(c.Text, " "), ref.Options{})
	return printJSON(result)
}

// RandomCmd picks a random verse and optionally fetches its text.
type RandomCmd struct {
	Scope   string `arg:"" optional:"" help:"OT, NT, or a book name (empty = whole bible)"`
	Offset  int    `help:"Deterministic verse offset within the scope" default:"-1"`
	NoFetch bool   `name:"no-fetch" help:"Skip fetching the verse text from bible-api.com"`

	Translation string `help:"Upstream translation id" default:"web"`
	Upstream    string `help:"bible-api.com base URL override"`
}

func (c *RandomCmd) Run() error {
	selection, err := pickVerse(c.Scope, c.Offset)
	if err != nil {
		return err
	}

	if c.NoFetch {
		return printJSON(selection)
	}

	client := bibleapi.NewClient(bibleapi.Config{
		BaseURL:     c.Upstream,
		Translation: c.Translation,
	}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	passage, err := client.FetchVerse(ctx, selection.BookID, selection.Chapter, selection.Verse)
	if err != nil {
		return err
	}
	return printJSON(passage)
}

// pickVerse maps an optional scope and offset to a concrete verse. An
// empty scope spans the whole bible; a negative offset means random.
func pickVerse(scope string, offset int) (verses.Selection, error) {
	if scope == "" {
		return wholeBibleVerse(offset)
	}
	if offset >= 0 {
		return verses.VerseAtOffsetInScope(scope, offset)
	}
	return verses.RandomVerseInScope(scope)
}

// wholeBibleVerse treats the two testaments as one contiguous offset
// space, OT first.
func wholeBibleVerse(offset int) (verses.Selection, error) {
	totals := verses.VerseTotals()
	if offset < 0 {
		offset = rand.IntN(totals.All)
	}
	if offset >= totals.OT {
		return verses.VerseAtOffsetInTestament(canon.NewTestament, offset-totals.OT)
	}
	return verses.VerseAtOffsetInTestament(canon.OldTestament, offset)
}

// BooksCmd lists the catalog with chapter counts.
type BooksCmd struct {
	JSON bool `help:"Emit the catalog as JSON"`
}

func (c *BooksCmd) Run() error {
	catalog := canon.Books()

	if c.JSON {
		type entry struct {
			canon.Book
			Chapters int `json:"chapters"`
		}
		entries := make([]entry, 0, len(catalog))
		for _, b := range catalog {
			entries = append(entries, entry{Book: b, Chapters: verses.ChapterCount(b.ID)})
		}
		return printJSON(entries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTESTAMENT\tCHAPTERS")
	for _, b := range catalog {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", b.ID, b.Name, b.Testament, verses.ChapterCount(b.ID))
	}
	return w.Flush()
}

// VersionCmd prints version, driver and index build information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Printf("dailybread version %s\n", api.Version)
	fmt.Printf("sqlite driver: %s (%s)\n", info.DriverName, info.Package)
	fmt.Printf("verse index: %s\n", verses.IndexDigest())
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("dailybread"),
		kong.Description("DailyBread - scripture reference resolver and daily verse service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
