// Package bibleapi fetches passage text for the World English Bible from
// bible-api.com. Responses are cached in memory with a TTL, and transient
// upstream failures are retried with exponential backoff.
package bibleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FocuswithJustin/DailyBread/core/canon"
	"github.com/FocuswithJustin/DailyBread/internal/botlog"
	"github.com/FocuswithJustin/DailyBread/internal/logging"
)

const (
	// DefaultBaseURL is the public bible-api.com endpoint.
	DefaultBaseURL = "https://bible-api.com/"
	// DefaultTranslation is the translation every lookup uses.
	DefaultTranslation = "web"
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 15 * time.Second
	// DefaultCacheTTL is how long a fetched passage stays cached.
	DefaultCacheTTL = 6 * time.Hour
	// DefaultMaxCacheEntries bounds the passage cache.
	DefaultMaxCacheEntries = 250

	userAgent = "DailyBread (bible-api.com client)"
)

// Verse is one verse of a fetched passage.
type Verse struct {
	BookID   string `json:"bookId"`
	BookName string `json:"bookName"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
}

// Passage is a normalized bible-api.com response.
type Passage struct {
	Reference       string  `json:"reference"`
	TranslationID   string  `json:"translationId"`
	TranslationName string  `json:"translationName"`
	TranslationNote string  `json:"translationNote,omitempty"`
	Verses          []Verse `json:"verses"`
	Text            string  `json:"text"`
	URL             string  `json:"url"`
}

// VersePassage is a Passage narrowed to a single requested verse.
type VersePassage struct {
	Passage
	BookID   string `json:"bookId"`
	BookName string `json:"bookName"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
}

// ChapterPassage is a Passage tied to a requested book and chapter.
type ChapterPassage struct {
	Passage
	BookID   string `json:"bookId"`
	BookName string `json:"bookName"`
	Chapter  int    `json:"chapter"`
}

// StatusError is returned for non-retryable (or retry-exhausted) upstream
// HTTP failures.
type StatusError struct {
	StatusCode int
	Reference  string
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("bible-api.com request failed (%d) for %s", e.StatusCode, e.Reference)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Config tunes a Client. Zero fields take defaults.
type Config struct {
	BaseURL         string
	Translation     string
	Timeout         time.Duration
	CacheTTL        time.Duration
	MaxCacheEntries int
	Retry           RetryConfig
}

type cacheEntry struct {
	passage   Passage
	expiresAt time.Time
}

// Client talks to bible-api.com. Safe for concurrent use.
type Client struct {
	baseURL     string
	translation string
	httpClient  *http.Client
	retry       RetryConfig
	cacheTTL    time.Duration
	maxEntries  int
	events      *botlog.Log
	now         func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
	order []string
}

// NewClient builds a Client. The events log may be nil.
func NewClient(cfg Config, events *botlog.Log) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Translation == "" {
		cfg.Translation = DefaultTranslation
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.MaxCacheEntries <= 0 {
		cfg.MaxCacheEntries = DefaultMaxCacheEntries
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		translation: strings.ToLower(cfg.Translation),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		retry:       cfg.Retry.withDefaults(),
		cacheTTL:    cfg.CacheTTL,
		maxEntries:  cfg.MaxCacheEntries,
		events:      events,
		now:         time.Now,
		cache:       make(map[string]cacheEntry),
	}
}

// SetHTTPClient swaps the underlying HTTP client, for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Translation returns the configured translation id.
func (c *Client) Translation() string {
	return c.translation
}

// PassageURL builds the upstream URL for a reference.
func (c *Client) PassageURL(reference string) string {
	return c.baseURL + "/" + url.PathEscape(reference) + "?translation=" + url.QueryEscape(c.translation)
}

// rawPassage mirrors the bible-api.com JSON shape.
type rawPassage struct {
	Reference       string `json:"reference"`
	TranslationID   string `json:"translation_id"`
	TranslationName string `json:"translation_name"`
	TranslationNote string `json:"translation_note"`
	Text            string `json:"text"`
	Verses          []struct {
		BookID   string `json:"book_id"`
		BookName string `json:"book_name"`
		Chapter  int    `json:"chapter"`
		Verse    int    `json:"verse"`
		Text     string `json:"text"`
	} `json:"verses"`
}

func sanitizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", ""))
}

// FetchPassage fetches a free-form reference like "John 3:16-18".
func (c *Client) FetchPassage(ctx context.Context, reference string) (Passage, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Passage{}, fmt.Errorf("reference is required")
	}

	cacheKey := c.translation + ":" + reference
	if passage, ok := c.cached(cacheKey); ok {
		return passage, nil
	}

	reqURL := c.PassageURL(reference)
	started := c.now()

	body, status, err := c.getWithRetry(ctx, reqURL)
	durationMs := strconv.FormatInt(time.Since(started).Milliseconds(), 10)
	if err != nil {
		logging.UpstreamError("fetch_passage", reqURL, err)
		if c.events != nil {
			c.events.RecordError(ctx, "http.bibleapi.fetch.error", err, map[string]string{
				"reference":   reference,
				"duration_ms": durationMs,
			})
		}
		return Passage{}, err
	}

	if c.events != nil {
		c.events.Record(ctx, botlog.LevelInfo, "http.bibleapi.fetch", "", map[string]string{
			"reference":   reference,
			"status":      strconv.Itoa(status),
			"duration_ms": durationMs,
		})
	}

	var raw rawPassage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Passage{}, fmt.Errorf("decoding bible-api.com response for %s: %w", reference, err)
	}

	passage := Passage{
		Reference:       strings.TrimSpace(raw.Reference),
		TranslationID:   strings.ToLower(raw.TranslationID),
		TranslationName: raw.TranslationName,
		TranslationNote: strings.TrimSpace(raw.TranslationNote),
		Text:            sanitizeText(raw.Text),
		URL:             reqURL,
	}
	if passage.Reference == "" {
		passage.Reference = reference
	}
	if passage.TranslationID == "" {
		passage.TranslationID = c.translation
	}
	if passage.TranslationName == "" {
		passage.TranslationName = "World English Bible"
	}
	for _, v := range raw.Verses {
		if v.BookID == "" || v.BookName == "" || v.Chapter <= 0 || v.Verse <= 0 {
			continue
		}
		passage.Verses = append(passage.Verses, Verse{
			BookID:   v.BookID,
			BookName: v.BookName,
			Chapter:  v.Chapter,
			Verse:    v.Verse,
			Text:     sanitizeText(v.Text),
		})
	}

	c.store(cacheKey, passage)
	return passage, nil
}

// FetchVerse fetches one verse by canonical book ID.
func (c *Client) FetchVerse(ctx context.Context, bookID string, chapter, verse int) (VersePassage, error) {
	book, ok := canon.BookByID(bookID)
	if !ok {
		return VersePassage{}, fmt.Errorf("unknown bookId: %s", bookID)
	}
	if chapter <= 0 {
		return VersePassage{}, fmt.Errorf("invalid chapter: %d", chapter)
	}
	if verse <= 0 {
		return VersePassage{}, fmt.Errorf("invalid verse: %d", verse)
	}

	reference := fmt.Sprintf("%s %d:%d", book.APIName, chapter, verse)
	passage, err := c.FetchPassage(ctx, reference)
	if err != nil {
		return VersePassage{}, err
	}

	result := VersePassage{
		Passage:  passage,
		BookID:   book.ID,
		BookName: book.Name,
		Chapter:  chapter,
		Verse:    verse,
	}
	for _, v := range passage.Verses {
		if v.BookID == book.ID && v.Chapter == chapter && v.Verse == verse {
			result.Text = v.Text
			break
		}
	}
	return result, nil
}

// FetchChapter fetches a chapter, optionally narrowed by a verse spec
// like "16-18,20".
func (c *Client) FetchChapter(ctx context.Context, bookID string, chapter int, verseSpec string) (ChapterPassage, error) {
	book, ok := canon.BookByID(bookID)
	if !ok {
		return ChapterPassage{}, fmt.Errorf("unknown bookId: %s", bookID)
	}
	if chapter <= 0 {
		return ChapterPassage{}, fmt.Errorf("invalid chapter: %d", chapter)
	}

	reference := fmt.Sprintf("%s %d", book.APIName, chapter)
	if spec := strings.TrimSpace(verseSpec); spec != "" {
		reference += ":" + spec
	}

	passage, err := c.FetchPassage(ctx, reference)
	if err != nil {
		return ChapterPassage{}, err
	}
	return ChapterPassage{
		Passage:  passage,
		BookID:   book.ID,
		BookName: book.Name,
		Chapter:  chapter,
	}, nil
}

// ClearCache drops all cached passages.
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

func (c *Client) cached(key string) (Passage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || c.now().After(entry.expiresAt) {
		return Passage{}, false
	}
	return entry.passage, true
}

func (c *Client) store(key string, passage Passage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cache[key]; !exists {
		c.order = append(c.order, key)
	}
	c.cache[key] = cacheEntry{passage: passage, expiresAt: c.now().Add(c.cacheTTL)}
	for len(c.cache) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
}

// getWithRetry performs a GET, retrying 408/429/5xx responses and
// transport errors with backoff. It returns the response body and status
// of the final successful attempt.
func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, int, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		body, status, retryAfter, err := c.getOnce(ctx, reqURL)
		if err == nil {
			return body, status, nil
		}
		lastErr = err

		retryable := true
		if se, ok := err.(*StatusError); ok {
			retryable = isRetryableStatus(se.StatusCode)
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		if !retryable || attempt == c.retry.MaxAttempts {
			break
		}

		delay := c.retry.backoffDelay(attempt)
		if retryAfter > delay {
			delay = retryAfter
		}
		logging.WarnContext(ctx, "bibleapi_retry",
			"url", reqURL,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, 0, err
		}
	}

	return nil, 0, lastErr
}

func (c *Client) getOnce(ctx context.Context, reqURL string) (body []byte, status int, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		detail := ""
		if readErr == nil {
			detail = strings.TrimSpace(string(data))
		}
		return nil, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), &StatusError{
			StatusCode: resp.StatusCode,
			Reference:  reqURL,
			Detail:     detail,
		}
	}
	if readErr != nil {
		return nil, resp.StatusCode, 0, readErr
	}
	return data, resp.StatusCode, 0, nil
}
