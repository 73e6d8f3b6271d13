package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/DailyBread/core/canon"
	"github.com/FocuswithJustin/DailyBread/core/canon/verses"
	"github.com/FocuswithJustin/DailyBread/core/ref"
	"github.com/FocuswithJustin/DailyBread/core/resolve"
	"github.com/FocuswithJustin/DailyBread/core/sqlite"
	"github.com/FocuswithJustin/DailyBread/internal/bibleapi"
	"github.com/FocuswithJustin/DailyBread/internal/botlog"
	"github.com/FocuswithJustin/DailyBread/internal/disambig"
	"github.com/FocuswithJustin/DailyBread/internal/logging"
	"github.com/FocuswithJustin/DailyBread/internal/server"
	"github.com/FocuswithJustin/DailyBread/internal/store"
)

// Version is reported by the root and health endpoints.
const Version = "0.1.0"

// maxQueryLength caps free-text reference input. The longest legitimate
// reference ("The Song of the Three Holy Children 1:1-68" class of thing)
// is far below this.
const maxQueryLength = 200

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BookInfo is one catalog entry with its chapter count and group.
type BookInfo struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	APIName   string          `json:"apiName"`
	Testament canon.Testament `json:"testament"`
	Chapters  int             `json:"chapters"`
	Group     string          `json:"group,omitempty"`
	Aliases   []string        `json:"aliases,omitempty"`
}

// HealthInfo is the liveness response.
type HealthInfo struct {
	Status   string        `json:"status"`
	Version  string        `json:"version"`
	Uptime   string        `json:"uptime"`
	Driver   sqlite.Info   `json:"driver"`
	Events   botlog.Health `json:"events"`
	Sessions int           `json:"sessions"`
}

// ReadyInfo is the readiness response, keyed off the embedded verse index.
type ReadyInfo struct {
	Status      string        `json:"status"`
	IndexDigest string        `json:"indexDigest"`
	Books       int           `json:"books"`
	Verses      verses.Totals `json:"verses"`
	Database    string        `json:"database"`
}

// SessionInfo identifies a pending disambiguation session.
type SessionInfo struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ParseInfo is a parse outcome, plus the disambiguation session when the
// book needs confirmation.
type ParseInfo struct {
	ref.Result
	Session *SessionInfo `json:"session,omitempty"`
}

// ConfirmRequest is the body of POST /v1/parse/confirm.
type ConfirmRequest struct {
	Session string `json:"session"`
	BookID  string `json:"bookId"`
}

// RandomVerseInfo is a picked verse with its fetched text.
type RandomVerseInfo struct {
	verses.Selection
	BookName    string `json:"bookName"`
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

var startTime = time.Now()

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "DailyBread API",
		"version": Version,
		"endpoints": []string{
			"GET /healthz",
			"GET /readyz",
			"GET /v1/books",
			"GET /v1/resolve?q=",
			"GET /v1/parse?q=",
			"POST /v1/parse/confirm",
			"GET /v1/random/:scope",
			"GET /v1/logs",
			"GET /v1/stats",
			"WS /ws/logs",
			"GET /metrics",
		},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(startTime).String(),
		Driver:   sqlite.GetInfo(),
		Events:   s.events.Health(),
		Sessions: s.sessions.Len(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	if err := verses.Verify(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "verse index unavailable")
		return
	}

	database := "disabled"
	if s.db != nil {
		database = "ok"
	}

	respond(w, http.StatusOK, ReadyInfo{
		Status:      "ready",
		IndexDigest: verses.IndexDigest(),
		Books:       canon.Count(),
		Verses:      verses.VerseTotals(),
		Database:    database,
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	catalog := canon.Books()
	infos := make([]BookInfo, 0, len(catalog))
	for i := range catalog {
		b := &catalog[i]
		info := BookInfo{
			ID:        b.ID,
			Name:      b.Name,
			APIName:   b.APIName,
			Testament: b.Testament,
			Chapters:  verses.ChapterCount(b.ID),
			Aliases:   b.Aliases,
		}
		if group, ok := canon.GroupForBook(b.ID); ok {
			info.Group = group.ID
		}
		infos = append(infos, info)
	}

	respondWithTotal(w, http.StatusOK, infos, len(infos))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	query, ok := cleanQuery(w, r)
	if !ok {
		return
	}

	result := s.resolver.Resolve(query, resolve.Options{})

	method := string(result.Method)
	if method == "" {
		method = "none"
	}
	s.metrics.resolveOutcomes.WithLabelValues(string(result.Kind), method).Inc()
	logging.ReferenceResolve(r.Context(), query, string(result.Kind), result.BookID, result.Score)

	respond(w, http.StatusOK, result)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	query, ok := cleanQuery(w, r)
	if !ok {
		return
	}

	result := s.parser.ParseDetailed(query, ref.Options{})
	s.metrics.parseOutcomes.WithLabelValues(string(result.Kind)).Inc()
	logging.ReferenceParse(r.Context(), query, string(result.Kind))
	s.countStat(r, store.CounterReferencesParsed)

	info := ParseInfo{Result: result}
	if result.Kind == ref.KindNeedsConfirmation {
		session, err := s.sessions.Create(r.Context(), result)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "failed to create disambiguation session")
			return
		}
		info.Session = &SessionInfo{ID: session.ID, ExpiresAt: session.ExpiresAt}
		s.metrics.sessionsActive.Set(float64(s.sessions.Len()))
	}

	respond(w, http.StatusOK, info)
}

func (s *Server) handleParseConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	if !server.ValidateContentType(r.Header.Get("Content-Type"), []string{"application/json"}) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
		return
	}

	var req ConfirmRequest
	body := io.LimitReader(r.Body, 4096)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if req.Session == "" || req.BookID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_FIELD", "session and bookId are required")
		return
	}
	// Canonical IDs may start with a digit (1SA, 2JN), so validate against
	// the catalog rather than a generic identifier pattern.
	book, ok := canon.BookByID(req.BookID)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_BOOK_ID", "bookId is not a known book")
		return
	}

	result, err := s.sessions.Resolve(r.Context(), req.Session, book.ID)
	if err != nil {
		if errors.Is(err, disambig.ErrNotFound) {
			respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "disambiguation session not found or expired")
			return
		}
		respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "failed to resolve session")
		return
	}

	s.metrics.parseOutcomes.WithLabelValues(string(result.Kind)).Inc()
	s.metrics.sessionsActive.Set(float64(s.sessions.Len()))
	respond(w, http.StatusOK, ParseInfo{Result: result})
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	scope := strings.TrimPrefix(r.URL.Path, "/v1/random/")
	scope = strings.Trim(scope, "/")
	if scope == "" || strings.Contains(scope, "/") {
		respondError(w, http.StatusBadRequest, "INVALID_SCOPE", "scope must be OT, NT, or a book name")
		return
	}

	var (
		selection verses.Selection
		err       error
	)
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, convErr := strconv.Atoi(offsetParam)
		if convErr != nil {
			respondError(w, http.StatusBadRequest, "INVALID_OFFSET", "offset must be an integer")
			return
		}
		selection, err = verses.VerseAtOffsetInScope(scope, offset)
	} else {
		selection, err = verses.RandomVerseInScope(scope)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_SCOPE", err.Error())
		return
	}

	passage, err := s.bible.FetchVerse(r.Context(), selection.BookID, selection.Chapter, selection.Verse)
	if err != nil {
		s.metrics.upstreamErrors.WithLabelValues("fetch_verse").Inc()
		var statusErr *bibleapi.StatusError
		if errors.As(err, &statusErr) {
			respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", statusErr.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "failed to fetch verse text")
		return
	}

	s.countStat(r, store.CounterVersesSent)

	respond(w, http.StatusOK, RandomVerseInfo{
		Selection:   selection,
		BookName:    passage.BookName,
		Reference:   passage.Reference,
		Text:        passage.Text,
		Translation: passage.TranslationID,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries := s.events.Recent(limit)
	respondWithTotal(w, http.StatusOK, entries, len(entries))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	if s.db == nil {
		respondError(w, http.StatusServiceUnavailable, "STATS_UNAVAILABLE", "persistence is disabled")
		return
	}

	stats, err := s.db.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STATS_ERROR", "failed to load stats")
		return
	}
	respond(w, http.StatusOK, stats)
}

// cleanQuery extracts and sanitizes the q parameter, writing the error
// response itself when the input is unusable.
func cleanQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := server.SanitizeUserInput(r.URL.Query().Get("q"))
	query = server.LimitStringLength(query, maxQueryLength)
	if query == "" {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "q parameter is required")
		return "", false
	}
	return query, true
}

// countStat bumps a usage counter when persistence is enabled. Counter
// failures never affect the request.
func (s *Server) countStat(r *http.Request, name string) {
	if s.db == nil {
		return
	}
	if err := s.db.IncrementCounter(r.Context(), name); err != nil {
		logging.WarnContext(r.Context(), "stat counter update failed", "counter", name, "error", err)
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondWithTotal(w http.ResponseWriter, status int, data interface{}, total int) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
