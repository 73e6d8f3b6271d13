package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/DailyBread/internal/botlog"
)

// fakeUpstream serves a minimal bible-api.com response for any verse
// reference it receives.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reference := strings.TrimPrefix(r.URL.Path, "/")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reference":        reference,
			"translation_id":   "web",
			"translation_name": "World English Bible",
			"text":             "In the beginning, God created the heavens and the earth.",
			"verses": []map[string]interface{}{
				{
					"book_id":   "GEN",
					"book_name": "Genesis",
					"chapter":   1,
					"verse":     1,
					"text":      "In the beginning, God created the heavens and the earth.\n",
				},
			},
		})
	}))
}

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()

	upstream := fakeUpstream(t)
	t.Cleanup(upstream.Close)

	cfg := Config{
		Port:   0,
		DBPath: filepath.Join(t.TempDir(), "test.db"),

		UpstreamBaseURL: upstream.URL,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string) (int, APIResponse) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

// dataMap re-decodes the Data field into a map for field assertions.
func dataMap(t *testing.T, body APIResponse) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(body.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return m
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/healthz")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !body.Success {
		t.Fatal("expected success")
	}
	data := dataMap(t, body)
	if data["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", data["status"])
	}
	if data["version"] != Version {
		t.Errorf("version = %v, want %s", data["version"], Version)
	}
}

func TestReadyz(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/readyz")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["status"] != "ready" {
		t.Errorf("status = %v, want ready", data["status"])
	}
	if data["indexDigest"] == "" || data["indexDigest"] == nil {
		t.Error("expected non-empty index digest")
	}
	if data["database"] != "ok" {
		t.Errorf("database = %v, want ok", data["database"])
	}
	if data["books"].(float64) != 66 {
		t.Errorf("books = %v, want 66", data["books"])
	}
}

func TestBooks(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/v1/books")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body.Meta.Total != 66 {
		t.Fatalf("total = %d, want 66", body.Meta.Total)
	}

	raw, _ := json.Marshal(body.Data)
	var books []BookInfo
	if err := json.Unmarshal(raw, &books); err != nil {
		t.Fatalf("decode books: %v", err)
	}
	if books[0].ID != "GEN" {
		t.Errorf("first book = %s, want GEN", books[0].ID)
	}
	if books[0].Chapters != 50 {
		t.Errorf("Genesis chapters = %d, want 50", books[0].Chapters)
	}
	if books[0].Group != "ot_pentateuch" {
		t.Errorf("Genesis group = %s, want ot_pentateuch", books[0].Group)
	}
}

func TestResolve(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/v1/resolve?q=matt")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["kind"] != "resolved" {
		t.Fatalf("kind = %v, want resolved", data["kind"])
	}
	if data["bookId"] != "MAT" {
		t.Errorf("bookId = %v, want MAT", data["bookId"])
	}
}

func TestResolveMissingQuery(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/v1/resolve")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body.Error == nil || body.Error.Code != "MISSING_QUERY" {
		t.Errorf("error = %+v, want MISSING_QUERY", body.Error)
	}
}

func TestParseOK(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/v1/parse?q=matt+25:31-33,46")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["kind"] != "ok" {
		t.Fatalf("kind = %v, want ok", data["kind"])
	}
	parsed := data["parsed"].(map[string]interface{})
	if parsed["bookId"] != "MAT" {
		t.Errorf("bookId = %v, want MAT", parsed["bookId"])
	}
	if parsed["reference"] != "Matthew 25:31-33,46" {
		t.Errorf("reference = %v, want Matthew 25:31-33,46", parsed["reference"])
	}
}

func TestParseConfirmFlow(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/v1/parse?q=sam+3:16")
	if status != http.StatusOK {
		t.Fatalf("parse status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["kind"] != "needs_confirmation" {
		t.Fatalf("kind = %v, want needs_confirmation", data["kind"])
	}
	session, ok := data["session"].(map[string]interface{})
	if !ok {
		t.Fatal("expected session info on confirmation result")
	}
	sessionID := session["id"].(string)
	if sessionID == "" {
		t.Fatal("expected non-empty session id")
	}

	confirmBody := strings.NewReader(`{"session":"` + sessionID + `","bookId":"1SA"}`)
	resp, err := http.Post(ts.URL+"/v1/parse/confirm", "application/json", confirmBody)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d, want 200", resp.StatusCode)
	}

	var confirmed APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirmed); err != nil {
		t.Fatalf("decode confirm: %v", err)
	}
	confirmedData := dataMap(t, confirmed)
	if confirmedData["kind"] != "ok" {
		t.Fatalf("confirmed kind = %v, want ok", confirmedData["kind"])
	}
	parsed := confirmedData["parsed"].(map[string]interface{})
	if parsed["bookId"] != "1SA" {
		t.Errorf("confirmed bookId = %v, want 1SA", parsed["bookId"])
	}

	// The session is consumed; a second confirm must fail.
	resp2, err := http.Post(ts.URL+"/v1/parse/confirm", "application/json",
		strings.NewReader(`{"session":"`+sessionID+`","bookId":"1SA"}`))
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("second confirm status = %d, want 404", resp2.StatusCode)
	}
}

func TestParseConfirmValidation(t *testing.T) {
	_, ts := newTestServer(t, nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{"wrong content type", "text/plain", `{}`, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"bad json", "application/json", `{`, http.StatusBadRequest, "INVALID_BODY"},
		{"missing fields", "application/json", `{}`, http.StatusBadRequest, "MISSING_FIELD"},
		{"bad book id", "application/json", `{"session":"x","bookId":"../../etc"}`, http.StatusBadRequest, "INVALID_BOOK_ID"},
		{"unknown session", "application/json", `{"session":"nope","bookId":"1SA"}`, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"ordinal id passes validation", "application/json", `{"session":"nope","bookId":"2sa"}`, http.StatusNotFound, "SESSION_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/parse/confirm", tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body APIResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == nil || body.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", body.Error, tt.wantCode)
			}
		})
	}
}

func TestRandomDeterministicOffset(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/v1/random/GEN?offset=0")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["bookId"] != "GEN" {
		t.Errorf("bookId = %v, want GEN", data["bookId"])
	}
	if data["chapter"].(float64) != 1 || data["verse"].(float64) != 1 {
		t.Errorf("selection = %v:%v, want 1:1", data["chapter"], data["verse"])
	}
	if !strings.Contains(data["text"].(string), "In the beginning") {
		t.Errorf("unexpected text: %v", data["text"])
	}
}

func TestRandomInvalidScope(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, path := range []string{"/v1/random/", "/v1/random/NOPE", "/v1/random/GEN?offset=abc", "/v1/random/GEN?offset=999999"} {
		status, body := getJSON(t, ts.URL+path)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, status)
		}
		if body.Error == nil {
			t.Errorf("%s: expected error body", path)
		}
	}
}

func TestStats(t *testing.T) {
	_, ts := newTestServer(t, nil)

	// Parse twice so the counter has something to show.
	getJSON(t, ts.URL+"/v1/parse?q=john+3:16")
	getJSON(t, ts.URL+"/v1/parse?q=gen+1:1")

	status, body := getJSON(t, ts.URL+"/v1/stats")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["totalReferencesParsed"].(float64) < 2 {
		t.Errorf("totalReferencesParsed = %v, want >= 2", data["totalReferencesParsed"])
	}
}

func TestStatsWithoutDatabase(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *Config) { cfg.DBPath = "" })

	status, body := getJSON(t, ts.URL+"/v1/stats")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if body.Error == nil || body.Error.Code != "STATS_UNAVAILABLE" {
		t.Errorf("error = %+v, want STATS_UNAVAILABLE", body.Error)
	}
}

func TestRecentLogs(t *testing.T) {
	s, ts := newTestServer(t, nil)

	s.events.Record(context.Background(), botlog.LevelInfo, "test.event", "hello", nil)

	status, body := getJSON(t, ts.URL+"/v1/logs?limit=10")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	raw, _ := json.Marshal(body.Data)
	var entries []botlog.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Event == "test.event" {
			found = true
		}
	}
	if !found {
		t.Error("expected test.event in recent logs")
	}
}

func TestAuthRequired(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	_, ts := newTestServer(t, func(cfg *Config) {
		cfg.Auth = AuthConfig{Enabled: true, APIKey: key}
	})

	// Probes bypass auth.
	status, _ := getJSON(t, ts.URL+"/healthz")
	if status != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", status)
	}

	// API routes require the key.
	status, body := getJSON(t, ts.URL+"/v1/books")
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body.Error == nil || body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v, want UNAUTHORIZED", body.Error)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/books", nil)
	req.Header.Set("X-API-Key", key)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authed status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *Config) {
		cfg.RateLimitRequests = 1
		cfg.RateLimitBurst = 1
	})

	status, _ := getJSON(t, ts.URL+"/v1/books")
	if status != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", status)
	}

	status, body := getJSON(t, ts.URL+"/v1/books")
	if status != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", status)
	}
	if body.Error == nil || body.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("error = %+v, want RATE_LIMIT_EXCEEDED", body.Error)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/v1/books", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	getJSON(t, ts.URL+"/v1/resolve?q=matt")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, "dailybread_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
	if !strings.Contains(text, "dailybread_resolve_outcomes_total") {
		t.Error("expected resolver outcome counter in metrics output")
	}
}

func TestLogStreamWebSocket(t *testing.T) {
	s, ts := newTestServer(t, nil)

	// An event recorded before connecting arrives via the backlog.
	s.events.Record(context.Background(), botlog.LevelWarn, "ws.test", "before connect", nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var entry botlog.Entry
	if err := json.Unmarshal(message, &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Event != "ws.test" {
		t.Errorf("event = %s, want ws.test", entry.Event)
	}
}

func TestLogStreamFanOut(t *testing.T) {
	s, ts := newTestServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/logs"

	conns := make([]*websocket.Conn, 2)
	for i := range conns {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial client %d: %v", i, err)
		}
		defer conn.Close()
		conns[i] = conn
	}

	// Give the hub time to register both clients before broadcasting.
	time.Sleep(50 * time.Millisecond)
	s.events.Record(context.Background(), botlog.LevelWarn, "ws.fanout", "live event", nil)

	// Every connected client receives the live event, possibly after
	// backlog entries.
	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("client %d read: %v", i, err)
			}
			var entry botlog.Entry
			if err := json.Unmarshal(message, &entry); err != nil {
				t.Fatalf("client %d decode: %v", i, err)
			}
			if entry.Event == "ws.fanout" {
				break
			}
		}
	}
}

func TestRootEndpointList(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data := dataMap(t, body)
	if data["name"] != "DailyBread API" {
		t.Errorf("name = %v, want DailyBread API", data["name"])
	}

	status, body = getJSON(t, ts.URL+"/nope")
	if status != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want 404", status)
	}
	if body.Error == nil || body.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want NOT_FOUND", body.Error)
	}
}
