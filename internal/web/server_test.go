package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Sync:   config.SyncConfig{Timeout: time.Minute},
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Rate:   config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

func talentRows() []core.Row {
	return []core.Row{
		{core.Text("title")},
		{core.Text("header")},
		{core.Text(`=HYPERLINK("u","UC1")`), core.Text("Alice")},
		{core.Text("UC2"), core.Text("<b>Bob</b>")},
	}
}

type fixture struct {
	srv   *Server
	store *store.Memory
}

func newFixture(t *testing.T, cfg *config.Config, src core.Source) fixture {
	t.Helper()
	if src == nil {
		src = core.SourceFunc(func(context.Context) ([]core.Row, error) { return talentRows(), nil })
	}
	mem := store.NewMemory()
	svc, err := core.NewService(src, mem, core.ServiceConfig{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	srv := NewServer(svc, mem, cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return fixture{srv: srv, store: mem}
}

func (f fixture) do(method, target string, header map[string]string) *httptest.ResponseRecorder {
	return f.doFrom("192.0.2.1:1234", method, target, header)
}

func (f fixture) doFrom(remote, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	rec := f.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Store != "memory" || body.Source != "func" {
		t.Errorf("body = %+v", body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

type downStore struct{}

func (downStore) Name() string              { return "postgres" }
func (downStore) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealth_StoreDown(t *testing.T) {
	svc, err := core.NewService(core.SourceFunc(func(context.Context) ([]core.Row, error) { return nil, nil }),
		store.NewMemory(), core.ServiceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(svc, downStore{}, testConfig())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unable to connect to database") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSync_ThenInspect(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	rec := f.do(http.MethodPost, "/api/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body.String())
	}
	var report core.PassReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Created != 2 || report.Phase != core.PhaseDone {
		t.Errorf("report = %+v", report)
	}

	rec = f.do(http.MethodGet, "/api/records", nil)
	var recs []core.PersistedRecord
	if err := json.NewDecoder(rec.Body).Decode(&recs); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(recs) != 2 || recs[0].Key != "UC1" {
		t.Errorf("records = %+v", recs)
	}

	rec = f.do(http.MethodGet, "/api/passes/"+report.PassID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get pass status = %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/passes/last", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), report.PassID) {
		t.Errorf("last pass = %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/passes", nil)
	var passes []core.PassReport
	if err := json.NewDecoder(rec.Body).Decode(&passes); err != nil {
		t.Fatalf("decode passes: %v", err)
	}
	if len(passes) != 1 {
		t.Errorf("passes = %d, want 1", len(passes))
	}
}

func TestGetPass_NotFound(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	for _, path := range []string{"/api/passes/nope", "/api/passes/last"} {
		rec := f.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestSync_SourceFailure(t *testing.T) {
	src := core.SourceFunc(func(context.Context) ([]core.Row, error) {
		return nil, &core.DecodeError{Kind: core.DecodeMalformed, Row: -1, Column: -1, Err: errors.New("bad json")}
	})
	f := newFixture(t, testConfig(), src)

	rec := f.do(http.MethodPost, "/api/sync", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "DEC001" {
		t.Errorf("code = %q, want DEC001", body.Code)
	}
	if body.Report == nil || body.Report.Phase != core.PhaseAborted {
		t.Errorf("report = %+v, want aborted report", body.Report)
	}
}

func TestSync_Conflict(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := core.SourceFunc(func(ctx context.Context) ([]core.Row, error) {
		close(started)
		<-release
		return talentRows(), nil
	})
	f := newFixture(t, testConfig(), src)

	done := make(chan int)
	go func() {
		done <- f.do(http.MethodPost, "/api/sync", nil).Code
	}()
	<-started

	rec := f.do(http.MethodPost, "/api/sync", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("concurrent sync status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "SYNC001") {
		t.Errorf("body = %s", rec.Body.String())
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first sync status = %d, want 200", code)
	}
}

func TestSync_APIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1", "k2"}
	f := newFixture(t, cfg, nil)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"valid key", map[string]string{"X-API-Key": "k2"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(http.MethodPost, "/api/sync", tt.header); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Reads stay open.
	if rec := f.do(http.MethodGet, "/api/records", nil); rec.Code != http.StatusOK {
		t.Errorf("records status = %d, want 200", rec.Code)
	}
}

func TestPurge(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	if rec := f.do(http.MethodPost, "/api/sync", nil); rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d", rec.Code)
	}

	if rec := f.do(http.MethodDelete, "/api/records", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed purge status = %d, want 400", rec.Code)
	}

	rec := f.do(http.MethodDelete, "/api/records?confirm=yes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge status = %d", rec.Code)
	}
	var body purgeResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", body.Deleted)
	}

	recs, _ := f.store.List(context.Background())
	if len(recs) != 0 {
		t.Errorf("store still holds %d records", len(recs))
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, SyncLimit: 1}
	f := newFixture(t, cfg, nil)

	for i := 0; i < 2; i++ {
		if rec := f.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := f.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimit_ClientIdentity(t *testing.T) {
	tests := []struct {
		name        string
		trusted     []string
		remote      func(i int) string
		header      func(i int) map[string]string
		wantLimited int
	}{
		{
			name:   "forwarded headers from untrusted peer are ignored",
			remote: func(int) string { return "198.51.100.7:5000" },
			header: func(i int) map[string]string {
				return map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)}
			},
			wantLimited: 3,
		},
		{
			name:   "real ip header from untrusted peer is ignored",
			remote: func(int) string { return "198.51.100.7:5000" },
			header: func(i int) map[string]string {
				return map[string]string{"X-Real-IP": fmt.Sprintf("10.0.1.%d", i)}
			},
			wantLimited: 3,
		},
		{
			name:        "new connections from one host share a bucket",
			remote:      func(i int) string { return fmt.Sprintf("198.51.100.7:%d", 5000+i) },
			header:      func(int) map[string]string { return nil },
			wantLimited: 3,
		},
		{
			name:    "trusted proxy forwards distinct clients",
			trusted: []string{"198.51.100.0/24"},
			remote:  func(int) string { return "198.51.100.7:5000" },
			header: func(i int) map[string]string {
				return map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d, 198.51.100.7", i)}
			},
			wantLimited: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, SyncLimit: 1}
			cfg.Security.TrustedProxies = tt.trusted
			f := newFixture(t, cfg, nil)

			limited := 0
			for i := 0; i < 5; i++ {
				rec := f.doFrom(tt.remote(i), http.MethodGet, "/healthz", tt.header(i))
				if rec.Code == http.StatusTooManyRequests {
					limited++
				}
			}
			if limited != tt.wantLimited {
				t.Errorf("limited = %d/5, want %d", limited, tt.wantLimited)
			}
		})
	}
}

func TestSyncRateLimit_SpoofedHeader(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, SyncLimit: 1}
	f := newFixture(t, cfg, nil)

	if rec := f.do(http.MethodPost, "/api/sync", nil); rec.Code != http.StatusOK {
		t.Fatalf("first sync status = %d: %s", rec.Code, rec.Body.String())
	}
	rec := f.do(http.MethodPost, "/api/sync", map[string]string{"X-Forwarded-For": "203.0.113.9"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("spoofed sync status = %d, want 429", rec.Code)
	}
}

func TestStatusPage(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.do(http.MethodPost, "/api/sync", nil)

	rec := f.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{"<h1>sheetsync</h1>", "Recent passes", "memory", "done"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
