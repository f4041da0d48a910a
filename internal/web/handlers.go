package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/logging"
	"github.com/JonMunkholm/sheetsync/internal/web/templates"
)

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string             `json:"status"`
	Source  string             `json:"source"`
	Store   string             `json:"store,omitempty"`
	Error   string             `json:"error,omitempty"`
	Limiter core.LimiterStatus `json:"limiter"`
}

// handleHealth reports service health. The store is pinged when configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Source:  s.service.SourceName(),
		Limiter: s.service.LimiterStatus(),
	}

	status := http.StatusOK
	if s.health != nil {
		resp.Store = s.health.Name()
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "store", resp.Store, "error", err)
			resp.Status = "unavailable"
			resp.Error = core.MapError(err).Message
			status = http.StatusServiceUnavailable
		}
	}

	writeJSONStatus(w, status, resp)
}

// handleListRecords returns every stored record.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.Records(r.Context())
	if err != nil {
		s.respondError(w, r, err, nil)
		return
	}
	if recs == nil {
		recs = []core.PersistedRecord{}
	}
	writeJSON(w, recs)
}

// handleListPasses returns recent pass reports, newest first.
func (s *Server) handleListPasses(w http.ResponseWriter, r *http.Request) {
	passes := s.service.History()
	if passes == nil {
		passes = []core.PassReport{}
	}
	writeJSON(w, passes)
}

// handleLastPass returns the most recent pass report.
func (s *Server) handleLastPass(w http.ResponseWriter, r *http.Request) {
	report, ok := s.service.LastPass()
	if !ok {
		s.respondError(w, r, fmt.Errorf("no pass has run yet: %w", core.ErrNotFound), nil)
		return
	}
	writeJSON(w, report)
}

// handleGetPass returns one pass report by ID.
func (s *Server) handleGetPass(w http.ResponseWriter, r *http.Request) {
	passID := chi.URLParam(r, "passID")
	report, ok := s.service.Pass(passID)
	if !ok {
		s.respondError(w, r, fmt.Errorf("pass %q: %w", passID, core.ErrNotFound), nil)
		return
	}
	writeJSON(w, report)
}

// handleSync runs one pass and returns its report. A running pass is not
// waited for; the caller gets 409 instead. The pass outlives a client that
// disconnects, bounded by the sync timeout.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := core.ContextWithTrigger(context.WithoutCancel(r.Context()), "http")
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Sync.Timeout)
	defer cancel()

	report, err := s.service.TrySync(ctx)
	if err != nil {
		s.respondError(w, r, err, report)
		return
	}
	writeJSON(w, report)
}

// purgeResponse is the body of DELETE /api/records.
type purgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// handlePurge deletes every stored record. It requires ?confirm=yes.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{
			Error:   "purge not confirmed",
			Message: "Purge deletes every record",
			Action:  "Repeat the request with ?confirm=yes",
			Code:    "REQ001",
		})
		return
	}

	n, err := s.service.Purge(r.Context())
	if err != nil {
		s.respondError(w, r, err, nil)
		return
	}
	logging.WithFields(r.Context(), "deleted", n).Warn("records purged")
	writeJSON(w, purgeResponse{Deleted: n})
}

// handleStatusPage renders the HTML status page.
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	params := templates.StatusParams{
		Source:  s.service.SourceName(),
		Running: s.service.LimiterStatus().Active > 0,
		History: s.service.History(),
	}
	if s.health != nil {
		params.Store = s.health.Name()
	}
	if recs, err := s.service.Records(r.Context()); err == nil {
		params.Records = len(recs)
	} else if !errors.Is(err, context.Canceled) {
		params.Records = -1
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.StatusPage(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render status page", "error", err)
	}
}
