package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultHeaderRows is the number of title rows at the top of the sheet.
const DefaultHeaderRows = 2

// ServiceConfig holds Service settings. Zero values take defaults.
type ServiceConfig struct {
	HeaderRows  int           // Rows skipped before reconciliation (default: 2, -1 for none)
	HistorySize int           // Pass reports kept in memory (default: 20)
	MaxWait     time.Duration // How long Sync waits for a running pass (default: 30s)
	Layout      *ColumnLayout // Column layout (default: DefaultLayout)
}

// Service wires a Source and a Store to the reconciliation engine.
// It serialises passes so the store only ever has one writer.
type Service struct {
	source  Source
	store   Store
	layout  ColumnLayout
	headers int

	limiter *PassLimiter
	history *History
	newID   func() string
}

// NewService creates a new Service instance.
func NewService(source Source, store Store, cfg ServiceConfig) (*Service, error) {
	if source == nil {
		return nil, errors.New("service: source is nil")
	}
	if store == nil {
		return nil, errors.New("service: store is nil")
	}

	headers := cfg.HeaderRows
	switch {
	case headers == 0:
		headers = DefaultHeaderRows
	case headers < 0:
		headers = 0
	}

	layout := DefaultLayout
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}

	return &Service{
		source:  source,
		store:   store,
		layout:  layout,
		headers: headers,
		limiter: NewPassLimiter(1, cfg.MaxWait),
		history: NewHistory(cfg.HistorySize),
		newID:   func() string { return uuid.New().String() },
	}, nil
}

// Sync runs one pass, waiting for a running pass to finish first.
func (s *Service) Sync(ctx context.Context) (*PassReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrLimiterTimeout) {
			return nil, ErrPassInProgress
		}
		return nil, err
	}
	defer s.limiter.Release()

	return s.run(ctx, s.store, false)
}

// TrySync runs one pass, or returns ErrPassInProgress immediately.
func (s *Service) TrySync(ctx context.Context) (*PassReport, error) {
	if !s.limiter.TryAcquire() {
		return nil, ErrPassInProgress
	}
	defer s.limiter.Release()

	return s.run(ctx, s.store, false)
}

// DryRun runs a pass against scratch instead of the real store. Callers
// seed scratch with a copy of the stored records.
func (s *Service) DryRun(ctx context.Context, scratch Store) (*PassReport, error) {
	if scratch == nil {
		return nil, errors.New("dry run: scratch store is nil")
	}
	return s.run(ctx, scratch, true)
}

// run fetches the source payload and reconciles it against store.
func (s *Service) run(ctx context.Context, store Store, dryRun bool) (*PassReport, error) {
	passID := s.newID()
	ctx = ContextWithPassID(ctx, passID)
	logger := slog.Default().With("pass_id", passID, "source", s.source.Name())
	if trigger := GetTriggerFromContext(ctx); trigger != "" {
		logger = logger.With("trigger", trigger)
	}

	start := time.Now()
	logger.Info("sync pass started", "dry_run", dryRun)

	rows, err := s.source.Fetch(ctx)
	if err != nil {
		report := &PassReport{
			PassID:    passID,
			Source:    s.source.Name(),
			Phase:     PhaseAborted,
			StartedAt: start,
			Duration:  time.Since(start),
			DryRun:    dryRun,
			Error:     err.Error(),
		}
		s.record(*report, dryRun)
		logger.Error("sync pass aborted", "error", err)
		return report, fmt.Errorf("fetch %s: %w", s.source.Name(), err)
	}

	data := skipHeaders(rows, s.headers)
	logger.Debug("payload fetched", "rows", len(rows), "data_rows", len(data))

	engine := NewEngine(store,
		WithLayout(s.layout),
		WithReporter(NewLogReporter(logger)),
	)
	report, err := engine.Run(ctx, data)
	report.PassID = passID
	report.Source = s.source.Name()
	report.StartedAt = start
	report.Duration = time.Since(start)
	report.DryRun = dryRun
	s.record(*report, dryRun)

	if err != nil {
		logger.Error("sync pass aborted", "error", err, "failed", report.Failed)
		return report, err
	}

	logger.Info("sync pass completed",
		"processed", report.Processed,
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"excluded", report.Excluded,
		"failed", report.Failed,
		"deleted", report.Deleted,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (s *Service) record(r PassReport, dryRun bool) {
	if dryRun {
		return
	}
	s.history.Add(r)
}

// skipHeaders drops the first n rows of the payload.
func skipHeaders(rows []Row, n int) []Row {
	if n >= len(rows) {
		return nil
	}
	return rows[n:]
}

// Records lists the stored records if the store supports it.
func (s *Service) Records(ctx context.Context) ([]PersistedRecord, error) {
	l, ok := s.store.(Lister)
	if !ok {
		return nil, errors.New("store does not support listing")
	}
	return l.List(ctx)
}

// Purge deletes every stored record.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrLimiterTimeout) {
			return 0, ErrPassInProgress
		}
		return 0, err
	}
	defer s.limiter.Release()

	return s.store.DeleteWhereKeyNotIn(ctx, nil)
}

// History returns recent pass reports, newest first.
func (s *Service) History() []PassReport {
	return s.history.List()
}

// Pass returns a recent pass report by ID.
func (s *Service) Pass(passID string) (PassReport, bool) {
	return s.history.Get(passID)
}

// LastPass returns the most recent pass report.
func (s *Service) LastPass() (PassReport, bool) {
	return s.history.Last()
}

// SourceName returns the configured source's name.
func (s *Service) SourceName() string {
	return s.source.Name()
}

// LimiterStatus returns the state of the pass limiter.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForPasses blocks until the running pass finishes or ctx is done.
func (s *Service) WaitForPasses(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
