package core

// reconcile.go implements one full sync pass.
//
// A pass runs in two sequential phases:
//  1. Upsert: every accepted row is looked up by key and created or merged.
//     Its key is recorded before the write, so a failed write still protects
//     the key from deletion.
//  2. Delete: one DeleteWhereKeyNotIn call removes every stored key that no
//     accepted row produced.
//
// The phases are not atomic. A crash between them leaves the store with the
// upserts applied and the deletions pending; the next successful pass
// converges. Rows are processed one at a time in input order.

import (
	"context"
	"log/slog"
	"time"
)

// Reporter receives progress from the engine. It replaces console output so
// the engine itself performs no I/O.
type Reporter interface {
	// Found is called for every accepted record before it is written.
	Found(index int, rec DomainRecord)
	// Skipped is called for rows the mapper rejected or that are excluded.
	Skipped(index int, row Row, excluded bool)
	// Failed is called for every row whose store call failed.
	Failed(f RowFailure, err error)
	// Deleted is called once after the deletion phase.
	Deleted(n int64, err error)
}

// Engine reconciles mapped rows against a Store.
type Engine struct {
	store    Store
	layout   ColumnLayout
	reporter Reporter
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLayout overrides DefaultLayout.
func WithLayout(l ColumnLayout) EngineOption {
	return func(e *Engine) { e.layout = l }
}

// WithReporter sets the progress reporter. The default discards everything.
func WithReporter(r Reporter) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// NewEngine creates an Engine writing to store.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		layout:   DefaultLayout,
		reporter: NopReporter{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one pass over rows, which must not include header rows.
// Per-row store failures are collected in the report. A failed deletion
// returns the report together with a *DeletionError.
func (e *Engine) Run(ctx context.Context, rows []Row) (*PassReport, error) {
	start := e.now()
	report := &PassReport{
		Phase:     PhaseUpserting,
		StartedAt: start,
	}

	seen := make(map[string]struct{}, len(rows))
	keys := make([]string, 0, len(rows))

	for i, row := range rows {
		report.Processed++

		rec, ok := e.layout.MapRow(row)
		if !ok {
			report.Skipped++
			e.reporter.Skipped(i, row, false)
			continue
		}
		if rec.Excluded {
			report.Excluded++
			e.reporter.Skipped(i, row, true)
			continue
		}

		if _, dup := seen[rec.Key]; !dup {
			seen[rec.Key] = struct{}{}
			keys = append(keys, rec.Key)
		}
		e.reporter.Found(i, rec)

		if err := e.upsert(ctx, rec, report); err != nil {
			f := RowFailure{
				Index:  i,
				Key:    rec.Key,
				Reason: err.Error(),
				Data:   row.Strings(),
			}
			report.Failed++
			report.Failures = append(report.Failures, f)
			e.reporter.Failed(f, err)
		}
	}

	report.Phase = PhaseDeleting
	deleted, err := e.store.DeleteWhereKeyNotIn(ctx, keys)
	e.reporter.Deleted(deleted, err)
	report.Duration = e.now().Sub(start)
	if err != nil {
		report.Phase = PhaseAborted
		derr := &DeletionError{Kept: len(keys), Err: err}
		report.Error = derr.Error()
		return report, derr
	}

	report.Deleted = deleted
	report.Phase = PhaseDone
	return report, nil
}

// upsert looks rec up by key and creates or merges it.
func (e *Engine) upsert(ctx context.Context, rec DomainRecord, report *PassReport) error {
	existing, err := e.store.FindByKey(ctx, rec.Key)
	if err != nil {
		return &PersistenceError{Op: "find", Key: rec.Key, Err: err}
	}

	if existing == nil {
		if err := e.store.Create(ctx, rec); err != nil {
			return &PersistenceError{Op: "create", Key: rec.Key, Err: err}
		}
		report.Created++
		return nil
	}

	changed := Changed(*existing, rec)
	if err := e.store.Update(ctx, *existing, rec); err != nil {
		return &PersistenceError{Op: "update", Key: rec.Key, Err: err}
	}
	if changed {
		report.Updated++
	} else {
		report.Unchanged++
	}
	return nil
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Found(int, DomainRecord)  {}
func (NopReporter) Skipped(int, Row, bool)   {}
func (NopReporter) Failed(RowFailure, error) {}
func (NopReporter) Deleted(int64, error)     {}

// LogReporter writes engine progress to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a Reporter backed by logger (slog.Default if nil).
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Found(index int, rec DomainRecord) {
	name := ""
	if rec.Name != nil {
		name = *rec.Name
	}
	r.logger.Info("found channel", "row", index, "key", rec.Key, "name", name)
}

func (r *LogReporter) Skipped(index int, row Row, excluded bool) {
	if excluded {
		r.logger.Debug("row excluded", "row", index, "status", ExcludedStatus)
		return
	}
	r.logger.Debug("row skipped", "row", index, "cells", len(row))
}

func (r *LogReporter) Failed(f RowFailure, err error) {
	r.logger.Warn("row failed", "row", f.Index, "key", f.Key, "error", err)
}

func (r *LogReporter) Deleted(n int64, err error) {
	if err != nil {
		r.logger.Error("delete stale records failed", "error", err)
		return
	}
	r.logger.Info("deleted stale records", "count", n)
}
