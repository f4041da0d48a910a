package core

import (
	"context"
	"time"
)

// DomainRecord is the entity extracted from one source row.
// Nil optional fields are absent from the row, not cleared.
type DomainRecord struct {
	Key             string     `json:"key" yaml:"key"`
	Name            *string    `json:"name,omitempty" yaml:"name,omitempty"`
	Persona         *string    `json:"persona,omitempty" yaml:"persona,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty" yaml:"birthday,omitempty"`
	Affiliation     *string    `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
	AffiliationLogo *string    `json:"affiliationLogo,omitempty" yaml:"affiliationLogo,omitempty"`
	Excluded        bool       `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// PersistedRecord is the store-side counterpart of a DomainRecord.
// CreatedAt and UpdatedAt are owned by the store.
type PersistedRecord struct {
	Key             string     `json:"key" yaml:"key"`
	Name            *string    `json:"name,omitempty" yaml:"name,omitempty"`
	Persona         *string    `json:"persona,omitempty" yaml:"persona,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty" yaml:"birthday,omitempty"`
	Affiliation     *string    `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
	AffiliationLogo *string    `json:"affiliationLogo,omitempty" yaml:"affiliationLogo,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Store is the persistence collaborator consumed by the engine.
type Store interface {
	// FindByKey returns nil, nil when no record has the key.
	FindByKey(ctx context.Context, key string) (*PersistedRecord, error)
	Create(ctx context.Context, rec DomainRecord) error
	// Update persists Merge(existing, with).
	Update(ctx context.Context, existing PersistedRecord, with DomainRecord) error
	// DeleteWhereKeyNotIn removes every record whose key is not in keys and
	// returns how many were removed. An empty keys slice removes everything.
	DeleteWhereKeyNotIn(ctx context.Context, keys []string) (int64, error)
}

// Lister is implemented by stores that can enumerate their records.
type Lister interface {
	List(ctx context.Context) ([]PersistedRecord, error)
}

// Source produces the raw rows of one payload, header rows included.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Row, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Row, error)

// Name implements Source.
func (f SourceFunc) Name() string { return "func" }

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) ([]Row, error) { return f(ctx) }

// PassPhase indicates the current stage of a sync pass.
type PassPhase string

const (
	PhaseStarting  PassPhase = "starting"
	PhaseFetching  PassPhase = "fetching"
	PhaseUpserting PassPhase = "upserting"
	PhaseDeleting  PassPhase = "deleting"
	PhaseDone      PassPhase = "done"
	PhaseAborted   PassPhase = "aborted"
)

// RowFailure describes a row whose store write failed.
type RowFailure struct {
	Index  int      `json:"index" yaml:"index"` // 0-based position in the reconciled rows
	Key    string   `json:"key" yaml:"key"`
	Reason string   `json:"reason" yaml:"reason"`
	Data   []string `json:"data,omitempty" yaml:"data,omitempty"`
}

// PassReport summarises one reconciliation pass.
type PassReport struct {
	PassID    string        `json:"passId" yaml:"passId"`
	Source    string        `json:"source,omitempty" yaml:"source,omitempty"`
	Phase     PassPhase     `json:"phase" yaml:"phase"`
	StartedAt time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Processed int           `json:"processed" yaml:"processed"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Excluded  int           `json:"excluded" yaml:"excluded"`
	Created   int           `json:"created" yaml:"created"`
	Updated   int           `json:"updated" yaml:"updated"`
	Unchanged int           `json:"unchanged" yaml:"unchanged"`
	Failed    int           `json:"failed" yaml:"failed"`
	Deleted   int64         `json:"deleted" yaml:"deleted"`
	Failures  []RowFailure  `json:"failures,omitempty" yaml:"failures,omitempty"`
	DryRun    bool          `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"` // Non-empty if Phase is PhaseAborted
}

// Upserted returns the number of rows written to the store.
func (r PassReport) Upserted() int {
	return r.Created + r.Updated + r.Unchanged
}

// OK reports whether the pass reached Done without row failures.
func (r PassReport) OK() bool {
	return r.Phase == PhaseDone && r.Failed == 0
}
