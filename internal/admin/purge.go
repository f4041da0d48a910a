// Package admin provides administrative operations on the record store.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// PurgeTimeout is the maximum duration of a purge.
const PurgeTimeout = 30 * time.Second

// ErrNotConfirmed is returned when a purge is attempted without confirmation.
var ErrNotConfirmed = errors.New("purge deletes every record; pass --yes to confirm")

// Purger deletes every stored record. It goes through the service so a purge
// never overlaps a running pass.
type Purger struct {
	Service *core.Service
	Timeout time.Duration // default: PurgeTimeout
}

// Purge deletes everything when confirmed and returns the number of records
// removed. This is a destructive operation.
func (p *Purger) Purge(ctx context.Context, confirmed bool) (int64, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = PurgeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := p.Service.Purge(ctx)
	if err != nil {
		return 0, err
	}
	slog.Warn("store purged", "deleted", n)
	return n, nil
}
