package tracking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homebase/location-server/internal/metrics"
	"homebase/location-server/internal/model"
	"homebase/location-server/internal/store"
)

// PingStore reads and appends location pings.
type PingStore interface {
	GetLatestPing(ctx context.Context, userID string) (model.LocationPing, error)
	SaveLocationPing(ctx context.Context, p model.LocationPing) (model.LocationPing, error)
}

// Relogger re-saves a user's last known position as a fresh automatic ping.
type Relogger struct {
	store   PingStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// NewRelogger constructs a relogger. m may be nil.
func NewRelogger(store PingStore, logger *slog.Logger, m *metrics.Metrics) *Relogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relogger{store: store, logger: logger, metrics: m, clock: time.Now}
}

// Run is a RunFunc. Users with no ping yet are skipped.
func (r *Relogger) Run(ctx context.Context, userID string) {
	latest, err := r.store.GetLatestPing(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Debug("relog skipped, no previous ping", "user", userID)
		r.metrics.IncRelog("skipped")
		return
	}
	if err != nil {
		r.logger.Error("relog load latest ping", "user", userID, "error", err)
		r.metrics.IncRelog("error")
		return
	}

	next := latest
	next.ID = uuid.NewString()
	next.Kind = model.PingAutomatic
	next.Timestamp = r.clock().UTC()

	if _, err := r.store.SaveLocationPing(ctx, next); err != nil {
		r.logger.Error("relog save ping", "user", userID, "error", err)
		r.metrics.IncRelog("error")
		return
	}
	r.metrics.IncRelog("ok")
}
