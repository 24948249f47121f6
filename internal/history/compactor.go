// Package history builds downsampled recent tracks for a user's family.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"homebase/location-server/internal/model"
)

// Defaults for the history window and the minimum spacing between kept pings.
const (
	DefaultWindow = 24 * time.Hour
	DefaultGap    = 45 * time.Minute
)

// Store is the storage the compactor reads.
type Store interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	GetFamilyMembers(ctx context.Context, userID string) ([]model.User, error)
	GetPingsSince(ctx context.Context, userID string, since time.Time) ([]model.LocationPing, error)
}

// Compactor produces per-member history for the caller and every sharing family member.
type Compactor struct {
	store  Store
	logger *slog.Logger
	window time.Duration
	gap    time.Duration
	clock  func() time.Time
}

// NewCompactor constructs a compactor. Non-positive window or gap fall back to the defaults.
func NewCompactor(store Store, logger *slog.Logger, window, gap time.Duration) *Compactor {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if gap <= 0 {
		gap = DefaultGap
	}
	return &Compactor{store: store, logger: logger, window: window, gap: gap, clock: time.Now}
}

// SetClock overrides the time source.
func (c *Compactor) SetClock(clock func() time.Time) {
	if clock != nil {
		c.clock = clock
	}
}

// CompactHistory returns member id to history for everyone in userID's family
// scope, userID included, who has location sharing on. Members without recent
// pings are omitted.
func (c *Compactor) CompactHistory(ctx context.Context, userID string) (map[string]model.MemberHistory, error) {
	self, err := c.store.GetUser(ctx, userID)
	if err != nil {
		c.logger.Warn("resolve history owner", "user", userID, "error", err)
		self = model.User{ID: userID}
	}

	family, err := c.store.GetFamilyMembers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load family members: %w", err)
	}

	scope := make([]model.User, 0, len(family)+1)
	if self.LocationSharing {
		scope = append(scope, self)
	}
	for _, member := range family {
		if member.ID != userID && member.LocationSharing {
			scope = append(scope, member)
		}
	}

	since := c.clock().Add(-c.window)
	out := make(map[string]model.MemberHistory, len(scope))
	for _, member := range scope {
		pings, err := c.store.GetPingsSince(ctx, member.ID, since)
		if err != nil {
			c.logger.Error("load member history", "member", member.ID, "error", err)
			continue
		}
		kept := Downsample(pings, c.gap)
		if len(kept) == 0 {
			continue
		}
		out[member.ID] = model.MemberHistory{User: member, Locations: kept}
	}
	return out, nil
}

// Downsample keeps the first ping and then every ping at least gap away from
// the last kept one. Input order is preserved.
func Downsample(pings []model.LocationPing, gap time.Duration) []model.LocationPing {
	if len(pings) == 0 {
		return nil
	}

	kept := []model.LocationPing{pings[0]}
	last := pings[0].Timestamp
	for _, p := range pings[1:] {
		delta := p.Timestamp.Sub(last)
		if delta < 0 {
			delta = -delta
		}
		if delta >= gap {
			kept = append(kept, p)
			last = p.Timestamp
		}
	}
	return kept
}
