// Package notify persists geofence and movement notifications and announces them to live clients.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"homebase/location-server/internal/events"
	"homebase/location-server/internal/metrics"
	"homebase/location-server/internal/model"
)

// Notification titles.
const (
	TitleLocationAlert  = "Location Alert"
	TitleLocationUpdate = "Location Update"
)

// Store persists notifications.
type Store interface {
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
}

// Dispatcher creates per-recipient notifications. A failure for one recipient
// never stops delivery to the rest.
type Dispatcher struct {
	store   Store
	bus     events.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithMetrics records created and failed notifications.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher constructs a dispatcher. bus may be nil when no live delivery is wanted.
func NewDispatcher(store Store, bus events.Publisher, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{store: store, bus: bus, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GeofenceTransition notifies every family member and the mover, then
// broadcasts a geofence event. It returns the number of notifications saved.
func (d *Dispatcher) GeofenceTransition(ctx context.Context, mover model.User, family []model.User, place model.Place, action model.GeofenceAction) int {
	name := mover.DisplayName()
	familyMessage := fmt.Sprintf("%s has %s %s", name, action, place.Name)
	data := map[string]any{
		"triggeredByUserId": mover.ID,
		"placeId":           place.ID,
		"placeName":         place.Name,
		"action":            string(action),
	}
	typ := action.NotificationType()

	created := 0
	for _, member := range family {
		if member.ID == mover.ID {
			continue
		}
		if d.create(ctx, model.Notification{
			UserID:  member.ID,
			Type:    typ,
			Title:   TitleLocationAlert,
			Message: familyMessage,
			Data:    data,
		}) {
			created++
		}
	}

	if d.create(ctx, model.Notification{
		UserID:  mover.ID,
		Type:    typ,
		Title:   TitleLocationAlert,
		Message: fmt.Sprintf("You %s %s", action, place.Name),
		Data:    data,
	}) {
		created++
	}

	if d.bus != nil {
		d.bus.Publish(ctx, events.Event{
			Kind:     model.KindGeofence,
			Audience: events.AudienceAll,
			Payload: model.GeofenceMessage{
				Kind:      model.KindGeofence,
				UserID:    mover.ID,
				UserName:  name,
				PlaceName: place.Name,
				Action:    action,
				Message:   familyMessage,
				Timestamp: d.clock().UTC().Format(time.RFC3339),
			},
		})
	}

	d.logger.Info("geofence transition", "user", mover.ID, "place", place.ID, "action", action, "notified", created)
	return created
}

// Moved notifies every family member that the mover sent a new location.
// The mover is not notified.
func (d *Dispatcher) Moved(ctx context.Context, mover model.User, family []model.User, ping model.LocationPing) int {
	message := fmt.Sprintf("%s updated their location", mover.DisplayName())
	data := map[string]any{
		"locationId": ping.ID,
		"userId":     mover.ID,
	}

	created := 0
	for _, member := range family {
		if member.ID == mover.ID {
			continue
		}
		if d.create(ctx, model.Notification{
			UserID:  member.ID,
			Type:    model.NotificationLocation,
			Title:   TitleLocationUpdate,
			Message: message,
			Data:    data,
		}) {
			created++
		}
	}
	return created
}

func (d *Dispatcher) create(ctx context.Context, n model.Notification) bool {
	n.CreatedAt = d.clock()
	if _, err := d.store.CreateNotification(ctx, n); err != nil {
		d.logger.Error("create notification", "recipient", n.UserID, "type", n.Type, "error", err)
		d.metrics.IncNotificationFailure(string(n.Type))
		return false
	}
	d.metrics.IncNotification(string(n.Type))
	return true
}
