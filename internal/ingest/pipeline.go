// Package ingest turns raw location pings into stored history, geofence
// transitions, notifications and live location updates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"homebase/location-server/internal/events"
	"homebase/location-server/internal/geofence"
	"homebase/location-server/internal/metrics"
	"homebase/location-server/internal/model"
)

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks Store,Notifier

// ErrInvalidInput is returned for pings that cannot describe a position.
var ErrInvalidInput = errors.New("invalid location input")

// Store is the storage the pipeline reads and writes.
type Store interface {
	SaveLocationPing(ctx context.Context, p model.LocationPing) (model.LocationPing, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	GetFamilyMembers(ctx context.Context, userID string) ([]model.User, error)
	GetFamilyScopePlaces(ctx context.Context, userID string) ([]model.Place, error)
}

// Notifier fans notifications out to recipients.
type Notifier interface {
	GeofenceTransition(ctx context.Context, mover model.User, family []model.User, place model.Place, action model.GeofenceAction) int
	Moved(ctx context.Context, mover model.User, family []model.User, ping model.LocationPing) int
}

// Input is a position reported by a client.
type Input struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Accuracy  *float64       `json:"accuracy,omitempty"`
	Address   *string        `json:"address,omitempty"`
	Kind      model.PingKind `json:"kind,omitempty"`
}

// Validate checks coordinate ranges and kind.
func (in Input) Validate() error {
	if math.IsNaN(in.Latitude) || in.Latitude < -90 || in.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, in.Latitude)
	}
	if math.IsNaN(in.Longitude) || in.Longitude < -180 || in.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, in.Longitude)
	}
	if in.Accuracy != nil && (math.IsNaN(*in.Accuracy) || *in.Accuracy < 0) {
		return fmt.Errorf("%w: negative accuracy", ErrInvalidInput)
	}
	if in.Kind != "" && !in.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
	}
	return nil
}

// Pipeline processes pings. It is safe for concurrent use.
type Pipeline struct {
	store    Store
	notifier Notifier
	tracker  *geofence.Tracker
	throttle *Throttle
	bus      events.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	clock    func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithThrottle replaces the moved-notification throttle.
func WithThrottle(t *Throttle) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.throttle = t
		}
	}
}

// WithTracker replaces the geofence tracker.
func WithTracker(t *geofence.Tracker) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracker = t
		}
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// New constructs a pipeline. bus may be nil.
func New(store Store, notifier Notifier, bus events.Publisher, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:    store,
		notifier: notifier,
		tracker:  geofence.NewTracker(0),
		throttle: NewThrottle(DefaultMoveWindow),
		bus:      bus,
		logger:   logger,
		tracer:   otel.Tracer("homebase/location-server/internal/ingest"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestPing stores the ping and runs the downstream steps. Only validation
// and persistence failures are returned; later steps degrade and log.
func (p *Pipeline) IngestPing(ctx context.Context, userID string, in Input) (model.LocationPing, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.IngestPing", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if userID == "" {
		return model.LocationPing{}, fmt.Errorf("%w: missing user id", ErrInvalidInput)
	}
	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return model.LocationPing{}, err
	}

	kind := in.Kind
	if kind == "" {
		kind = model.PingManual
	}
	now := p.clock().UTC()

	saved, err := p.store.SaveLocationPing(ctx, model.LocationPing{
		ID:        uuid.NewString(),
		UserID:    userID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Accuracy:  in.Accuracy,
		Address:   in.Address,
		Kind:      kind,
		Timestamp: now,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return model.LocationPing{}, fmt.Errorf("save location ping: %w", err)
	}
	p.metrics.IncPing(string(saved.Kind))

	mover := p.resolveUser(ctx, userID)
	family := p.resolveFamily(ctx, userID)
	span.SetAttributes(attribute.Int("family.size", len(family)))

	if len(family) > 0 {
		if p.throttle.Allow(userID, now) {
			p.notifier.Moved(ctx, mover, family, saved)
		} else {
			p.metrics.IncMovedSuppressed()
		}
	}

	p.checkGeofences(ctx, saved, mover, family)
	p.publishLocation(ctx, saved, family)

	return saved, nil
}

// ResetGeofenceState forgets which places userID is inside.
func (p *Pipeline) ResetGeofenceState(userID string) {
	p.tracker.Clear(userID)
	p.logger.Info("geofence state reset", "user", userID)
}

// Inside lists the place ids userID is currently inside.
func (p *Pipeline) Inside(userID string) []string {
	return p.tracker.Inside(userID)
}

func (p *Pipeline) resolveUser(ctx context.Context, userID string) model.User {
	u, err := p.store.GetUser(ctx, userID)
	if err != nil {
		p.logger.Warn("resolve ping owner", "user", userID, "error", err)
		return model.User{ID: userID}
	}
	return u
}

func (p *Pipeline) resolveFamily(ctx context.Context, userID string) []model.User {
	family, err := p.store.GetFamilyMembers(ctx, userID)
	if err != nil {
		p.logger.Warn("resolve family", "user", userID, "error", err)
		return nil
	}
	return family
}

func (p *Pipeline) checkGeofences(ctx context.Context, ping model.LocationPing, mover model.User, family []model.User) {
	ctx, span := p.tracer.Start(ctx, "ingest.checkGeofences")
	defer span.End()

	places, err := p.store.GetFamilyScopePlaces(ctx, ping.UserID)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("load family places", "user", ping.UserID, "error", err)
		return
	}

	transitions := p.tracker.Check(ping.UserID, ping.Latitude, ping.Longitude, places)
	span.SetAttributes(
		attribute.Int("places.candidates", len(places)),
		attribute.Int("places.entered", len(transitions.Entered)),
		attribute.Int("places.exited", len(transitions.Exited)),
	)

	for _, place := range transitions.Entered {
		p.metrics.IncTransition(string(model.ActionEntered))
		p.notifier.GeofenceTransition(ctx, mover, family, place, model.ActionEntered)
	}
	for _, place := range transitions.Exited {
		p.metrics.IncTransition(string(model.ActionExited))
		p.notifier.GeofenceTransition(ctx, mover, family, place, model.ActionExited)
	}
}

func (p *Pipeline) publishLocation(ctx context.Context, ping model.LocationPing, family []model.User) {
	if p.bus == nil || len(family) == 0 {
		return
	}

	recipients := make([]string, 0, len(family))
	for _, member := range family {
		if member.ID != ping.UserID {
			recipients = append(recipients, member.ID)
		}
	}

	p.bus.Publish(ctx, events.Event{
		Kind:       model.KindLocationUpdate,
		Audience:   events.AudienceUsers,
		Recipients: recipients,
		Payload: model.LocationUpdateMessage{
			Kind:     model.KindLocationUpdate,
			UserID:   ping.UserID,
			Location: ping,
		},
	})
}
