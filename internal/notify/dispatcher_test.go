package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebase/location-server/internal/events"
	"homebase/location-server/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   []model.Notification
	failFor map[string]bool
}

func (f *fakeStore) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return model.Notification{}, errors.New("disk full")
	}
	f.saved = append(f.saved, n)
	return n, nil
}

func (f *fakeStore) byRecipient() map[string]model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.Notification, len(f.saved))
	for _, n := range f.saved {
		out[n.UserID] = n
	}
	return out
}

type recordingBus struct {
	events []events.Event
}

func (r *recordingBus) Publish(_ context.Context, e events.Event) {
	r.events = append(r.events, e)
}

func strPtr(s string) *string { return &s }

var (
	fixedNow = time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	bob      = model.User{ID: "bob", Email: "bob@example.com", FirstName: strPtr("Bob")}
	alice    = model.User{ID: "alice", Email: "alice@example.com"}
	carol    = model.User{ID: "carol", Email: "carol@example.com"}
	home     = model.Place{ID: "p-home", Name: "Home"}
)

func newTestDispatcher(store Store, bus events.Publisher) *Dispatcher {
	return NewDispatcher(store, bus, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(func() time.Time { return fixedNow }))
}

func TestGeofenceTransitionNotifiesFamilyAndSelf(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	bus := &recordingBus{}
	d := newTestDispatcher(store, bus)

	created := d.GeofenceTransition(context.Background(), bob, []model.User{alice}, home, model.ActionEntered)

	require.Equal(t, 2, created)
	got := store.byRecipient()

	family := got["alice"]
	assert.Equal(t, model.NotificationGeofenceEntered, family.Type)
	assert.Equal(t, TitleLocationAlert, family.Title)
	assert.Equal(t, "Bob has entered Home", family.Message)
	assert.Equal(t, map[string]any{
		"triggeredByUserId": "bob",
		"placeId":           "p-home",
		"placeName":         "Home",
		"action":            "entered",
	}, family.Data)
	assert.True(t, family.CreatedAt.Equal(fixedNow))

	self := got["bob"]
	assert.Equal(t, "You entered Home", self.Message)
	assert.Equal(t, model.NotificationGeofenceEntered, self.Type)

	require.Len(t, bus.events, 1)
	e := bus.events[0]
	assert.Equal(t, events.AudienceAll, e.Audience)
	assert.Equal(t, model.GeofenceMessage{
		Kind:      model.KindGeofence,
		UserID:    "bob",
		UserName:  "Bob",
		PlaceName: "Home",
		Action:    model.ActionEntered,
		Message:   "Bob has entered Home",
		Timestamp: "2026-05-04T08:30:00Z",
	}, e.Payload)
}

func TestGeofenceExitUsesExitType(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	d := newTestDispatcher(store, nil)

	d.GeofenceTransition(context.Background(), alice, []model.User{bob}, home, model.ActionExited)

	got := store.byRecipient()
	assert.Equal(t, model.NotificationGeofenceExited, got["bob"].Type)
	assert.Equal(t, "alice@example.com has exited Home", got["bob"].Message)
	assert.Equal(t, "You exited Home", got["alice"].Message)
}

func TestGeofenceTransitionIsolatesRecipientFailures(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failFor: map[string]bool{"alice": true}}
	bus := &recordingBus{}
	d := newTestDispatcher(store, bus)

	created := d.GeofenceTransition(context.Background(), bob, []model.User{alice, carol}, home, model.ActionEntered)

	assert.Equal(t, 2, created)
	got := store.byRecipient()
	assert.Contains(t, got, "carol")
	assert.Contains(t, got, "bob")
	assert.Len(t, bus.events, 1, "broadcast still happens")
}

func TestGeofenceTransitionSkipsMoverInFamily(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	d := newTestDispatcher(store, nil)

	created := d.GeofenceTransition(context.Background(), bob, []model.User{bob, alice}, home, model.ActionEntered)

	assert.Equal(t, 2, created)
	assert.Equal(t, "You entered Home", store.byRecipient()["bob"].Message)
}

func TestMovedNotifiesFamilyOnly(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	bus := &recordingBus{}
	d := newTestDispatcher(store, bus)
	ping := model.LocationPing{ID: "ping-1", UserID: "bob"}

	created := d.Moved(context.Background(), bob, []model.User{alice, carol}, ping)

	assert.Equal(t, 2, created)
	got := store.byRecipient()
	assert.NotContains(t, got, "bob")
	assert.Equal(t, model.NotificationLocation, got["alice"].Type)
	assert.Equal(t, TitleLocationUpdate, got["alice"].Title)
	assert.Equal(t, "Bob updated their location", got["alice"].Message)
	assert.Equal(t, map[string]any{"locationId": "ping-1", "userId": "bob"}, got["carol"].Data)
	assert.Empty(t, bus.events)
}

func TestMovedWithNoDisplayName(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	d := newTestDispatcher(store, nil)

	d.Moved(context.Background(), model.User{ID: "ghost"}, []model.User{alice}, model.LocationPing{ID: "p"})

	assert.Equal(t, "Someone updated their location", store.byRecipient()["alice"].Message)
}
