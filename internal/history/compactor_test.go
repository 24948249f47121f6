package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebase/location-server/internal/model"
)

var base = time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)

func pingsAtMinutes(userID string, minutes ...int) []model.LocationPing {
	out := make([]model.LocationPing, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, model.LocationPing{
			ID:        userID + "-" + strconv.Itoa(m),
			UserID:    userID,
			Timestamp: base.Add(time.Duration(m) * time.Minute),
		})
	}
	return out
}

func minutesOf(pings []model.LocationPing) []int {
	out := make([]int, 0, len(pings))
	for _, p := range pings {
		out = append(out, int(p.Timestamp.Sub(base)/time.Minute))
	}
	return out
}

func TestDownsampleNewestFirst(t *testing.T) {
	t.Parallel()

	got := Downsample(pingsAtMinutes("u", 100, 50, 40, 10, 0), 45*time.Minute)
	assert.Equal(t, []int{100, 50, 0}, minutesOf(got))
}

func TestDownsampleEdges(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Downsample(nil, DefaultGap))
	assert.Equal(t, []int{7}, minutesOf(Downsample(pingsAtMinutes("u", 7), DefaultGap)))
	assert.Equal(t, []int{90, 45, 0}, minutesOf(Downsample(pingsAtMinutes("u", 90, 45, 0), DefaultGap)), "exact gap is kept")
	assert.Equal(t, []int{0, 45}, minutesOf(Downsample(pingsAtMinutes("u", 0, 44, 45), DefaultGap)), "oldest first also works")
}

type fakeStore struct {
	users     map[string]model.User
	family    map[string][]model.User
	familyErr error
	pings     map[string][]model.LocationPing
	pingErr   map[string]error
	since     map[string]time.Time
}

func (f *fakeStore) GetUser(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, errors.New("not found")
	}
	return u, nil
}

func (f *fakeStore) GetFamilyMembers(_ context.Context, userID string) ([]model.User, error) {
	if f.familyErr != nil {
		return nil, f.familyErr
	}
	return f.family[userID], nil
}

func (f *fakeStore) GetPingsSince(_ context.Context, userID string, since time.Time) ([]model.LocationPing, error) {
	if f.since == nil {
		f.since = map[string]time.Time{}
	}
	f.since[userID] = since
	if err := f.pingErr[userID]; err != nil {
		return nil, err
	}
	return f.pings[userID], nil
}

func newTestCompactor(store Store) *Compactor {
	c := NewCompactor(store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0, 0)
	c.SetClock(func() time.Time { return base.Add(2 * time.Hour) })
	return c
}

func TestCompactHistoryScope(t *testing.T) {
	t.Parallel()

	me := model.User{ID: "me", Email: "me@example.com", LocationSharing: true}
	sharer := model.User{ID: "sharer", LocationSharing: true}
	private := model.User{ID: "private"}
	quiet := model.User{ID: "quiet", LocationSharing: true}

	store := &fakeStore{
		users:  map[string]model.User{"me": me},
		family: map[string][]model.User{"me": {sharer, private, quiet}},
		pings: map[string][]model.LocationPing{
			"me":      pingsAtMinutes("me", 100, 50, 40, 10, 0),
			"sharer":  pingsAtMinutes("sharer", 60),
			"private": pingsAtMinutes("private", 60),
		},
	}

	got, err := newTestCompactor(store).CompactHistory(context.Background(), "me")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, me, got["me"].User)
	assert.Equal(t, []int{100, 50, 0}, minutesOf(got["me"].Locations))
	assert.Equal(t, []int{60}, minutesOf(got["sharer"].Locations))
	assert.NotContains(t, got, "private", "members without sharing are excluded")
	assert.NotContains(t, got, "quiet", "members without pings are omitted")
	assert.Equal(t, base.Add(2*time.Hour-DefaultWindow), store.since["me"])
}

func TestCompactHistoryDegradesPerMember(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		users:   map[string]model.User{"me": {ID: "me", LocationSharing: true}},
		family:  map[string][]model.User{"me": {{ID: "broken", LocationSharing: true}}},
		pings:   map[string][]model.LocationPing{"me": pingsAtMinutes("me", 5)},
		pingErr: map[string]error{"broken": errors.New("io")},
	}

	got, err := newTestCompactor(store).CompactHistory(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "me", got["me"].User.ID)
}

func TestCompactHistoryExcludesCallerWithoutSharing(t *testing.T) {
	t.Parallel()

	sharer := model.User{ID: "sharer", LocationSharing: true}
	store := &fakeStore{
		users:  map[string]model.User{"me": {ID: "me"}},
		family: map[string][]model.User{"me": {sharer}},
		pings: map[string][]model.LocationPing{
			"me":     pingsAtMinutes("me", 10),
			"sharer": pingsAtMinutes("sharer", 20),
		},
	}

	got, err := newTestCompactor(store).CompactHistory(context.Background(), "me")
	require.NoError(t, err)
	assert.NotContains(t, got, "me")
	assert.Contains(t, got, "sharer")
}

func TestCompactHistoryUnknownOwnerIsNotSharing(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		pings: map[string][]model.LocationPing{"ghost": pingsAtMinutes("ghost", 5)},
	}

	got, err := newTestCompactor(store).CompactHistory(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompactHistoryFamilyError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{familyErr: errors.New("db closed")}

	_, err := newTestCompactor(store).CompactHistory(context.Background(), "me")
	assert.Error(t, err)
}
