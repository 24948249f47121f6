package geofence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebase/location-server/internal/model"
)

var (
	home   = model.Place{ID: "home", Name: "Home", Latitude: 40.0, Longitude: -75.0}
	school = model.Place{ID: "school", Name: "School", Latitude: 40.01, Longitude: -75.01}
)

func placeIDs(places []model.Place) []string {
	ids := make([]string, 0, len(places))
	for _, p := range places {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCheckEnterOnceThenSilent(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	candidates := []model.Place{home, school}

	first := tracker.Check("u1", home.Latitude, home.Longitude, candidates)
	assert.Equal(t, []string{"home"}, placeIDs(first.Entered))
	assert.Empty(t, first.Exited)

	second := tracker.Check("u1", home.Latitude+0.00005, home.Longitude, candidates)
	assert.True(t, second.Empty(), "staying inside must not produce another enter")
	assert.Equal(t, []string{"home"}, tracker.Inside("u1"))
}

func TestCheckMoveBetweenPlaces(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	candidates := []model.Place{home, school}

	tracker.Check("u1", home.Latitude, home.Longitude, candidates)
	moved := tracker.Check("u1", school.Latitude, school.Longitude, candidates)

	assert.Equal(t, []string{"school"}, placeIDs(moved.Entered))
	assert.Equal(t, []string{"home"}, placeIDs(moved.Exited))
}

func TestCheckLeavingAll(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home})

	left := tracker.Check("u1", 41, -75, []model.Place{home})
	assert.Empty(t, left.Entered)
	assert.Equal(t, []string{"home"}, placeIDs(left.Exited))
	assert.Empty(t, tracker.Inside("u1"))
}

func TestCheckEmptyCandidatesKeepsState(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home})

	got := tracker.Check("u1", 0, 0, nil)
	assert.True(t, got.Empty())
	assert.Equal(t, []string{"home"}, tracker.Inside("u1"))
}

func TestCheckMissingCandidateDroppedWithoutExit(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home, school})

	// home was deleted; the user is now far from everything.
	got := tracker.Check("u1", 0, 0, []model.Place{school})
	assert.True(t, got.Empty())
	assert.Empty(t, tracker.Inside("u1"))

	// home reappears and the user is back: this is a fresh enter.
	again := tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home, school})
	assert.Equal(t, []string{"home"}, placeIDs(again.Entered))
}

func TestClearIsIdempotentAndReenables(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home})

	tracker.Clear("u1")
	tracker.Clear("u1")
	tracker.Clear("nobody")

	got := tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home})
	assert.Equal(t, []string{"home"}, placeIDs(got.Entered))
}

func TestCheckUsersAreIndependent(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	tracker.Check("u1", home.Latitude, home.Longitude, []model.Place{home})

	got := tracker.Check("u2", home.Latitude, home.Longitude, []model.Place{home})
	assert.Equal(t, []string{"home"}, placeIDs(got.Entered))
}

func TestCheckConcurrentUsers(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(0)
	users := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tracker.Check(user, home.Latitude, home.Longitude, []model.Place{home, school})
			}
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		require.Equal(t, []string{"home"}, tracker.Inside(u))
	}
}
