// Package geofence keeps per-user "inside" state and turns positions into enter/exit transitions.
package geofence

import (
	"sort"
	"sync"

	"homebase/location-server/internal/geo"
	"homebase/location-server/internal/model"
)

// Transitions lists the places a user entered or left since the previous check.
// Order follows the candidate list.
type Transitions struct {
	Entered []model.Place
	Exited  []model.Place
}

// Empty reports whether nothing changed.
func (t Transitions) Empty() bool {
	return len(t.Entered) == 0 && len(t.Exited) == 0
}

// Tracker holds the set of places each user is currently inside. State lives in memory only.
type Tracker struct {
	radius float64

	mu     sync.Mutex
	inside map[string]map[string]struct{}
}

// NewTracker returns a tracker using radiusMeters, or the default radius when it is not positive.
func NewTracker(radiusMeters float64) *Tracker {
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultRadiusMeters
	}
	return &Tracker{
		radius: radiusMeters,
		inside: make(map[string]map[string]struct{}),
	}
}

// Check evaluates a position against the candidate places and replaces the user's state.
//
// An empty candidate list is a no-op. Places that were inside before but are
// missing from places are dropped from the state without producing an exit.
func (t *Tracker) Check(userID string, lat, lon float64, places []model.Place) Transitions {
	if len(places) == 0 {
		return Transitions{}
	}

	current := make(map[string]struct{}, len(places))
	for _, p := range places {
		if geo.IsWithin(lat, lon, p.Latitude, p.Longitude, t.radius) {
			current[p.ID] = struct{}{}
		}
	}

	t.mu.Lock()
	previous := t.inside[userID]
	t.inside[userID] = current
	t.mu.Unlock()

	var out Transitions
	seen := make(map[string]struct{}, len(places))
	for _, p := range places {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		_, now := current[p.ID]
		_, before := previous[p.ID]
		switch {
		case now && !before:
			out.Entered = append(out.Entered, p)
		case before && !now:
			out.Exited = append(out.Exited, p)
		}
	}
	return out
}

// Clear forgets the user's state. The next ping inside a place reports an enter again.
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	delete(t.inside, userID)
	t.mu.Unlock()
}

// Inside returns the sorted ids of the places the user is currently inside.
func (t *Tracker) Inside(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.inside[userID]))
	for id := range t.inside[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
