// Package registry maps users to their live client channel.
package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"homebase/location-server/internal/events"
)

// Channel is an asynchronous, possibly closed, message sink for one client.
// Implementations must be comparable (pointer types are).
type Channel interface {
	Send(msg []byte) error
	Closed() bool
}

// Registry holds at most one channel per user. A later registration replaces
// the earlier one without closing it.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	byUser map[string]Channel
}

// New constructs an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, byUser: make(map[string]Channel)}
}

// Register binds ch to userID, replacing any previous binding.
func (r *Registry) Register(userID string, ch Channel) {
	if userID == "" || ch == nil {
		return
	}
	r.mu.Lock()
	r.byUser[userID] = ch
	r.mu.Unlock()
	r.logger.Debug("channel registered", "user", userID)
}

// Unregister removes every binding that points at ch. Unknown channels are ignored.
func (r *Registry) Unregister(ch Channel) {
	if ch == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, bound := range r.byUser {
		if bound == ch {
			delete(r.byUser, userID)
			r.logger.Debug("channel unregistered", "user", userID)
		}
	}
}

// Send delivers msg to the user's channel if it exists and is open. Failures are logged only.
func (r *Registry) Send(userID string, msg []byte) {
	r.mu.RLock()
	ch := r.byUser[userID]
	r.mu.RUnlock()

	r.deliver(userID, ch, msg)
}

// BroadcastToFamily sends msg to each listed user.
func (r *Registry) BroadcastToFamily(userIDs []string, msg []byte) {
	for _, id := range userIDs {
		r.Send(id, msg)
	}
}

// BroadcastAll sends msg to every registered channel.
func (r *Registry) BroadcastAll(msg []byte) {
	r.mu.RLock()
	targets := make(map[string]Channel, len(r.byUser))
	for id, ch := range r.byUser {
		targets[id] = ch
	}
	r.mu.RUnlock()

	for id, ch := range targets {
		r.deliver(id, ch, msg)
	}
}

// Len returns the number of bound users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Connected reports whether userID currently has an open channel.
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	ch := r.byUser[userID]
	r.mu.RUnlock()
	return ch != nil && !ch.Closed()
}

// HandleEvent is an events.Handler that routes bus events to live channels.
func (r *Registry) HandleEvent(_ context.Context, e events.Event) {
	msg, err := json.Marshal(e.Payload)
	if err != nil {
		r.logger.Error("encode event", "kind", e.Kind, "error", err)
		return
	}

	switch e.Audience {
	case events.AudienceAll:
		r.BroadcastAll(msg)
	default:
		r.BroadcastToFamily(e.Recipients, msg)
	}
}

func (r *Registry) deliver(userID string, ch Channel, msg []byte) {
	if ch == nil || ch.Closed() {
		return
	}
	if err := ch.Send(msg); err != nil {
		r.logger.Debug("send to channel failed", "user", userID, "error", err)
	}
}
