package app

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"homebase/location-server/internal/ingest"
	"homebase/location-server/internal/model"
	"homebase/location-server/internal/store"
)

const (
	headerUserID   = "X-User-ID"
	maxBodyBytes   = 64 << 10
	maxCleanPasses = 8
)

type userIDKey struct{}

func (a *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/ws", a.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/locations", a.handlePostLocation)
		r.Get("/locations/latest", a.handleLatestLocation)
		r.Get("/locations/history", a.handleHistory)
		r.Delete("/geofence/state", a.handleResetGeofence)

		r.Get("/places", a.handleListPlaces)
		r.Post("/places", a.handleCreatePlace)
		r.Delete("/places/{id}", a.handleDeletePlace)

		r.Get("/notifications", a.handleListNotifications)
		r.Post("/notifications/{id}/read", a.handleMarkRead)

		r.Post("/tracking", a.handleStartTracking)
		r.Delete("/tracking", a.handleStopTracking)
	})

	return r
}

// requireUser rejects API calls that do not identify the caller.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			http.Error(w, "missing "+headerUserID, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if a.store == nil || a.broker == nil || a.broker.Addr() == nil || a.store.Ping(ctx) != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"starting"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (a *App) handlePostLocation(w http.ResponseWriter, r *http.Request) {
	var in ingest.Input
	if !a.decodeBody(w, r, &in) {
		return
	}
	in.Address = a.cleanOptional(in.Address)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ping, err := a.pipeline.IngestPing(ctx, userFrom(r.Context()), in)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.logger.Error("failed to ingest location", "user", userFrom(r.Context()), "error", err)
		http.Error(w, "failed to save location", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusCreated, ping)
}

func (a *App) handleLatestLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ping, err := a.store.GetLatestPing(ctx, userFrom(r.Context()))
	if err != nil {
		a.storeError(w, "load latest location", err)
		return
	}
	a.writeJSON(w, http.StatusOK, ping)
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	members, err := a.history.CompactHistory(ctx, userFrom(r.Context()))
	if err != nil {
		a.storeError(w, "compact history", err)
		return
	}

	a.writeJSON(w, http.StatusOK, struct {
		History map[string]model.MemberHistory `json:"history"`
	}{History: members})
}

func (a *App) handleResetGeofence(w http.ResponseWriter, r *http.Request) {
	a.pipeline.ResetGeofenceState(userFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	places, err := a.store.GetFamilyScopePlaces(ctx, userFrom(r.Context()))
	if err != nil {
		a.storeError(w, "load places", err)
		return
	}
	if places == nil {
		places = []model.Place{}
	}

	a.writeJSON(w, http.StatusOK, struct {
		Places []model.Place `json:"places"`
	}{Places: places})
}

func (a *App) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Category  *string  `json:"category"`
		Color     string   `json:"color"`
	}
	if !a.decodeBody(w, r, &req) {
		return
	}

	name := a.cleanText(req.Name)
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Latitude == nil || req.Longitude == nil || !validCoordinate(*req.Latitude, 90) || !validCoordinate(*req.Longitude, 180) {
		http.Error(w, "latitude and longitude are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	place, err := a.store.CreatePlace(ctx, model.Place{
		OwnerUserID: userFrom(r.Context()),
		Name:        name,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Category:    a.cleanOptional(req.Category),
		Color:       a.cleanText(req.Color),
	})
	if err != nil {
		a.storeError(w, "create place", err)
		return
	}

	a.writeJSON(w, http.StatusCreated, place)
}

func (a *App) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.DeletePlace(ctx, chi.URLParam(r, "id"), userFrom(r.Context())); err != nil {
		a.storeError(w, "delete place", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	list, err := a.store.ListNotifications(ctx, userFrom(r.Context()), limit)
	if err != nil {
		a.storeError(w, "load notifications", err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}

	a.writeJSON(w, http.StatusOK, struct {
		Notifications []model.Notification `json:"notifications"`
	}{Notifications: list})
}

func (a *App) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.MarkNotificationRead(ctx, chi.URLParam(r, "id"), userFrom(r.Context())); err != nil {
		a.storeError(w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleStartTracking(w http.ResponseWriter, r *http.Request) {
	a.setTracking(w, r, true)
}

func (a *App) handleStopTracking(w http.ResponseWriter, r *http.Request) {
	a.setTracking(w, r, false)
}

func (a *App) setTracking(w http.ResponseWriter, r *http.Request, enabled bool) {
	userID := userFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.SetLocationSharing(ctx, userID, enabled); err != nil {
		a.storeError(w, "update location sharing", err)
		return
	}

	var changed bool
	if enabled {
		changed = a.scheduler.Start(userID)
	} else {
		changed = a.scheduler.Stop(userID)
	}
	a.logger.Info("location tracking updated", "user", userID, "enabled", enabled, "changed", changed)

	a.writeJSON(w, http.StatusOK, struct {
		Tracking bool `json:"tracking"`
		Changed  bool `json:"changed"`
	}{Tracking: enabled, Changed: changed})
}

func (a *App) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *App) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrNotInitialized):
		http.Error(w, "store not initialized", http.StatusServiceUnavailable)
	default:
		a.logger.Error("request failed", "op", op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// cleanText strips markup from user supplied text and returns it unescaped.
// Entity-encoded markup is decoded and sanitised again until nothing changes;
// input that does not settle within maxCleanPasses keeps the escaped form.
func (a *App) cleanText(s string) string {
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(a.sanitizer.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return strings.TrimSpace(a.sanitizer.Sanitize(s))
}

func (a *App) cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := a.cleanText(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
