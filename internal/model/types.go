package model

import (
	"strings"
	"time"
)

// PingKind distinguishes pings sent by a person from pings produced by the re-log task.
type PingKind string

const (
	PingManual    PingKind = "manual"
	PingAutomatic PingKind = "automatic"
)

// Valid reports whether k is a known kind.
func (k PingKind) Valid() bool {
	return k == PingManual || k == PingAutomatic
}

// LocationPing is a single recorded position of a user. Pings are append-only.
type LocationPing struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Kind      PingKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Place is a named point saved by a user and visible to the owner's family scope.
type Place struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"ownerUserId"`
	Name        string    `json:"name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Category    *string   `json:"category,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User is the subset of account data the location services need.
type User struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	LocationSharing bool    `json:"locationSharing"`
}

// DisplayName returns the first name, then the email, then "Someone". It is never blank.
func (u User) DisplayName() string {
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) != "" {
		return strings.TrimSpace(*u.FirstName)
	}
	if strings.TrimSpace(u.Email) != "" {
		return u.Email
	}
	return "Someone"
}

// ConnectionStatus is the state of a family edge.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
)

// FamilyConnection is an edge between two users. Only accepted edges count towards family scope.
type FamilyConnection struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requesterId"`
	AddresseeID string           `json:"addresseeId"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NotificationType enumerates persisted notification kinds.
type NotificationType string

const (
	NotificationGeofenceEntered NotificationType = "geofence_entered"
	NotificationGeofenceExited  NotificationType = "geofence_exited"
	NotificationLocation        NotificationType = "location"
)

// Notification is a persisted message addressed to a single recipient.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// GeofenceAction is the direction of a geofence transition.
type GeofenceAction string

const (
	ActionEntered GeofenceAction = "entered"
	ActionExited  GeofenceAction = "exited"
)

// NotificationType maps the action to its persisted notification type.
func (a GeofenceAction) NotificationType() NotificationType {
	if a == ActionExited {
		return NotificationGeofenceExited
	}
	return NotificationGeofenceEntered
}
