package model

// Message kinds exchanged with live client channels.
const (
	KindAuth           = "auth"
	KindLocationUpdate = "locationUpdate"
	KindGeofence       = "geofence"
)

// AuthMessage binds a live channel to a user.
type AuthMessage struct {
	Kind   string `json:"kind"`
	UserID string `json:"userId"`
}

// LocationUpdateMessage is pushed to family members on every ping.
type LocationUpdateMessage struct {
	Kind     string       `json:"kind"`
	UserID   string       `json:"userId"`
	Location LocationPing `json:"location"`
}

// GeofenceMessage is pushed when a user enters or leaves a place.
type GeofenceMessage struct {
	Kind      string         `json:"kind"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	PlaceName string         `json:"placeName"`
	Action    GeofenceAction `json:"action"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
}

// MemberHistory is one member's downsampled recent track.
type MemberHistory struct {
	User      User           `json:"user"`
	Locations []LocationPing `json:"locations"`
}
