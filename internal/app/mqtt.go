package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"homebase/location-server/internal/events"
	"homebase/location-server/internal/ingest"
	"homebase/location-server/internal/model"
	"homebase/location-server/internal/mqttbroker"
)

const (
	pingTopicPrefix   = "pings/"
	familyTopicPrefix = "family/"
	familyTopicFmt    = familyTopicPrefix + "%s/locations"
)

type mqttPing struct {
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Accuracy  *float64       `json:"accuracy"`
	Address   *string        `json:"address"`
	Kind      model.PingKind `json:"kind"`
}

func (a *App) handleMQTTPublish(ctx context.Context, msg mqttbroker.PublishMessage) {
	if !strings.HasPrefix(msg.Topic, pingTopicPrefix) {
		a.metrics.IncMQTTMessage("ignored")
		return
	}

	userID := strings.TrimPrefix(msg.Topic, pingTopicPrefix)
	if userID == "" || strings.Contains(userID, "/") {
		a.logger.Warn("ignoring ping on malformed topic", "topic", msg.Topic)
		a.metrics.IncMQTTMessage("invalid")
		return
	}

	var payload mqttPing
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		a.logger.Warn("mqtt payload decode failed", "topic", msg.Topic, "error", err)
		a.metrics.IncMQTTMessage("invalid")
		return
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		a.logger.Warn("mqtt payload missing coordinates", "topic", msg.Topic)
		a.metrics.IncMQTTMessage("invalid")
		return
	}

	ingestCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ping, err := a.pipeline.IngestPing(ingestCtx, userID, ingest.Input{
		Latitude:  *payload.Latitude,
		Longitude: *payload.Longitude,
		Accuracy:  payload.Accuracy,
		Address:   a.cleanOptional(payload.Address),
		Kind:      payload.Kind,
	})
	switch {
	case errors.Is(err, ingest.ErrInvalidInput):
		a.logger.Warn("mqtt ping rejected", "user", userID, "error", err)
		a.metrics.IncMQTTMessage("invalid")
	case err != nil:
		a.logger.Error("failed to ingest mqtt ping", "user", userID, "error", err)
		a.metrics.IncMQTTMessage("error")
	default:
		a.metrics.IncMQTTMessage("ingested")
		a.logger.Debug("ingested mqtt ping", "user", userID, "ping", ping.ID, "client", msg.ClientID)
	}
}

// relayLocationUpdate mirrors live location updates onto per-recipient MQTT topics.
func (a *App) relayLocationUpdate(_ context.Context, e events.Event) {
	if e.Kind != model.KindLocationUpdate || a.broker == nil || len(e.Recipients) == 0 {
		return
	}

	data, err := json.Marshal(e.Payload)
	if err != nil {
		a.logger.Error("encode location update", "error", err)
		return
	}

	for _, recipient := range e.Recipients {
		topic := fmt.Sprintf(familyTopicFmt, recipient)
		if err := a.broker.Publish(topic, data); err != nil {
			a.logger.Debug("relay location update failed", "topic", topic, "error", err)
		}
	}
}
