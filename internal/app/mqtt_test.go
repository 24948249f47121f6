package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebase/location-server/internal/model"
	"homebase/location-server/internal/mqttbroker"
	"homebase/location-server/internal/store"
)

func publish(a *App, topic, payload string) {
	a.handleMQTTPublish(context.Background(), mqttbroker.PublishMessage{ClientID: "device", Topic: topic, Payload: []byte(payload)})
}

func TestMQTTPingIsIngested(t *testing.T) {
	a := newTestApp(t)

	publish(a, "pings/u1", `{"latitude":12.5,"longitude":-3.25,"accuracy":8,"address":"<b>Dock</b>","kind":"automatic"}`)

	ping, err := a.store.GetLatestPing(context.Background(), "u1")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, ping.Latitude, 1e-9)
	assert.Equal(t, model.PingAutomatic, ping.Kind)
	require.NotNil(t, ping.Address)
	assert.Equal(t, "Dock", *ping.Address)
}

func TestMQTTIgnoresInvalidMessages(t *testing.T) {
	a := newTestApp(t)

	publish(a, "pings/u1", `{"latitude":`)
	publish(a, "pings/u1", `{"longitude":1}`)
	publish(a, "pings/u1", `{"latitude":100,"longitude":1}`)
	publish(a, "pings/", `{"latitude":1,"longitude":1}`)
	publish(a, "pings/u1/extra", `{"latitude":1,"longitude":1}`)
	publish(a, "other/u1", `{"latitude":1,"longitude":1}`)

	_, err := a.store.GetLatestPing(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLocationUpdatesAreRelayedOverMQTT(t *testing.T) {
	a := newTestApp(t)
	seedFamily(t, a)

	_, err := a.broker.Start("127.0.0.1:0")
	require.NoError(t, err)

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", a.broker.Port())).
		SetClientID("bob-phone").
		SetAutoReconnect(false)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(2*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { client.Disconnect(50) })

	got := make(chan mqtt.Message, 4)
	sub := client.Subscribe("family/u2/locations", 0, func(_ mqtt.Client, m mqtt.Message) { got <- m })
	require.True(t, sub.WaitTimeout(2*time.Second))
	require.NoError(t, sub.Error())

	pub := client.Publish("pings/u1", 0, false, []byte(`{"latitude":4,"longitude":5}`))
	require.True(t, pub.WaitTimeout(2*time.Second))

	select {
	case m := <-got:
		var update model.LocationUpdateMessage
		require.NoError(t, json.Unmarshal(m.Payload(), &update))
		assert.Equal(t, model.KindLocationUpdate, update.Kind)
		assert.Equal(t, "u1", update.UserID)
		assert.InDelta(t, 4.0, update.Location.Latitude, 1e-9)
	case <-time.After(3 * time.Second):
		t.Fatal("location update was not relayed")
	}
}

func TestClientCannotSpoofFamilyTopic(t *testing.T) {
	a := newTestApp(t)
	seedFamily(t, a)

	_, err := a.broker.Start("127.0.0.1:0")
	require.NoError(t, err)

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", a.broker.Port())).
		SetClientID("mallory").
		SetAutoReconnect(false)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(2*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { client.Disconnect(50) })

	got := make(chan mqtt.Message, 4)
	sub := client.Subscribe("#", 0, func(_ mqtt.Client, m mqtt.Message) { got <- m })
	require.True(t, sub.WaitTimeout(2*time.Second))
	require.NoError(t, sub.Error())

	spoof := client.Publish("family/u2/locations", 0, false, []byte(`{"type":"location_update","userId":"u1","location":{"latitude":66,"longitude":66}}`))
	require.True(t, spoof.WaitTimeout(2*time.Second))
	pub := client.Publish("pings/u1", 0, false, []byte(`{"latitude":4,"longitude":5}`))
	require.True(t, pub.WaitTimeout(2*time.Second))

	select {
	case m := <-got:
		assert.Equal(t, "family/u2/locations", m.Topic())
		var update model.LocationUpdateMessage
		require.NoError(t, json.Unmarshal(m.Payload(), &update))
		assert.InDelta(t, 4.0, update.Location.Latitude, 1e-9)
	case <-time.After(3 * time.Second):
		t.Fatal("location update was not relayed")
	}
}
