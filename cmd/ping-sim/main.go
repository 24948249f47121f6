package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// metersPerDegree is the approximate length of one degree of latitude.
const metersPerDegree = 111_195.0

type pingPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Kind      string  `json:"kind"`
}

type walker struct {
	lat, lon float64
	homeLat  float64
	homeLon  float64
	stepM    float64
	leashM   float64
	rng      *rand.Rand
}

// next moves a random step, pulling back toward home once past the leash.
func (w *walker) next() (float64, float64) {
	bearing := w.rng.Float64() * 2 * math.Pi
	dLat := math.Cos(bearing) * w.stepM / metersPerDegree
	dLon := math.Sin(bearing) * w.stepM / (metersPerDegree * math.Cos(w.lat*math.Pi/180))

	w.lat += dLat
	w.lon += dLon

	offLat := (w.lat - w.homeLat) * metersPerDegree
	offLon := (w.lon - w.homeLon) * metersPerDegree * math.Cos(w.homeLat*math.Pi/180)
	if math.Hypot(offLat, offLon) > w.leashM {
		w.lat = w.homeLat + (w.lat-w.homeLat)/2
		w.lon = w.homeLon + (w.lon-w.homeLon)/2
	}
	return w.lat, w.lon
}

func main() {
	brokerAddr := flag.String("broker", "tcp://localhost:1883", "MQTT broker address, e.g. tcp://localhost:1883")
	userID := flag.String("user", "sim-user-1", "User whose pings are simulated")
	lat := flag.Float64("lat", 37.7749, "Starting latitude")
	lon := flag.Float64("lon", -122.4194, "Starting longitude")
	step := flag.Float64("step", 15, "Maximum distance moved per ping in meters")
	leash := flag.Float64("leash", 200, "Distance from the start after which the walk turns back, in meters")
	accuracy := flag.Float64("accuracy", 10, "Reported accuracy in meters")
	interval := flag.Duration("interval", 5*time.Second, "Interval between published pings")

	flag.Parse()

	w := &walker{
		lat: *lat, lon: *lon,
		homeLat: *lat, homeLon: *lon,
		stepM:  *step,
		leashM: *leash,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	clientID := fmt.Sprintf("%s-ping-sim-%d", *userID, time.Now().UnixNano())
	opts := mqtt.NewClientOptions().AddBroker(*brokerAddr).SetClientID(clientID).SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to broker: %v", token.Error())
	}
	log.Printf("connected to MQTT broker %s as %s", *brokerAddr, clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	topic := "pings/" + *userID

	publish := func() {
		pLat, pLon := w.next()
		data, err := json.Marshal(pingPayload{
			Latitude:  pLat,
			Longitude: pLon,
			Accuracy:  *accuracy,
			Kind:      "manual",
		})
		if err != nil {
			log.Printf("failed to encode payload: %v", err)
			return
		}

		token := client.Publish(topic, 0, false, data)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("publish error: %v", err)
			return
		}
		log.Printf("published %s lat=%.6f lon=%.6f", topic, pLat, pLon)
	}

	publish()

	for {
		select {
		case <-ctx.Done():
			log.Print("received shutdown signal, disconnecting")
			client.Disconnect(250)
			return
		case <-ticker.C:
			publish()
		}
	}
}
