package main

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkerStaysNearHome(t *testing.T) {
	w := &walker{
		lat: 10, lon: 20,
		homeLat: 10, homeLon: 20,
		stepM:  50,
		leashM: 100,
		rng:    rand.New(rand.NewSource(1)),
	}

	for i := 0; i < 500; i++ {
		lat, lon := w.next()
		offLat := (lat - 10) * metersPerDegree
		offLon := (lon - 20) * metersPerDegree * math.Cos(10*math.Pi/180)
		assert.LessOrEqual(t, math.Hypot(offLat, offLon), 100.0+1)
	}
}
