package service

import (
	"math"

	"github.com/aditya/go-dispatch/internal/models"
)

const (
	// roadFactor converts straight-line distance into a rough road distance.
	roadFactor = 1.3
	// defaultDistanceKm is assumed when either location lacks coordinates.
	defaultDistanceKm = 2.0
)

// FareEstimator fixes a ride's fare at request time.
type FareEstimator interface {
	Estimate(pickup, drop models.Location) float64
	EstimateDistance(pickup, drop models.Location) float64
	EstimateDuration(distanceKm float64) int
}

type fareEstimator struct {
	baseFare  float64
	perKmRate float64
}

func NewFareEstimator(baseFare, perKmRate float64) FareEstimator {
	return &fareEstimator{baseFare: baseFare, perKmRate: perKmRate}
}

func (s *fareEstimator) Estimate(pickup, drop models.Location) float64 {
	distanceKm := s.EstimateDistance(pickup, drop)
	return round(s.baseFare + distanceKm*s.perKmRate)
}

// EstimateDistance calculates straight-line distance and multiplies by road factor
func (s *fareEstimator) EstimateDistance(pickup, drop models.Location) float64 {
	if !pickup.HasCoordinates() || !drop.HasCoordinates() {
		return defaultDistanceKm
	}
	straightLine := haversineDistance(*pickup.Lat, *pickup.Lng, *drop.Lat, *drop.Lng)
	return round(straightLine * roadFactor)
}

// EstimateDuration estimates trip duration based on distance (assuming 25 km/h avg speed in city)
func (s *fareEstimator) EstimateDuration(distanceKm float64) int {
	durationHours := distanceKm / 25.0
	durationMins := int(math.Ceil(durationHours * 60))
	if durationMins < 5 {
		durationMins = 5
	}
	return durationMins
}

// haversineDistance calculates the distance between two points on Earth
func haversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371 // km

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}
