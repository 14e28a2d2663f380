package tfl

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/exp/slices"
)

// MissingTimeToStation stands in for an absent timeToStation so that ordering stays total
const MissingTimeToStation = 1_000_000_000

type ArrivalPrediction struct {
	ID            string `json:"id" groups:"basic,detailed"`
	OperationType int    `json:"operationType" groups:"detailed"`
	VehicleID     string `json:"vehicleId" groups:"detailed"`

	NaptanID    string `json:"naptanId" groups:"detailed"`
	StationName string `json:"stationName" groups:"basic,detailed"`

	LineID   string `json:"lineId" groups:"basic,detailed"`
	LineName string `json:"lineName" groups:"basic,detailed"`

	PlatformName string `json:"platformName" groups:"basic,detailed"`
	Direction    string `json:"direction" groups:"detailed"`
	Bearing      string `json:"bearing" groups:"detailed"`

	DestinationNaptanID string `json:"destinationNaptanId" groups:"detailed"`
	DestinationName     string `json:"destinationName" groups:"basic,detailed"`

	TimeToStation *int `json:"timeToStation" groups:"basic,detailed"`

	CurrentLocation string `json:"currentLocation" groups:"detailed"`
	Towards         string `json:"towards" groups:"detailed"`

	ExpectedArrival string `json:"expectedArrival" groups:"basic,detailed"`
	TimeToLive      string `json:"timeToLive" groups:"detailed"`

	ModeName string `json:"modeName" groups:"basic,detailed"`
}

// Seconds is the time to station with the missing sentinel applied
func (a ArrivalPrediction) Seconds() int {
	if a.TimeToStation == nil {
		return MissingTimeToStation
	}
	return *a.TimeToStation
}

func (a ArrivalPrediction) HasTimeToStation() bool {
	return a.TimeToStation != nil
}

// ETA is the time to station as a duration, false when the API left it out
func (a ArrivalPrediction) ETA() (time.Duration, bool) {
	if a.TimeToStation == nil {
		return 0, false
	}
	return time.Duration(*a.TimeToStation) * time.Second, true
}

// ExpectedArrivalTime parses the RFC3339 expectedArrival timestamp
func (a ArrivalPrediction) ExpectedArrivalTime() (time.Time, error) {
	return time.Parse(time.RFC3339, a.ExpectedArrival)
}

func (c *Client) ArrivalsForStop(ctx context.Context, stopID string) ([]ArrivalPrediction, error) {
	if stopID == "" {
		return nil, ErrEmptyStopID
	}

	var arrivals []ArrivalPrediction
	if err := c.Get(ctx, fmt.Sprintf("/StopPoint/%s/Arrivals", url.PathEscape(stopID)), nil, &arrivals); err != nil {
		return nil, err
	}

	if arrivals == nil {
		arrivals = []ArrivalPrediction{}
	}

	return arrivals, nil
}

// SortArrivals orders soonest first. Records without a time to station go last and keep their
// relative order.
func SortArrivals(arrivals []ArrivalPrediction) {
	slices.SortStableFunc(arrivals, func(a, b ArrivalPrediction) int {
		return a.Seconds() - b.Seconds()
	})
}

// Within keeps arrivals due inside the window. Arrivals without a time to station are dropped.
func Within(arrivals []ArrivalPrediction, window time.Duration) []ArrivalPrediction {
	filtered := []ArrivalPrediction{}

	for _, arrival := range arrivals {
		eta, ok := arrival.ETA()
		if ok && eta <= window {
			filtered = append(filtered, arrival)
		}
	}

	return filtered
}
