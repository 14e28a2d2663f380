package arrivaltable

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jinzhu/copier"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/rs/zerolog/log"
)

// Row is one arrival flattened down to the columns worth keeping for analysis
type Row struct {
	ID              string   `csv:"id" json:"id"`
	OperationType   int      `csv:"operationType" json:"operationType"`
	VehicleID       string   `csv:"vehicleId" json:"vehicleId"`
	NaptanID        string   `csv:"naptanId" json:"naptanId"`
	StationName     string   `csv:"stationName" json:"stationName"`
	LineID          string   `csv:"lineId" json:"lineId"`
	LineName        string   `csv:"lineName" json:"lineName"`
	PlatformName    string   `csv:"platformName" json:"platformName"`
	DestinationName string   `csv:"destinationName" json:"destinationName"`
	Towards         string   `csv:"towards" json:"towards"`
	TimeToStation   *int     `csv:"timeToStation,omitempty" json:"timeToStation"`
	ExpectedArrival string   `csv:"expectedArrival" json:"expectedArrival"`
	TimeToLive      string   `csv:"timeToLive" json:"timeToLive"`
	ModeName        string   `csv:"modeName" json:"modeName"`
	ETAMinutes      *float64 `csv:"eta_minutes,omitempty" json:"eta_minutes" copier:"-"`
}

// Flatten keeps the analysis columns of every arrival and adds the eta in minutes
func Flatten(arrivals []tfl.ArrivalPrediction) ([]Row, error) {
	rows := []Row{}

	for _, arrival := range arrivals {
		var row Row
		if err := copier.CopyWithOption(&row, arrival, copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("flattening arrival %s: %w", arrival.ID, err)
		}

		if arrival.TimeToStation != nil {
			minutes := math.Round(float64(*arrival.TimeToStation)/60*100) / 100
			row.ETAMinutes = &minutes
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// Save writes the rows to path, creating the parent directory. A .json path gets newline
// delimited JSON records, everything else gets CSV with a header row.
func Save(rows []Row, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		encoder := json.NewEncoder(file)
		for _, row := range rows {
			if err := encoder.Encode(row); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
	} else if err := gocsv.Marshal(rows, file); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("rows", len(rows)).Msg("Saved arrivals table")

	return file.Close()
}

// Load reads back a CSV file written by Save
func Load(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows := []Row{}
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return rows, nil
}

// OutputPath names the per stop file a collection run writes, e.g.
// data/arrivals_490G00011911_2024-03-01_081500.csv
func OutputPath(dir string, stopID string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("arrivals_%s_%s.csv", stopID, at.Format("2006-01-02_150405")))
}
