package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const (
	DefaultPath = "bus_data.db"

	PathEnvironmentVariable = "TFLBUS_DATABASE_PATH"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS bus_arrivals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT,
	stop_point_id TEXT,
	route TEXT,
	destination TEXT,
	expected_arrival TEXT,
	time_to_station INTEGER
)`

// Record is one observed arrival prediction. Timestamp is when it was observed.
type Record struct {
	ID              int64
	Timestamp       string
	StopPointID     string
	Route           string
	Destination     string
	ExpectedArrival string
	TimeToStation   *int
}

// ObservedAt parses the record timestamp
func (r Record) ObservedAt() (time.Time, error) {
	return time.Parse(time.RFC3339, r.Timestamp)
}

type Store struct {
	db *sql.DB
}

// ResolvePath picks the database path from the argument, then TFLBUS_DATABASE_PATH, then the default
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	return util.GetEnvironmentVariable(PathEnvironmentVariable, DefaultPath)
}

// Open opens (or creates) the database at path and makes sure the arrivals table exists
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// sqlite only allows one writer and an in memory database is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableStatement); err != nil {
		db.Close() // nolint:errcheck
		return nil, fmt.Errorf("error creating bus_arrivals table: %w", err)
	}

	log.Debug().Str("path", path).Msg("Opened arrival history")

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, record Record) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO bus_arrivals (timestamp, stop_point_id, route, destination, expected_arrival, time_to_station)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.Timestamp, record.StopPointID, record.Route, record.Destination, record.ExpectedArrival, nullableInt(record.TimeToStation),
	)
	if err != nil {
		return 0, fmt.Errorf("error inserting arrival: %w", err)
	}

	return result.LastInsertId()
}

// InsertArrivals stores every arrival observed at stopID in one transaction. The route is the
// line name and the timestamp is the observation time.
func (s *Store) InsertArrivals(ctx context.Context, stopID string, arrivals []tfl.ArrivalPrediction, observedAt time.Time) error {
	if len(arrivals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bus_arrivals (timestamp, stop_point_id, route, destination, expected_arrival, time_to_station)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	timestamp := observedAt.UTC().Format(time.RFC3339)

	for _, arrival := range arrivals {
		_, err := stmt.ExecContext(ctx,
			timestamp, stopID, arrival.LineName, arrival.DestinationName, arrival.ExpectedArrival, nullableInt(arrival.TimeToStation),
		)
		if err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting arrival: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	log.Debug().Str("stop", stopID).Int("arrivals", len(arrivals)).Msg("Recorded arrivals")

	return nil
}

// Records returns every stored record ordered by id
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, stop_point_id, route, destination, expected_arrival, time_to_station
		FROM bus_arrivals
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying arrivals: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var record Record
		var timestamp, stopPointID, route, destination, expectedArrival sql.NullString
		var timeToStation sql.NullInt64

		if err := rows.Scan(&record.ID, &timestamp, &stopPointID, &route, &destination, &expectedArrival, &timeToStation); err != nil {
			return nil, fmt.Errorf("error scanning arrival: %w", err)
		}

		record.Timestamp = timestamp.String
		record.StopPointID = stopPointID.String
		record.Route = route.String
		record.Destination = destination.String
		record.ExpectedArrival = expectedArrival.String
		if timeToStation.Valid {
			value := int(timeToStation.Int64)
			record.TimeToStation = &value
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func nullableInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
