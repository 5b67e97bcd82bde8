package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/fdwatch/pkg/logger"
	_ "modernc.org/sqlite"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// Cue outcomes
const (
	OutcomeFired  = "fired"
	OutcomeMissed = "missed"
)

// timeLayout is fixed width so that stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// CueRecord is one entry of the cue log
type CueRecord struct {
	ID           int64     `json:"id"`
	AircraftID   string    `json:"aircraft_id"`
	Callsign     string    `json:"callsign,omitempty"`
	Clip         string    `json:"clip"`
	Outcome      string    `json:"outcome"`
	ETASeconds   float64   `json:"eta_seconds"`
	Distance     float64   `json:"distance"`      // Along-track statute miles when planned
	PassDistance float64   `json:"pass_distance"` // Cross-track statute miles
	CreatedAt    time.Time `json:"timestamp"`
}

// CueStorage is a SQLite-based audit log of cues
type CueStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCueStorage opens (creating if needed) the cue log at dbPath
func NewCueStorage(dbPath string, log *logger.Logger) (*CueStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode=WAL", "journal mode"},
		{"PRAGMA synchronous=NORMAL", "synchronous mode"},
		{"PRAGMA busy_timeout=5000", "busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", p.what, err)
		}
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &CueStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *CueStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Debug("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			aircraft_id TEXT NOT NULL,
			callsign TEXT,
			clip TEXT NOT NULL,
			outcome TEXT NOT NULL,
			eta_seconds REAL,
			distance REAL,
			pass_distance REAL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cues table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_cues_created_at ON cues(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_cues_aircraft_id ON cues(aircraft_id)`)
	if err != nil {
		return fmt.Errorf("failed to create aircraft_id index: %w", err)
	}

	return nil
}

// InsertCue stores a cue record and returns its ID
func (s *CueStorage) InsertCue(record *CueRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO cues
		(aircraft_id, callsign, clip, outcome, eta_seconds, distance, pass_distance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.AircraftID,
		record.Callsign,
		record.Clip,
		record.Outcome,
		record.ETASeconds,
		record.Distance,
		record.PassDistance,
		record.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cue: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	record.ID = id
	return id, nil
}

// LatestFiredAt returns the time of the most recent fired cue. ok is false when none exist.
func (s *CueStorage) LatestFiredAt() (time.Time, bool, error) {
	var createdAt string
	err := s.db.QueryRow(
		`SELECT created_at FROM cues WHERE outcome = ? ORDER BY created_at DESC LIMIT 1`,
		OutcomeFired,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest cue: %w", err)
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return t, true, nil
}

// RecentCues returns up to limit records, newest first
func (s *CueStorage) RecentCues(limit int) ([]*CueRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, aircraft_id, callsign, clip, outcome, eta_seconds, distance, pass_distance, created_at
		FROM cues
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cues: %w", err)
	}
	defer rows.Close()

	records := make([]*CueRecord, 0, limit)
	for rows.Next() {
		var record CueRecord
		var createdAt string
		var callsign sql.NullString
		var eta, distance, pass sql.NullFloat64

		if err := rows.Scan(
			&record.ID,
			&record.AircraftID,
			&callsign,
			&record.Clip,
			&record.Outcome,
			&eta,
			&distance,
			&pass,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cue: %w", err)
		}

		record.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.Callsign = callsign.String
		record.ETASeconds = eta.Float64
		record.Distance = distance.Float64
		record.PassDistance = pass.Float64

		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cues: %w", err)
	}

	return records, nil
}

// CountCues returns the number of cues with outcome since the given time
func (s *CueStorage) CountCues(outcome string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM cues WHERE outcome = ? AND created_at >= ?`,
		outcome, since.UTC().Format(timeLayout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cues: %w", err)
	}
	return n, nil
}
