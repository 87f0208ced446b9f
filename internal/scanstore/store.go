package scanstore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tarmac/internal/bcbp"
	"tarmac/internal/config"
	"tarmac/internal/manifest"
	"tarmac/internal/scan"
)

// Store manages scan persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// SessionRow is the persisted session header.
type SessionRow struct {
	ID           string
	FlightNumber string
	Station      string
	Date         string
	Disembarking int
	StartedAt    time.Time
	EndedAt      *time.Time
}

// Open initializes or connects to the scan database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "scans.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartSession records a new session header and wipes any previous session.
// Scan history never outlives a flight selection.
func (s *Store) StartSession(ctx context.Context, sessionID string, snapshot *manifest.Snapshot) error {
	if sessionID == "" {
		return fmt.Errorf("start session: empty session id")
	}
	if snapshot == nil {
		return fmt.Errorf("start session: nil snapshot")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("wipe previous sessions: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, flight_number, station, flight_date, disembarking, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID,
		snapshot.FlightNumber,
		snapshot.Station,
		snapshot.Date,
		snapshot.DisembarkingCount,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET ended_at = ? WHERE id = ?", now, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("end session: unknown session %s", sessionID)
	}
	return nil
}

// ActiveSession returns the current session header, or nil when none exists.
func (s *Store) ActiveSession(ctx context.Context) (*SessionRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, flight_number, station, flight_date, disembarking, started_at, ended_at
         FROM sessions LIMIT 1`)

	var (
		session   SessionRow
		startedAt string
		endedAt   sql.NullString
	)
	err := row.Scan(&session.ID, &session.FlightNumber, &session.Station, &session.Date,
		&session.Disembarking, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active session: %w", err)
	}

	session.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session start: %w", err)
	}
	if endedAt.Valid {
		ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse session end: %w", err)
		}
		session.EndedAt = &ended
	}
	return &session, nil
}

// SaveRecord persists one completed scan attempt. Satisfies scan.RecordSink.
func (s *Store) SaveRecord(ctx context.Context, sessionID string, record scan.ScanRecord) error {
	var entryID, entryName, entrySeat, entryPNR any
	if record.Entry != nil {
		entryID = record.Entry.ID
		entryName = record.Entry.PassengerName
		entrySeat = record.Entry.Seat
		entryPNR = record.Entry.PNR
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_records (
            id, session_id, success, source, matched,
            passenger_name, flight_number, seat, pnr,
            entry_id, entry_name, entry_seat, entry_pnr, scanned_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		sessionID,
		boolToInt(record.Success),
		string(record.Source),
		boolToInt(record.Matched),
		record.Pass.PassengerName,
		record.Pass.FlightNumber,
		record.Pass.Seat,
		record.Pass.PNR,
		entryID,
		entryName,
		entrySeat,
		entryPNR,
		record.ScannedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

// Records returns the session's scan records newest-first.
func (s *Store) Records(ctx context.Context, sessionID string) ([]scan.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, success, source, matched,
                passenger_name, flight_number, seat, pnr,
                entry_id, entry_name, entry_seat, entry_pnr, scanned_at
         FROM scan_records
         WHERE session_id = ?
         ORDER BY scanned_at DESC, rowid DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scan records: %w", err)
	}
	defer rows.Close()

	var records []scan.ScanRecord
	for rows.Next() {
		var (
			record                                 scan.ScanRecord
			success, matched                       int
			source                                 string
			entryID, entryName, entrySeat, entryPNR sql.NullString
			scannedAt                              string
		)
		err := rows.Scan(&record.ID, &success, &source, &matched,
			&record.Pass.PassengerName, &record.Pass.FlightNumber,
			&record.Pass.Seat, &record.Pass.PNR,
			&entryID, &entryName, &entrySeat, &entryPNR, &scannedAt)
		if err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		record.Success = success != 0
		record.Matched = matched != 0
		record.Source = bcbp.Source(source)
		record.Pass.Source = record.Source
		if entryID.Valid {
			record.Entry = &manifest.Entry{
				ID:            entryID.String,
				PassengerName: entryName.String,
				Seat:          entrySeat.String,
				PNR:           entryPNR.String,
			}
		}
		record.ScannedAt, err = time.Parse(time.RFC3339Nano, scannedAt)
		if err != nil {
			return nil, fmt.Errorf("parse record timestamp: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan records: %w", err)
	}
	return records, nil
}

// CountBySession reports how many records the session has accumulated.
func (s *Store) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM scan_records WHERE session_id = ?", sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scan records: %w", err)
	}
	return count, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
