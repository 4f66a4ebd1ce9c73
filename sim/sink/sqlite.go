package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/idlesim/idlesim/sim"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	event_id           TEXT NOT NULL,
	event_name         TEXT NOT NULL,
	event_timestamp    TEXT NOT NULL,
	user_id            TEXT NOT NULL,
	session_id         TEXT,
	device_id          TEXT,
	platform           TEXT,
	os_version         TEXT,
	app_version        TEXT,
	device_model       TEXT,
	country            TEXT,
	language           TEXT,
	player_level       INTEGER,
	vip_level          INTEGER,
	total_spent_usd    REAL,
	days_since_install INTEGER,
	cohort_date        TEXT,
	current_chapter    INTEGER,
	ab_tests           TEXT,
	event_properties   TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_name ON events(event_name);
CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id);
CREATE INDEX IF NOT EXISTS idx_events_ts   ON events(event_timestamp);
`

const insertEventSQL = `INSERT INTO events VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// SQLiteWriter stores records in a flat events table, with the nested
// ab_tests and event_properties blocks serialized as JSON text columns.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter creates events.db in dir and prepares the schema.
func NewSQLiteWriter(dir string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", filepath.Join(dir, "events.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if _, err := db.Exec(eventsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts a batch of records inside one transaction.
func (w *SQLiteWriter) Write(records []*sim.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		abJSON, err := json.Marshal(r.ABTests)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal ab_tests: %w", err)
		}
		propsJSON, err := json.Marshal(r.EventProps)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal event_properties: %w", err)
		}
		if _, err := stmt.Exec(
			r.EventID, r.EventName, r.Timestamp, r.UserID, r.SessionID,
			r.Device.DeviceID, string(r.Device.Platform), r.Device.OSVersion,
			r.Device.AppVersion, r.Device.DeviceModel, r.Device.Country, r.Device.Language,
			r.Properties.PlayerLevel, r.Properties.VIPLevel, r.Properties.TotalSpentUSD,
			r.Properties.DaysSinceInstall, r.Properties.CohortDate, r.Properties.CurrentChapter,
			string(abJSON), string(propsJSON),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
