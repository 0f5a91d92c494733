// Package history archives each refresh cycle's classified alerts to
// SQLite. The archive is an audit log only: the JSON state file
// remains the source of truth for restart recovery.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/michaelpyon/subway-shame/internal/snapshot"
)

//go:embed schema.sql
var schemaSQL string

// Archive wraps a SQLite database with write serialization. SQLite
// allows one writer at a time, so all writes go through writeMu on a
// single connection.
type Archive struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// Open opens the archive database with WAL mode enabled and ensures
// the schema exists.
func Open(path string) (*Archive, error) {
	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping archive: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}

	return &Archive{conn: conn}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

// RecordCycle writes one refresh cycle's classified alerts. Lines with
// no alerts produce no rows.
func (a *Archive) RecordCycle(ctx context.Context, recordedAt time.Time, snap map[string]snapshot.Line) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cycleID := uuid.New().String()
	ts := recordedAt.UTC().Format(time.RFC3339)

	total := 0
	for _, line := range snap {
		total += line.Score
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (cycle_id, recorded_at_utc, total_score) VALUES (?, ?, ?)`,
		cycleID, ts, total,
	); err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cycle_alerts (cycle_id, recorded_at_utc, line_id, header, category, score, direction)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for lineID, line := range snap {
		for _, al := range line.Alerts {
			if _, err := stmt.ExecContext(ctx,
				cycleID, ts, lineID, al.Text, al.Category, al.Score, string(al.Direction),
			); err != nil {
				return fmt.Errorf("failed to insert alert row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}

// ArchivedAlert is one archived alert row.
type ArchivedAlert struct {
	CycleID    string `json:"cycle_id"`
	RecordedAt string `json:"recorded_at"`
	Line       string `json:"line"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Score      int    `json:"score"`
	Direction  string `json:"direction"`
}

// RecentAlerts returns archived alert rows recorded at or after since,
// newest first.
func (a *Archive) RecentAlerts(ctx context.Context, since time.Time) ([]ArchivedAlert, error) {
	rows, err := a.conn.QueryContext(ctx, `
		SELECT cycle_id, recorded_at_utc, line_id, header, category, score, direction
		FROM cycle_alerts
		WHERE recorded_at_utc >= ?
		ORDER BY recorded_at_utc DESC`,
		since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []ArchivedAlert{}
	for rows.Next() {
		var al ArchivedAlert
		if err := rows.Scan(&al.CycleID, &al.RecordedAt, &al.Line, &al.Text, &al.Category, &al.Score, &al.Direction); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alerts = append(alerts, al)
	}
	return alerts, rows.Err()
}

// Cleanup deletes archive rows older than the retention window.
func (a *Archive) Cleanup(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		retentionDays = 1
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	totalDeleted := 0
	for _, table := range []string{"cycle_alerts", "cycles"} {
		result, err := a.conn.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE recorded_at_utc < ?", table), cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", table, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if totalDeleted > 0 {
		log.Printf("Cleanup: deleted %d archive records older than %d days", totalDeleted, retentionDays)
	}
	return nil
}
