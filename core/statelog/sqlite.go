package statelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/parkpulse/parkpulse/core/model"
)

// SQLiteStore persists transitions to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS spot_transitions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER,
        lot_id TEXT,
        spot_id TEXT,
        source TEXT,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the transition to the database.
func (s *SQLiteStore) Append(ctx context.Context, tr model.Transition) error {
	b, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO spot_transitions (ts, lot_id, spot_id, source, record) VALUES (?, ?, ?, ?, ?)`,
		tr.Timestamp.Unix(), tr.LotID, tr.SpotID, string(tr.Source), string(b))
	return err
}

// Query returns transitions matching q in timestamp order.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]model.Transition, error) {
	var args []any
	query := `SELECT record FROM spot_transitions WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.Unix())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.Unix())
	}
	if q.LotID != "" {
		query += ` AND lot_id = ?`
		args = append(args, q.LotID)
	}
	if q.SpotID != "" {
		query += ` AND spot_id = ?`
		args = append(args, q.SpotID)
	}
	if q.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(q.Source))
	}
	query += ` ORDER BY ts, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Transition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var tr model.Transition
		if err := json.Unmarshal([]byte(data), &tr); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
