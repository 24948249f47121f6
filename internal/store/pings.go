package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"homebase/location-server/internal/model"
)

// SaveLocationPing appends a ping. Missing id, kind and timestamp are filled in.
func (s *Store) SaveLocationPing(ctx context.Context, p model.LocationPing) (model.LocationPing, error) {
	if s.db == nil {
		return model.LocationPing{}, ErrNotInitialized
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Kind == "" {
		p.Kind = model.PingManual
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now()
	}
	p.Timestamp = p.Timestamp.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO location_pings (id, user_id, latitude, longitude, accuracy, address, kind, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		p.ID, p.UserID, p.Latitude, p.Longitude, nullFloat(p.Accuracy), nullString(p.Address), string(p.Kind), formatTime(p.Timestamp))
	if err != nil {
		return model.LocationPing{}, fmt.Errorf("insert location ping: %w", err)
	}
	return p, nil
}

// GetLatestPing returns the user's most recent ping.
func (s *Store) GetLatestPing(ctx context.Context, userID string) (model.LocationPing, error) {
	if s.db == nil {
		return model.LocationPing{}, ErrNotInitialized
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, latitude, longitude, accuracy, address, kind, recorded_at
		 FROM location_pings WHERE user_id = ?
		 ORDER BY recorded_at DESC, rowid DESC LIMIT 1;`, userID)
	p, err := scanPing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocationPing{}, ErrNotFound
	}
	if err != nil {
		return model.LocationPing{}, fmt.Errorf("get latest ping: %w", err)
	}
	return p, nil
}

// GetPingsSince returns the user's pings recorded at or after since, newest first.
func (s *Store) GetPingsSince(ctx context.Context, userID string, since time.Time) ([]model.LocationPing, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, latitude, longitude, accuracy, address, kind, recorded_at
		 FROM location_pings WHERE user_id = ? AND recorded_at >= ?
		 ORDER BY recorded_at DESC, rowid DESC;`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query pings since: %w", err)
	}
	defer rows.Close()

	var pings []model.LocationPing
	for rows.Next() {
		p, err := scanPing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location ping: %w", err)
		}
		pings = append(pings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location pings: %w", err)
	}
	return pings, nil
}

func scanPing(row rowScanner) (model.LocationPing, error) {
	var (
		p          model.LocationPing
		accuracy   sql.NullFloat64
		address    sql.NullString
		kind       string
		recordedAt string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Latitude, &p.Longitude, &accuracy, &address, &kind, &recordedAt); err != nil {
		return model.LocationPing{}, err
	}
	p.Accuracy = floatPtr(accuracy)
	p.Address = stringPtr(address)
	p.Kind = model.PingKind(kind)
	p.Timestamp = parseTime(recordedAt)
	return p, nil
}
