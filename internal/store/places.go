package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"homebase/location-server/internal/model"
)

const defaultPlaceColor = "#3b82f6"

// CreatePlace saves a new place owned by p.OwnerUserID.
func (s *Store) CreatePlace(ctx context.Context, p model.Place) (model.Place, error) {
	if s.db == nil {
		return model.Place{}, ErrNotInitialized
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Color == "" {
		p.Color = defaultPlaceColor
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO places (id, owner_user_id, name, latitude, longitude, category, color, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		p.ID, p.OwnerUserID, p.Name, p.Latitude, p.Longitude, nullString(p.Category), p.Color, formatTime(p.CreatedAt))
	if err != nil {
		return model.Place{}, fmt.Errorf("insert place: %w", err)
	}
	return p, nil
}

// DeletePlace removes a place. Only the owner may delete it.
func (s *Store) DeletePlace(ctx context.Context, id, ownerUserID string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM places WHERE id = ? AND owner_user_id = ?;`, id, ownerUserID)
	if err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	return requireAffected(res)
}

// GetFamilyScopePlaces returns the places owned by anyone in userID's family scope, oldest first.
func (s *Store) GetFamilyScopePlaces(ctx context.Context, userID string) ([]model.Place, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, familyScopeCTE+`
		SELECT p.id, p.owner_user_id, p.name, p.latitude, p.longitude, p.category, p.color, p.created_at
		FROM places p JOIN scope ON p.owner_user_id = scope.id
		ORDER BY p.created_at, p.id;`, userID)
	if err != nil {
		return nil, fmt.Errorf("query family places: %w", err)
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		var (
			p         model.Place
			category  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.OwnerUserID, &p.Name, &p.Latitude, &p.Longitude, &category, &p.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		p.Category = stringPtr(category)
		p.CreatedAt = parseTime(createdAt)
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return places, nil
}
