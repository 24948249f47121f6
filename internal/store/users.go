package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"homebase/location-server/internal/model"
)

// UpsertUser creates the user or refreshes its profile fields. Sharing is only set on insert.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, location_sharing, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET email = excluded.email,
				first_name = excluded.first_name,
				last_name = excluded.last_name;`,
		u.ID,
		u.Email,
		nullString(u.FirstName),
		nullString(u.LastName),
		boolInt(u.LocationSharing),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	if s.db == nil {
		return model.User{}, ErrNotInitialized
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, location_sharing FROM users WHERE id = ?;`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetLocationSharing toggles whether the user's history is visible to family.
func (s *Store) SetLocationSharing(ctx context.Context, id string, enabled bool) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users SET location_sharing = ? WHERE id = ?;`, boolInt(enabled), id)
	if err != nil {
		return fmt.Errorf("set location sharing: %w", err)
	}
	return requireAffected(res)
}

// ListSharingUsers returns all users with location sharing enabled.
func (s *Store) ListSharingUsers(ctx context.Context) ([]model.User, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, location_sharing FROM users WHERE location_sharing = 1 ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("query sharing users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// CreateFamilyConnection records a pending connection request.
func (s *Store) CreateFamilyConnection(ctx context.Context, requesterID, addresseeID string) (model.FamilyConnection, error) {
	if s.db == nil {
		return model.FamilyConnection{}, ErrNotInitialized
	}
	if requesterID == addresseeID {
		return model.FamilyConnection{}, fmt.Errorf("create family connection: cannot connect user to itself")
	}

	conn := model.FamilyConnection{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      model.ConnectionPending,
		CreatedAt:   s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO family_connections (id, requester_id, addressee_id, status, created_at) VALUES (?, ?, ?, ?, ?);`,
		conn.ID, conn.RequesterID, conn.AddresseeID, string(conn.Status), formatTime(conn.CreatedAt))
	if err != nil {
		return model.FamilyConnection{}, fmt.Errorf("insert family connection: %w", err)
	}
	return conn, nil
}

// AcceptFamilyConnection accepts a pending request. Only the addressee may accept.
func (s *Store) AcceptFamilyConnection(ctx context.Context, id, addresseeID string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE family_connections SET status = 'accepted' WHERE id = ? AND addressee_id = ?;`, id, addresseeID)
	if err != nil {
		return fmt.Errorf("accept family connection: %w", err)
	}
	return requireAffected(res)
}

// GetFamilyMembers returns every user transitively connected to userID over
// accepted connections, excluding userID itself.
func (s *Store) GetFamilyMembers(ctx context.Context, userID string) ([]model.User, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, familyScopeCTE+`
		SELECT u.id, u.email, u.first_name, u.last_name, u.location_sharing
		FROM users u JOIN scope ON u.id = scope.id
		WHERE u.id <> ?
		ORDER BY u.id;`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u         model.User
		firstName sql.NullString
		lastName  sql.NullString
		sharing   int
	)
	if err := row.Scan(&u.ID, &u.Email, &firstName, &lastName, &sharing); err != nil {
		return model.User{}, err
	}
	u.FirstName = stringPtr(firstName)
	u.LastName = stringPtr(lastName)
	u.LocationSharing = sharing != 0
	return u, nil
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
