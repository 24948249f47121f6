package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"homebase/location-server/internal/model"
)

// CreateNotification persists a notification for n.UserID.
func (s *Store) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if s.db == nil {
		return model.Notification{}, ErrNotInitialized
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	var data sql.NullString
	if len(n.Data) > 0 {
		raw, err := json.Marshal(n.Data)
		if err != nil {
			return model.Notification{}, fmt.Errorf("encode notification data: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, data, boolInt(n.IsRead), formatTime(n.CreatedAt))
	if err != nil {
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns the recipient's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, message, data, is_read, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?;`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0, limit)
	for rows.Next() {
		var (
			n         model.Notification
			typ       string
			data      sql.NullString
			isRead    int
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &data, &isRead, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = model.NotificationType(typ)
		n.IsRead = isRead != 0
		n.CreatedAt = parseTime(createdAt)
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &n.Data); err != nil {
				return nil, fmt.Errorf("decode notification data: %w", err)
			}
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read. Only the recipient may do so.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?;`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res)
}
