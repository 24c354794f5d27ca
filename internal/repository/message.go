package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const messageColumns = `id, room_id, user_id, content, is_flagged, is_deleted, created_at, updated_at`

// MessageRepository handles database operations for room messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row scanner) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.IsFlagged, &m.IsDeleted, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a message
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.RoomID, m.UserID, m.Content, m.IsFlagged, m.IsDeleted, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "message")
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "message")
	}
	return m, nil
}

// ListByRoom returns the latest limit visible messages, oldest first
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + ` FROM messages
			WHERE room_id = $1 AND NOT is_deleted
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, wrapErr(err, "messages")
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UpdateContent replaces the content of a message
func (r *MessageRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) error {
	result, err := r.db.Exec(ctx, `UPDATE messages SET content = $2, updated_at = $3 WHERE id = $1`, id, content, at)
	if err != nil {
		return wrapErr(err, "message")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("message not found: %w", models.ErrNotFound)
	}
	return nil
}

// SoftDelete hides a message without removing the row
func (r *MessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.Exec(ctx, `UPDATE messages SET is_deleted = TRUE, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return wrapErr(err, "message")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("message not found: %w", models.ErrNotFound)
	}
	return nil
}
