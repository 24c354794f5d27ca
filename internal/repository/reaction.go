package repository

import (
	"context"
	"fmt"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReactionRepository handles database operations for photo reactions
type ReactionRepository struct {
	db *pgxpool.Pool
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Get retrieves the reaction of a user on a photo
func (r *ReactionRepository) Get(ctx context.Context, photoID, userID string) (*models.PhotoReaction, error) {
	var pr models.PhotoReaction
	err := r.db.QueryRow(ctx,
		`SELECT id, photo_id, user_id, emoji, created_at FROM photo_reactions WHERE photo_id = $1 AND user_id = $2`,
		photoID, userID,
	).Scan(&pr.ID, &pr.PhotoID, &pr.UserID, &pr.Emoji, &pr.CreatedAt)
	if err != nil {
		return nil, wrapErr(err, "reaction")
	}
	return &pr, nil
}

// Upsert stores the reaction, replacing any earlier reaction by the same user on the same photo
func (r *ReactionRepository) Upsert(ctx context.Context, pr *models.PhotoReaction) error {
	query := `
		INSERT INTO photo_reactions (id, photo_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (photo_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = EXCLUDED.created_at
	`
	if _, err := r.db.Exec(ctx, query, pr.ID, pr.PhotoID, pr.UserID, pr.Emoji, pr.CreatedAt); err != nil {
		return wrapErr(err, "reaction")
	}
	return nil
}

// Delete removes the reaction of a user on a photo if it still carries emoji
func (r *ReactionRepository) Delete(ctx context.Context, photoID, userID, emoji string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM photo_reactions WHERE photo_id = $1 AND user_id = $2 AND emoji = $3`, photoID, userID, emoji)
	if err != nil {
		return wrapErr(err, "reaction")
	}
	return nil
}

// ListByPhotos returns all reactions on the given photos
func (r *ReactionRepository) ListByPhotos(ctx context.Context, photoIDs []string) ([]*models.PhotoReaction, error) {
	if len(photoIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, photo_id, user_id, emoji, created_at FROM photo_reactions WHERE photo_id = ANY($1)`, photoIDs)
	if err != nil {
		return nil, wrapErr(err, "reactions")
	}
	defer rows.Close()

	var reactions []*models.PhotoReaction
	for rows.Next() {
		var pr models.PhotoReaction
		if err := rows.Scan(&pr.ID, &pr.PhotoID, &pr.UserID, &pr.Emoji, &pr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		reactions = append(reactions, &pr)
	}
	return reactions, rows.Err()
}
