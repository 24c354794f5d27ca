package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const wallColumns = `id, owner_id, title, theme, accent_color, background_animation, background_color,
	animation_intensity, opens_at, closes_at, birthday_year, public_url_code, is_active, is_public,
	view_count, max_photos, allow_reactions, uploads_enabled, upload_permission, upload_paused,
	is_sealed, sealed_at, created_at, updated_at`

// WallRepository handles database operations for birthday walls
type WallRepository struct {
	db *pgxpool.Pool
}

// NewWallRepository creates a new wall repository
func NewWallRepository(db *pgxpool.Pool) *WallRepository {
	return &WallRepository{db: db}
}

func scanWall(row scanner) (*models.BirthdayWall, error) {
	var w models.BirthdayWall
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Title, &w.Theme, &w.AccentColor, &w.BackgroundAnimation, &w.BackgroundColor,
		&w.AnimationIntensity, &w.OpensAt, &w.ClosesAt, &w.BirthdayYear, &w.PublicURLCode, &w.IsActive, &w.IsPublic,
		&w.ViewCount, &w.MaxPhotos, &w.AllowReactions, &w.UploadsEnabled, &w.UploadPermission, &w.UploadPaused,
		&w.IsSealed, &w.SealedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a wall. A second wall for the same owner and birthday year
// fails with models.ErrConflict.
func (r *WallRepository) Create(ctx context.Context, w *models.BirthdayWall) error {
	query := `
		INSERT INTO birthday_walls (` + wallColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24)
	`
	_, err := r.db.Exec(ctx, query,
		w.ID, w.OwnerID, w.Title, w.Theme, w.AccentColor, w.BackgroundAnimation, w.BackgroundColor,
		w.AnimationIntensity, w.OpensAt, w.ClosesAt, w.BirthdayYear, w.PublicURLCode, w.IsActive, w.IsPublic,
		w.ViewCount, w.MaxPhotos, w.AllowReactions, w.UploadsEnabled, w.UploadPermission, w.UploadPaused,
		w.IsSealed, w.SealedAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "wall")
	}
	return nil
}

// GetByID retrieves a wall by ID
func (r *WallRepository) GetByID(ctx context.Context, id string) (*models.BirthdayWall, error) {
	w, err := scanWall(r.db.QueryRow(ctx, `SELECT `+wallColumns+` FROM birthday_walls WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "wall")
	}
	return w, nil
}

// GetByCode retrieves a wall by its public share code
func (r *WallRepository) GetByCode(ctx context.Context, code string) (*models.BirthdayWall, error) {
	w, err := scanWall(r.db.QueryRow(ctx, `SELECT `+wallColumns+` FROM birthday_walls WHERE public_url_code = $1`, code))
	if err != nil {
		return nil, wrapErr(err, "wall")
	}
	return w, nil
}

// GetCurrentByOwner retrieves the owner's wall that has not yet closed
func (r *WallRepository) GetCurrentByOwner(ctx context.Context, ownerID string, now time.Time) (*models.BirthdayWall, error) {
	query := `
		SELECT ` + wallColumns + `
		FROM birthday_walls
		WHERE owner_id = $1 AND closes_at > $2
		ORDER BY closes_at
		LIMIT 1
	`
	w, err := scanWall(r.db.QueryRow(ctx, query, ownerID, now))
	if err != nil {
		return nil, wrapErr(err, "wall")
	}
	return w, nil
}

// ListByOwner returns every wall of an owner, newest birthday first
func (r *WallRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.BirthdayWall, error) {
	query := `SELECT ` + wallColumns + ` FROM birthday_walls WHERE owner_id = $1 ORDER BY birthday_year DESC, created_at DESC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, wrapErr(err, "walls")
	}
	defer rows.Close()

	var walls []*models.BirthdayWall
	for rows.Next() {
		w, err := scanWall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wall: %w", err)
		}
		walls = append(walls, w)
	}
	return walls, rows.Err()
}

// IncrementViewCount adds one view
func (r *WallRepository) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE birthday_walls SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err, "wall")
	}
	return nil
}

// UpdateUploadControl persists the upload control flags of a wall
func (r *WallRepository) UpdateUploadControl(ctx context.Context, w *models.BirthdayWall) error {
	query := `
		UPDATE birthday_walls
		SET uploads_enabled = $2, upload_permission = $3, upload_paused = $4, is_sealed = $5, sealed_at = $6,
			updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		w.ID, w.UploadsEnabled, w.UploadPermission, w.UploadPaused, w.IsSealed, w.SealedAt, w.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "wall")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wall not found: %w", models.ErrNotFound)
	}
	return nil
}
