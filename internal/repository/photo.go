package repository

import (
	"context"
	"fmt"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const photoColumns = `id, wall_id, photo_url, caption, uploaded_by_user_id, uploaded_by_name, display_order,
	frame_style, is_approved, created_at`

// PhotoRepository handles database operations for wall photos and upload allowances
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row scanner) (*models.WallPhoto, error) {
	var p models.WallPhoto
	err := row.Scan(
		&p.ID, &p.WallID, &p.PhotoURL, &p.Caption, &p.UploadedByUserID, &p.UploadedByName, &p.DisplayOrder,
		&p.FrameStyle, &p.IsApproved, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateWithUpload inserts the photo and the uploader's allowance row in one
// transaction. If the uploader already used their allowance the whole write
// fails with models.ErrConflict and no photo is stored. The display order is
// assigned inside the transaction, and the photo limit is re-checked there
// too, failing with models.ErrFull.
func (r *PhotoRepository) CreateWithUpload(ctx context.Context, p *models.WallPhoto, u *models.WallUpload, maxPhotos int) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO wall_uploads (wall_id, uploader_id, photo_id, created_at) VALUES ($1, $2, NULL, $3)`,
			u.WallID, u.UploaderID, u.CreatedAt,
		)
		if err != nil {
			return wrapErr(err, "wall upload")
		}

		// lock the wall row so concurrent uploads see each other's counts
		if _, err := tx.Exec(ctx, `SELECT 1 FROM birthday_walls WHERE id = $1 FOR UPDATE`, p.WallID); err != nil {
			return wrapErr(err, "wall")
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM wall_photos WHERE wall_id = $1`, p.WallID).Scan(&count); err != nil {
			return wrapErr(err, "wall photos")
		}
		if count >= maxPhotos {
			return fmt.Errorf("wall photos: %w", models.ErrFull)
		}
		p.DisplayOrder = count

		query := `INSERT INTO wall_photos (` + photoColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err = tx.Exec(ctx, query,
			p.ID, p.WallID, p.PhotoURL, p.Caption, p.UploadedByUserID, p.UploadedByName, p.DisplayOrder,
			p.FrameStyle, p.IsApproved, p.CreatedAt,
		)
		if err != nil {
			return wrapErr(err, "wall photo")
		}

		_, err = tx.Exec(ctx, `UPDATE wall_uploads SET photo_id = $3 WHERE wall_id = $1 AND uploader_id = $2`,
			u.WallID, u.UploaderID, p.ID)
		if err != nil {
			return wrapErr(err, "wall upload")
		}
		u.PhotoID = p.ID
		return nil
	})
}

// HasUploaded reports whether the user already used their upload on the wall
func (r *PhotoRepository) HasUploaded(ctx context.Context, wallID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wall_uploads WHERE wall_id = $1 AND uploader_id = $2)`, wallID, userID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "wall upload")
	}
	return exists, nil
}

// CountByWall counts all photos on a wall
func (r *PhotoRepository) CountByWall(ctx context.Context, wallID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wall_photos WHERE wall_id = $1`, wallID).Scan(&n); err != nil {
		return 0, wrapErr(err, "wall photos")
	}
	return n, nil
}

// CountApprovedByWall counts approved photos on a wall
func (r *PhotoRepository) CountApprovedByWall(ctx context.Context, wallID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wall_photos WHERE wall_id = $1 AND is_approved`, wallID).Scan(&n)
	if err != nil {
		return 0, wrapErr(err, "wall photos")
	}
	return n, nil
}

// ListByWall returns photos in display order
func (r *PhotoRepository) ListByWall(ctx context.Context, wallID string, approvedOnly bool) ([]*models.WallPhoto, error) {
	query := `SELECT ` + photoColumns + ` FROM wall_photos WHERE wall_id = $1 AND (is_approved OR NOT $2) ORDER BY display_order, created_at`
	rows, err := r.db.Query(ctx, query, wallID, approvedOnly)
	if err != nil {
		return nil, wrapErr(err, "wall photos")
	}
	defer rows.Close()

	var photos []*models.WallPhoto
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.WallPhoto, error) {
	p, err := scanPhoto(r.db.QueryRow(ctx, `SELECT `+photoColumns+` FROM wall_photos WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "photo")
	}
	return p, nil
}

// Update persists caption, frame and approval
func (r *PhotoRepository) Update(ctx context.Context, p *models.WallPhoto) error {
	result, err := r.db.Exec(ctx,
		`UPDATE wall_photos SET caption = $2, frame_style = $3, is_approved = $4 WHERE id = $1`,
		p.ID, p.Caption, p.FrameStyle, p.IsApproved,
	)
	if err != nil {
		return wrapErr(err, "photo")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo not found: %w", models.ErrNotFound)
	}
	return nil
}

// Delete removes a photo. The uploader's allowance row stays, so deleting
// does not grant a second upload.
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM wall_photos WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err, "photo")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo not found: %w", models.ErrNotFound)
	}
	return nil
}
