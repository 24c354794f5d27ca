package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const buddyColumns = `id, user_1_id, user_2_id, birthday_date, room_id, is_active, user_1_accepted, user_2_accepted,
	is_revealed, created_at, expires_at`

// BuddyRepository handles database operations for birthday buddy pairings
type BuddyRepository struct {
	db *pgxpool.Pool
}

// NewBuddyRepository creates a new buddy repository
func NewBuddyRepository(db *pgxpool.Pool) *BuddyRepository {
	return &BuddyRepository{db: db}
}

func scanBuddy(row scanner) (*models.BirthdayBuddy, error) {
	var b models.BirthdayBuddy
	err := row.Scan(
		&b.ID, &b.User1ID, &b.User2ID, &b.BirthdayDate, &b.RoomID, &b.IsActive, &b.User1Accepted, &b.User2Accepted,
		&b.IsRevealed, &b.CreatedAt, &b.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves a pairing by ID
func (r *BuddyRepository) GetByID(ctx context.Context, id string) (*models.BirthdayBuddy, error) {
	b, err := scanBuddy(r.db.QueryRow(ctx, `SELECT `+buddyColumns+` FROM birthday_buddies WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "buddy pairing")
	}
	return b, nil
}

// GetActiveForUser retrieves the user's active pairing for a birthday date
func (r *BuddyRepository) GetActiveForUser(ctx context.Context, userID string, birthday time.Time) (*models.BirthdayBuddy, error) {
	query := `
		SELECT ` + buddyColumns + `
		FROM birthday_buddies
		WHERE is_active AND birthday_date = $2 AND (user_1_id = $1 OR user_2_id = $1)
		LIMIT 1
	`
	b, err := scanBuddy(r.db.QueryRow(ctx, query, userID, birthday))
	if err != nil {
		return nil, wrapErr(err, "buddy pairing")
	}
	return b, nil
}

// CreatePairing pairs b.User1ID with the earliest registered active user who
// shares the birthday and has no active pairing for it. Matching for one
// birthday date is serialized with a transaction-scoped advisory lock.
// Returns models.ErrConflict if User1ID is already paired and
// models.ErrNotFound if no candidate exists.
func (r *BuddyRepository) CreatePairing(ctx context.Context, b *models.BirthdayBuddy, month, day int) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		lockKey := "buddy:" + b.BirthdayDate.Format("2006-01-02")
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("failed to lock buddy matching: %w", err)
		}

		var paired bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM birthday_buddies
			WHERE is_active AND birthday_date = $2 AND (user_1_id = $1 OR user_2_id = $1))`,
			b.User1ID, b.BirthdayDate,
		).Scan(&paired)
		if err != nil {
			return wrapErr(err, "buddy pairing")
		}
		if paired {
			return fmt.Errorf("buddy pairing: %w", models.ErrConflict)
		}

		err = tx.QueryRow(ctx, `
			SELECT u.id FROM users u
			WHERE u.birth_month = $1 AND u.birth_day = $2 AND u.is_active AND u.id <> $3
				AND NOT EXISTS (
					SELECT 1 FROM birthday_buddies bb
					WHERE bb.is_active AND bb.birthday_date = $4 AND (bb.user_1_id = u.id OR bb.user_2_id = u.id)
				)
			ORDER BY u.created_at, u.id
			LIMIT 1`,
			month, day, b.User1ID, b.BirthdayDate,
		).Scan(&b.User2ID)
		if err != nil {
			return wrapErr(err, "buddy candidate")
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO birthday_buddies (`+buddyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			b.ID, b.User1ID, b.User2ID, b.BirthdayDate, b.RoomID, b.IsActive, b.User1Accepted, b.User2Accepted,
			b.IsRevealed, b.CreatedAt, b.ExpiresAt,
		)
		if err != nil {
			return wrapErr(err, "buddy pairing")
		}
		return nil
	})
}

// Accept sets the accepted flag of whichever member userID is and returns
// the updated row. Only the caller's column changes, so concurrent answers
// from both members both stick. Returns models.ErrNotFound when the pairing
// is missing or no longer active.
func (r *BuddyRepository) Accept(ctx context.Context, id, userID string) (*models.BirthdayBuddy, error) {
	var b *models.BirthdayBuddy
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var active bool
		err := tx.QueryRow(ctx, `SELECT is_active FROM birthday_buddies WHERE id = $1 FOR UPDATE`, id).Scan(&active)
		if err != nil {
			return wrapErr(err, "buddy pairing")
		}
		if !active {
			return fmt.Errorf("buddy pairing inactive: %w", models.ErrNotFound)
		}

		b, err = scanBuddy(tx.QueryRow(ctx, `
			UPDATE birthday_buddies
			SET user_1_accepted = user_1_accepted OR user_1_id = $2,
				user_2_accepted = user_2_accepted OR user_2_id = $2
			WHERE id = $1
			RETURNING `+buddyColumns,
			id, userID,
		))
		if err != nil {
			return wrapErr(err, "buddy pairing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Reveal marks a mutually accepted pairing revealed and records its room. It
// reports false when another caller revealed it first.
func (r *BuddyRepository) Reveal(ctx context.Context, id, roomID string) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE birthday_buddies
		SET is_revealed = TRUE, room_id = $2
		WHERE id = $1 AND is_active AND user_1_accepted AND user_2_accepted AND NOT is_revealed`,
		id, roomID,
	)
	if err != nil {
		return false, wrapErr(err, "buddy pairing")
	}
	return result.RowsAffected() == 1, nil
}

// Deactivate ends a pairing
func (r *BuddyRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `UPDATE birthday_buddies SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err, "buddy pairing")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("buddy pairing not found: %w", models.ErrNotFound)
	}
	return nil
}
