package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const invitationColumns = `id, wall_id, invitation_type, invited_user_id, invited_email, invited_name, invite_code,
	is_accepted, accepted_by, accepted_at, created_at`

// InvitationRepository handles database operations for wall invitations
type InvitationRepository struct {
	db *pgxpool.Pool
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func scanInvitation(row scanner) (*models.WallInvitation, error) {
	var inv models.WallInvitation
	err := row.Scan(
		&inv.ID, &inv.WallID, &inv.InvitationType, &inv.InvitedUserID, &inv.InvitedEmail, &inv.InvitedName,
		&inv.InviteCode, &inv.IsAccepted, &inv.AcceptedBy, &inv.AcceptedAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invitation. Duplicate invitee per wall fails with models.ErrConflict.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.WallInvitation) error {
	query := `INSERT INTO wall_invitations (` + invitationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		inv.ID, inv.WallID, inv.InvitationType, inv.InvitedUserID, inv.InvitedEmail, inv.InvitedName,
		inv.InviteCode, inv.IsAccepted, inv.AcceptedBy, inv.AcceptedAt, inv.CreatedAt,
	)
	if err != nil {
		return wrapErr(err, "invitation")
	}
	return nil
}

// GetByCode retrieves an invitation by its code
func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*models.WallInvitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx, `SELECT `+invitationColumns+` FROM wall_invitations WHERE invite_code = $1`, code))
	if err != nil {
		return nil, wrapErr(err, "invitation")
	}
	return inv, nil
}

// ListByWall returns a wall's invitations, newest first
func (r *InvitationRepository) ListByWall(ctx context.Context, wallID string) ([]*models.WallInvitation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+invitationColumns+` FROM wall_invitations WHERE wall_id = $1 ORDER BY created_at DESC`, wallID)
	if err != nil {
		return nil, wrapErr(err, "invitations")
	}
	defer rows.Close()

	var invs []*models.WallInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// ExistsForUser reports whether the user was already invited to the wall
func (r *InvitationRepository) ExistsForUser(ctx context.Context, wallID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wall_invitations WHERE wall_id = $1 AND invited_user_id = $2)`, wallID, userID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "invitation")
	}
	return exists, nil
}

// ExistsForEmail reports whether the email was already invited to the wall
func (r *InvitationRepository) ExistsForEmail(ctx context.Context, wallID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wall_invitations WHERE wall_id = $1 AND lower(invited_email) = lower($2))`,
		wallID, email,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "invitation")
	}
	return exists, nil
}

// HasAccepted reports whether the user holds an accepted invitation to the wall
func (r *InvitationRepository) HasAccepted(ctx context.Context, wallID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wall_invitations WHERE wall_id = $1 AND accepted_by = $2 AND is_accepted)`,
		wallID, userID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "invitation")
	}
	return exists, nil
}

// Accept marks a pending invitation accepted by userID. An invitation that was
// already accepted fails with models.ErrConflict.
func (r *InvitationRepository) Accept(ctx context.Context, id, userID string, at time.Time) error {
	result, err := r.db.Exec(ctx,
		`UPDATE wall_invitations SET is_accepted = TRUE, accepted_by = $2, accepted_at = $3 WHERE id = $1 AND NOT is_accepted`,
		id, userID, at,
	)
	if err != nil {
		return wrapErr(err, "invitation")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invitation: %w", models.ErrConflict)
	}
	return nil
}
