package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roomColumns = `id, room_type, room_identifier, name, opens_at, closes_at, is_active, is_read_only,
	owner_id, invite_code, max_guests, created_at`

const participantColumns = `id, room_id, user_id, is_birthday_mate, joined_at, last_seen`

// RoomRepository handles database operations for rooms and their participants
type RoomRepository struct {
	db *pgxpool.Pool
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func scanRoom(row scanner) (*models.Room, error) {
	var rm models.Room
	err := row.Scan(
		&rm.ID, &rm.RoomType, &rm.RoomIdentifier, &rm.Name, &rm.OpensAt, &rm.ClosesAt, &rm.IsActive, &rm.IsReadOnly,
		&rm.OwnerID, &rm.InviteCode, &rm.MaxGuests, &rm.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func roomArgs(rm *models.Room) []any {
	return []any{
		rm.ID, rm.RoomType, rm.RoomIdentifier, rm.Name, rm.OpensAt, rm.ClosesAt, rm.IsActive, rm.IsReadOnly,
		rm.OwnerID, rm.InviteCode, rm.MaxGuests, rm.CreatedAt,
	}
}

// Create inserts a room
func (r *RoomRepository) Create(ctx context.Context, rm *models.Room) error {
	query := `INSERT INTO rooms (` + roomColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.Exec(ctx, query, roomArgs(rm)...); err != nil {
		return wrapErr(err, "room")
	}
	return nil
}

// GetOrCreate inserts rm unless a room with the same identifier and opening
// time exists, and returns whichever row is stored. Concurrent callers all
// receive the same room.
func (r *RoomRepository) GetOrCreate(ctx context.Context, rm *models.Room) (*models.Room, error) {
	query := `
		INSERT INTO rooms (` + roomColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (room_identifier, opens_at) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, roomArgs(rm)...); err != nil {
		return nil, wrapErr(err, "room")
	}
	return r.GetByIdentifier(ctx, rm.RoomIdentifier, rm.OpensAt)
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "room")
	}
	return rm, nil
}

// GetByIdentifier retrieves the room with the identifier opening at opensAt
func (r *RoomRepository) GetByIdentifier(ctx context.Context, identifier string, opensAt time.Time) (*models.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_identifier = $1 AND opens_at = $2`, identifier, opensAt))
	if err != nil {
		return nil, wrapErr(err, "room")
	}
	return rm, nil
}

// GetByInviteCode retrieves a room by its invite code
func (r *RoomRepository) GetByInviteCode(ctx context.Context, code string) (*models.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE invite_code = $1`, code))
	if err != nil {
		return nil, wrapErr(err, "room")
	}
	return rm, nil
}

// AddParticipant adds a member to a room; adding an existing member is a no-op
func (r *RoomRepository) AddParticipant(ctx context.Context, p *models.RoomParticipant) error {
	query := `
		INSERT INTO room_participants (` + participantColumns + `) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, user_id) DO UPDATE SET last_seen = EXCLUDED.last_seen
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.RoomID, p.UserID, p.IsBirthdayMate, p.JoinedAt, p.LastSeen)
	if err != nil {
		return wrapErr(err, "participant")
	}
	return nil
}

// JoinWithLimit adds a member unless the room already holds limit participants,
// in which case it fails with models.ErrFull. Existing members rejoin freely.
func (r *RoomRepository) JoinWithLimit(ctx context.Context, p *models.RoomParticipant, limit int) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM rooms WHERE id = $1 FOR UPDATE`, p.RoomID); err != nil {
			return wrapErr(err, "room")
		}

		var member bool
		var count int
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(bool_or(user_id = $2), FALSE), COUNT(*)
			FROM room_participants WHERE room_id = $1`, p.RoomID, p.UserID,
		).Scan(&member, &count)
		if err != nil {
			return wrapErr(err, "participants")
		}
		if !member && count >= limit {
			return fmt.Errorf("room: %w", models.ErrFull)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO room_participants (`+participantColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (room_id, user_id) DO UPDATE SET last_seen = EXCLUDED.last_seen`,
			p.ID, p.RoomID, p.UserID, p.IsBirthdayMate, p.JoinedAt, p.LastSeen,
		)
		if err != nil {
			return wrapErr(err, "participant")
		}
		return nil
	})
}

// IsParticipant reports whether the user is a member of the room
func (r *RoomRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id = $1 AND user_id = $2)`, roomID, userID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr(err, "participant")
	}
	return exists, nil
}

// ListParticipants returns the members of a room in join order
func (r *RoomRepository) ListParticipants(ctx context.Context, roomID string) ([]*models.RoomParticipant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+participantColumns+` FROM room_participants WHERE room_id = $1 ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, wrapErr(err, "participants")
	}
	defer rows.Close()

	var ps []*models.RoomParticipant
	for rows.Next() {
		var p models.RoomParticipant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.IsBirthdayMate, &p.JoinedAt, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ps = append(ps, &p)
	}
	return ps, rows.Err()
}
