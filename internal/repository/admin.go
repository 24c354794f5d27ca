package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flagColumns = `id, content_type, content_id, reported_by, reason, status, reviewed_by, reviewed_at, created_at`

// AdminRepository handles database operations for moderation and platform statistics
type AdminRepository struct {
	db *pgxpool.Pool
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// CreateFlag stores a content report
func (r *AdminRepository) CreateFlag(ctx context.Context, f *models.FlaggedContent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO flagged_content (`+flagColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.ContentType, f.ContentID, f.ReportedBy, f.Reason, f.Status, f.ReviewedBy, f.ReviewedAt, f.CreatedAt,
	)
	if err != nil {
		return wrapErr(err, "flagged content")
	}
	return nil
}

// GetFlag retrieves a content report by ID
func (r *AdminRepository) GetFlag(ctx context.Context, id string) (*models.FlaggedContent, error) {
	var f models.FlaggedContent
	err := r.db.QueryRow(ctx, `SELECT `+flagColumns+` FROM flagged_content WHERE id = $1`, id).Scan(
		&f.ID, &f.ContentType, &f.ContentID, &f.ReportedBy, &f.Reason, &f.Status, &f.ReviewedBy, &f.ReviewedAt, &f.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr(err, "flagged content")
	}
	return &f, nil
}

// ListFlags returns content reports with the given status, newest first
func (r *AdminRepository) ListFlags(ctx context.Context, status string, limit int) ([]*models.FlaggedContent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+flagColumns+` FROM flagged_content WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	if err != nil {
		return nil, wrapErr(err, "flagged content")
	}
	defer rows.Close()

	var flags []*models.FlaggedContent
	for rows.Next() {
		var f models.FlaggedContent
		if err := rows.Scan(
			&f.ID, &f.ContentType, &f.ContentID, &f.ReportedBy, &f.Reason, &f.Status, &f.ReviewedBy, &f.ReviewedAt, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flagged content: %w", err)
		}
		flags = append(flags, &f)
	}
	return flags, rows.Err()
}

// ResolveFlag records the review outcome of a report
func (r *AdminRepository) ResolveFlag(ctx context.Context, id, status, adminID string, at time.Time) error {
	result, err := r.db.Exec(ctx,
		`UPDATE flagged_content SET status = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $1`, id, status, adminID, at)
	if err != nil {
		return wrapErr(err, "flagged content")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("flagged content not found: %w", models.ErrNotFound)
	}
	return nil
}

// CreateLog stores a moderation log entry
func (r *AdminRepository) CreateLog(ctx context.Context, l *models.ModerationLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO moderation_logs (id, admin_id, action, target_user_id, content_type, content_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.AdminID, l.Action, l.TargetUserID, l.ContentType, l.ContentID, l.Notes, l.CreatedAt,
	)
	if err != nil {
		return wrapErr(err, "moderation log")
	}
	return nil
}

// CreateCelebrity stores a celebrity birthday
func (r *AdminRepository) CreateCelebrity(ctx context.Context, c *models.Celebrity) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO celebrities (id, name, birth_month, birth_day, description, image_url, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.BirthMonth, c.BirthDay, c.Description, c.ImageURL, c.Priority, c.CreatedAt,
	)
	if err != nil {
		return wrapErr(err, "celebrity")
	}
	return nil
}

// ListCelebrities returns celebrities born on (month, day), highest priority first
func (r *AdminRepository) ListCelebrities(ctx context.Context, month, day int) ([]*models.Celebrity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, birth_month, birth_day, description, image_url, priority, created_at
		FROM celebrities WHERE birth_month = $1 AND birth_day = $2
		ORDER BY priority DESC, name`, month, day)
	if err != nil {
		return nil, wrapErr(err, "celebrities")
	}
	defer rows.Close()

	var out []*models.Celebrity
	for rows.Next() {
		var c models.Celebrity
		if err := rows.Scan(&c.ID, &c.Name, &c.BirthMonth, &c.BirthDay, &c.Description, &c.ImageURL, &c.Priority, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan celebrity: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ListContacts returns the latest contact submissions
func (r *AdminRepository) ListContacts(ctx context.Context, limit int) ([]*models.ContactSubmission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, email, subject, message, created_at
		FROM contact_submissions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr(err, "contact submissions")
	}
	defer rows.Close()

	var out []*models.ContactSubmission
	for rows.Next() {
		var c models.ContactSubmission
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact submission: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Overview gathers headline counts in a single round trip
func (r *AdminRepository) Overview(ctx context.Context, month, day int, now time.Time) (*models.Overview, error) {
	var o models.Overview
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_active),
			(SELECT COUNT(*) FROM users WHERE is_active AND birth_month = $1 AND birth_day = $2),
			(SELECT COUNT(*) FROM birthday_walls WHERE is_active AND opens_at <= $3 AND closes_at >= $3),
			(SELECT COUNT(*) FROM rooms WHERE is_active AND opens_at <= $3 AND closes_at >= $3),
			(SELECT COUNT(*) FROM flagged_content WHERE status = 'pending')`,
		month, day, now,
	).Scan(&o.TotalUsers, &o.ActiveUsers, &o.TodayCelebrants, &o.OpenWalls, &o.OpenRooms, &o.PendingFlags)
	if err != nil {
		return nil, wrapErr(err, "overview")
	}
	return &o, nil
}

// Analytics gathers dashboard counts for the period starting at since
func (r *AdminRepository) Analytics(ctx context.Context, month, day int, since time.Time) (*models.Analytics, error) {
	var a models.Analytics
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_active),
			(SELECT COUNT(*) FROM users WHERE created_at >= $3),
			(SELECT COUNT(*) FROM rooms),
			(SELECT COUNT(*) FROM rooms WHERE is_active),
			(SELECT COUNT(*) FROM messages WHERE created_at >= $3),
			(SELECT COUNT(*) FROM gifts WHERE created_at >= $3),
			(SELECT COUNT(*) FROM birthday_walls WHERE created_at >= $3),
			(SELECT COUNT(*) FROM users WHERE is_active AND birth_month = $1 AND birth_day = $2),
			(SELECT COUNT(*) FROM flagged_content WHERE status = 'pending'),
			(SELECT COUNT(*) FROM moderation_logs WHERE created_at >= $3)`,
		month, day, since,
	).Scan(
		&a.Users.Total, &a.Users.Active, &a.Users.NewInPeriod,
		&a.Engagement.TotalRooms, &a.Engagement.ActiveRooms, &a.Engagement.MessagesInPeriod,
		&a.Engagement.GiftsSentInPeriod, &a.Engagement.WallsCreatedInPeriod, &a.Engagement.TodaysCelebrants,
		&a.Moderation.PendingFlags, &a.Moderation.ActionsInPeriod,
	)
	if err != nil {
		return nil, wrapErr(err, "analytics")
	}
	return &a, nil
}

var seriesTables = map[string]string{
	models.SeriesUsers:    "users",
	models.SeriesMessages: "messages",
	models.SeriesGifts:    "gifts",
	models.SeriesWalls:    "birthday_walls",
}

// DailyCounts counts rows of a series per UTC day since the given instant
func (r *AdminRepository) DailyCounts(ctx context.Context, series string, since time.Time) ([]models.DailyCount, error) {
	table, ok := seriesTables[series]
	if !ok {
		return nil, fmt.Errorf("unknown series %q", series)
	}
	rows, err := r.db.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM `+table+`
		WHERE created_at >= $1
		GROUP BY day ORDER BY day`, since)
	if err != nil {
		return nil, wrapErr(err, series)
	}
	defer rows.Close()

	var out []models.DailyCount
	for rows.Next() {
		var c models.DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Geography ranks countries and states by active users
func (r *AdminRepository) Geography(ctx context.Context, limit int) (*models.Geography, error) {
	var g models.Geography

	rows, err := r.db.Query(ctx, `
		SELECT country, COUNT(*) FROM users WHERE is_active
		GROUP BY country ORDER BY COUNT(*) DESC, country LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr(err, "countries")
	}
	for rows.Next() {
		var c models.CountryCount
		if err := rows.Scan(&c.Country, &c.UserCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan country count: %w", err)
		}
		g.TopCountries = append(g.TopCountries, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "countries")
	}

	rows, err = r.db.Query(ctx, `
		SELECT state, country, COUNT(*) FROM users WHERE is_active
		GROUP BY state, country ORDER BY COUNT(*) DESC, state LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr(err, "states")
	}
	defer rows.Close()
	for rows.Next() {
		var s models.RegionCount
		if err := rows.Scan(&s.State, &s.Country, &s.UserCount); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		g.TopStates = append(g.TopStates, s)
	}
	return &g, rows.Err()
}

// TribeSizes ranks tribes by active members and counts distinct tribes
func (r *AdminRepository) TribeSizes(ctx context.Context, limit int) (*models.TribeStats, error) {
	var st models.TribeStats
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT tribe_id) FROM users WHERE is_active`).Scan(&st.TotalTribes)
	if err != nil {
		return nil, wrapErr(err, "tribes")
	}

	rows, err := r.db.Query(ctx, `
		SELECT tribe_id, COUNT(*) FROM users WHERE is_active
		GROUP BY tribe_id ORDER BY COUNT(*) DESC, tribe_id LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr(err, "tribes")
	}
	defer rows.Close()
	for rows.Next() {
		var t models.TribeSize
		if err := rows.Scan(&t.TribeID, &t.MemberCount); err != nil {
			return nil, fmt.Errorf("failed to scan tribe size: %w", err)
		}
		st.TopTribes = append(st.TopTribes, t)
	}
	return &st, rows.Err()
}

// RecentActivity returns the newest events of one kind. Details are left
// for the caller to fill.
func (r *AdminRepository) RecentActivity(ctx context.Context, kind string, limit int) ([]*models.Activity, error) {
	var (
		query string
		scan  func(rows pgx.Rows, a *models.Activity) error
	)
	switch kind {
	case models.ActivitySignup:
		query = `SELECT id, first_name, created_at FROM users ORDER BY created_at DESC LIMIT $1`
		scan = func(rows pgx.Rows, a *models.Activity) error {
			a.Type = "user_signup"
			return rows.Scan(&a.UserID, &a.UserName, &a.Timestamp)
		}
	case models.ActivityMessage:
		query = `SELECT user_id, room_id, created_at FROM messages ORDER BY created_at DESC LIMIT $1`
		scan = func(rows pgx.Rows, a *models.Activity) error {
			a.Type = "message_sent"
			return rows.Scan(&a.UserID, &a.RoomID, &a.Timestamp)
		}
	case models.ActivityGift:
		query = `SELECT sender_id, recipient_id, gift_type, created_at FROM gifts ORDER BY created_at DESC LIMIT $1`
		scan = func(rows pgx.Rows, a *models.Activity) error {
			a.Type = "gift_sent"
			return rows.Scan(&a.SenderID, &a.RecipientID, &a.GiftType, &a.Timestamp)
		}
	case models.ActivityWall:
		query = `SELECT owner_id, public_url_code, created_at FROM birthday_walls ORDER BY created_at DESC LIMIT $1`
		scan = func(rows pgx.Rows, a *models.Activity) error {
			a.Type = "wall_created"
			return rows.Scan(&a.UserID, &a.WallCode, &a.Timestamp)
		}
	case models.ActivityModeration:
		query = `SELECT admin_id, action, created_at FROM moderation_logs ORDER BY created_at DESC LIMIT $1`
		scan = func(rows pgx.Rows, a *models.Activity) error {
			a.Type = "moderation_action"
			return rows.Scan(&a.ModeratorID, &a.Action, &a.Timestamp)
		}
	default:
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapErr(err, kind+" activity")
	}
	defer rows.Close()

	var out []*models.Activity
	for rows.Next() {
		var a models.Activity
		if err := scan(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan %s activity: %w", kind, err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UserActivity summarises users by most recent update. An empty userID
// lists everyone.
func (r *AdminRepository) UserActivity(ctx context.Context, userID string, limit int) ([]*models.UserActivity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.first_name, u.email, u.tribe_id, u.country, u.state, u.created_at, u.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.user_id = u.id),
			(SELECT COUNT(*) FROM gifts g WHERE g.sender_id = u.id),
			(SELECT COUNT(*) FROM gifts g WHERE g.recipient_id = u.id),
			(SELECT COUNT(*) FROM birthday_walls w WHERE w.owner_id = u.id)
		FROM users u
		WHERE $1 = '' OR u.id = $1
		ORDER BY u.updated_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, wrapErr(err, "user activity")
	}
	defer rows.Close()

	var out []*models.UserActivity
	for rows.Next() {
		var a models.UserActivity
		err := rows.Scan(&a.UserID, &a.UserName, &a.Email, &a.TribeID, &a.Country, &a.State, &a.CreatedAt, &a.LastActive,
			&a.Stats.MessagesSent, &a.Stats.GiftsSent, &a.Stats.GiftsReceived, &a.Stats.WallsCreated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user activity: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
