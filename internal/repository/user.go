package repository

import (
	"context"
	"fmt"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, external_uid, email, first_name, date_of_birth, gender, country, state, city,
	profile_picture_url, birth_month, birth_day, tribe_id, state_visibility_enabled, is_admin,
	is_active, consent_given, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.ExternalUID, &u.Email, &u.FirstName, &u.DateOfBirth, &u.Gender, &u.Country, &u.State, &u.City,
		&u.ProfilePictureURL, &u.BirthMonth, &u.BirthDay, &u.TribeID, &u.StateVisibilityEnabled, &u.IsAdmin,
		&u.IsActive, &u.ConsentGiven, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.ExternalUID, u.Email, u.FirstName, u.DateOfBirth, u.Gender, u.Country, u.State, u.City,
		u.ProfilePictureURL, u.BirthMonth, u.BirthDay, u.TribeID, u.StateVisibilityEnabled, u.IsAdmin,
		u.IsActive, u.ConsentGiven, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapErr(err, "user")
	}
	return u, nil
}

// GetByExternalUID retrieves a user by the identity provider subject
func (r *UserRepository) GetByExternalUID(ctx context.Context, uid string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_uid = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		return nil, wrapErr(err, "user")
	}
	return u, nil
}

// Update persists the mutable profile fields
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET first_name = $2, city = $3, state_visibility_enabled = $4, profile_picture_url = $5,
			is_active = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		u.ID, u.FirstName, u.City, u.StateVisibilityEnabled, u.ProfilePictureURL, u.IsActive, u.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "user")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	return nil
}

// ListByTribe returns active members of a tribe, optionally in random order
func (r *UserRepository) ListByTribe(ctx context.Context, tribeID string, limit int, random bool) ([]*models.User, error) {
	order := "created_at, id"
	if random {
		order = "random()"
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE tribe_id = $1 AND is_active ORDER BY ` + order + ` LIMIT $2`
	rows, err := r.db.Query(ctx, query, tribeID, limit)
	if err != nil {
		return nil, wrapErr(err, "users")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountByTribe counts active members of a tribe
func (r *UserRepository) CountByTribe(ctx context.Context, tribeID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE tribe_id = $1 AND is_active`, tribeID).Scan(&n)
	if err != nil {
		return 0, wrapErr(err, "users")
	}
	return n, nil
}

// CelebrantsByState counts users with a birthday on (month, day) who share their state
func (r *UserRepository) CelebrantsByState(ctx context.Context, month, day int) ([]models.StateCount, error) {
	query := `
		SELECT country, state, COUNT(*)
		FROM users
		WHERE birth_month = $1 AND birth_day = $2 AND is_active AND state_visibility_enabled
		GROUP BY country, state
		ORDER BY COUNT(*) DESC, country, state
	`
	rows, err := r.db.Query(ctx, query, month, day)
	if err != nil {
		return nil, wrapErr(err, "users")
	}
	defer rows.Close()

	var counts []models.StateCount
	for rows.Next() {
		var c models.StateCount
		if err := rows.Scan(&c.Country, &c.State, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CelebrantsInState returns the users with a birthday on (month, day) in state
// who share it, plus the count of all such users
func (r *UserRepository) CelebrantsInState(ctx context.Context, month, day int, state string) ([]*models.User, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE birth_month = $1 AND birth_day = $2 AND state = $3 AND is_active
	`, month, day, state).Scan(&total)
	if err != nil {
		return nil, 0, wrapErr(err, "users")
	}

	query := `SELECT ` + userColumns + ` FROM users
		WHERE birth_month = $1 AND birth_day = $2 AND state = $3 AND is_active AND state_visibility_enabled
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, month, day, state)
	if err != nil {
		return nil, 0, wrapErr(err, "users")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// CreateContact stores a contact form submission
func (r *UserRepository) CreateContact(ctx context.Context, c *models.ContactSubmission) error {
	query := `
		INSERT INTO contact_submissions (id, user_id, name, email, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.UserID, c.Name, c.Email, c.Subject, c.Message, c.CreatedAt)
	if err != nil {
		return wrapErr(err, "contact submission")
	}
	return nil
}
