package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order at startup; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		external_uid TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		first_name VARCHAR(100) NOT NULL,
		date_of_birth DATE NOT NULL,
		gender TEXT NOT NULL,
		country TEXT NOT NULL,
		state TEXT NOT NULL,
		city VARCHAR(100),
		profile_picture_url TEXT,
		birth_month SMALLINT NOT NULL,
		birth_day SMALLINT NOT NULL,
		tribe_id CHAR(5) NOT NULL,
		state_visibility_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		consent_given BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_tribe ON users (tribe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_birthday ON users (birth_month, birth_day)`,

	`CREATE TABLE IF NOT EXISTS birthday_walls (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		title VARCHAR(200) NOT NULL,
		theme TEXT NOT NULL,
		accent_color TEXT NOT NULL,
		background_animation TEXT NOT NULL,
		background_color TEXT,
		animation_intensity TEXT NOT NULL,
		opens_at TIMESTAMPTZ NOT NULL,
		closes_at TIMESTAMPTZ NOT NULL,
		birthday_year INT NOT NULL,
		public_url_code TEXT NOT NULL UNIQUE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_public BOOLEAN NOT NULL DEFAULT TRUE,
		view_count INT NOT NULL DEFAULT 0,
		max_photos INT NOT NULL DEFAULT 50,
		allow_reactions BOOLEAN NOT NULL DEFAULT TRUE,
		uploads_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		upload_permission TEXT NOT NULL DEFAULT 'none',
		upload_paused BOOLEAN NOT NULL DEFAULT FALSE,
		is_sealed BOOLEAN NOT NULL DEFAULT FALSE,
		sealed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (owner_id, birthday_year)
	)`,

	`CREATE TABLE IF NOT EXISTS wall_photos (
		id TEXT PRIMARY KEY,
		wall_id TEXT NOT NULL REFERENCES birthday_walls(id) ON DELETE CASCADE,
		photo_url TEXT NOT NULL,
		caption VARCHAR(500),
		uploaded_by_user_id TEXT REFERENCES users(id),
		uploaded_by_name TEXT NOT NULL,
		display_order INT NOT NULL DEFAULT 0,
		frame_style TEXT NOT NULL DEFAULT 'none',
		is_approved BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wall_photos_wall ON wall_photos (wall_id, display_order)`,

	`CREATE TABLE IF NOT EXISTS wall_uploads (
		wall_id TEXT NOT NULL REFERENCES birthday_walls(id) ON DELETE CASCADE,
		uploader_id TEXT NOT NULL REFERENCES users(id),
		photo_id TEXT REFERENCES wall_photos(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (wall_id, uploader_id)
	)`,

	`CREATE TABLE IF NOT EXISTS photo_reactions (
		id TEXT PRIMARY KEY,
		photo_id TEXT NOT NULL REFERENCES wall_photos(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		emoji TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (photo_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS wall_invitations (
		id TEXT PRIMARY KEY,
		wall_id TEXT NOT NULL REFERENCES birthday_walls(id) ON DELETE CASCADE,
		invitation_type TEXT NOT NULL,
		invited_user_id TEXT REFERENCES users(id),
		invited_email TEXT,
		invited_name TEXT,
		invite_code TEXT NOT NULL UNIQUE,
		is_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		accepted_by TEXT REFERENCES users(id),
		accepted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (wall_id, invited_user_id),
		UNIQUE (wall_id, invited_email)
	)`,

	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		room_type TEXT NOT NULL,
		room_identifier TEXT NOT NULL,
		name TEXT NOT NULL,
		opens_at TIMESTAMPTZ NOT NULL,
		closes_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_read_only BOOLEAN NOT NULL DEFAULT FALSE,
		owner_id TEXT REFERENCES users(id),
		invite_code TEXT UNIQUE,
		max_guests INT NOT NULL DEFAULT 50,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (room_identifier, opens_at)
	)`,

	`CREATE TABLE IF NOT EXISTS room_participants (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		is_birthday_mate BOOLEAN NOT NULL DEFAULT FALSE,
		joined_at TIMESTAMPTZ NOT NULL,
		last_seen TIMESTAMPTZ NOT NULL,
		UNIQUE (room_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		content VARCHAR(1000) NOT NULL,
		is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages (room_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS birthday_buddies (
		id TEXT PRIMARY KEY,
		user_1_id TEXT NOT NULL REFERENCES users(id),
		user_2_id TEXT NOT NULL REFERENCES users(id),
		birthday_date DATE NOT NULL,
		room_id TEXT REFERENCES rooms(id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		user_1_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		user_2_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		is_revealed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_buddies_date ON birthday_buddies (birthday_date)`,

	`CREATE TABLE IF NOT EXISTS gift_catalog (
		id TEXT PRIMARY KEY,
		gift_type TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12, 2) NOT NULL,
		currency CHAR(3) NOT NULL DEFAULT 'USD',
		image_url TEXT,
		preview_url TEXT,
		display_order INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS gifts (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL REFERENCES users(id),
		recipient_id TEXT NOT NULL REFERENCES users(id),
		catalog_item_id TEXT NOT NULL REFERENCES gift_catalog(id),
		gift_type TEXT NOT NULL,
		gift_name TEXT NOT NULL,
		gift_description TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12, 2) NOT NULL,
		currency CHAR(3) NOT NULL,
		payment_provider TEXT NOT NULL,
		payment_reference TEXT UNIQUE,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		gift_card_provider TEXT,
		message TEXT,
		is_delivered BOOLEAN NOT NULL DEFAULT FALSE,
		delivered_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gifts_recipient ON gifts (recipient_id, delivered_at)`,

	`CREATE TABLE IF NOT EXISTS flagged_content (
		id TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		content_id TEXT NOT NULL,
		reported_by TEXT NOT NULL REFERENCES users(id),
		reason TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reviewed_by TEXT REFERENCES users(id),
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS moderation_logs (
		id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL REFERENCES users(id),
		action TEXT NOT NULL,
		target_user_id TEXT REFERENCES users(id),
		content_type TEXT,
		content_id TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS celebrities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		birth_month SMALLINT NOT NULL,
		birth_day SMALLINT NOT NULL,
		description TEXT,
		image_url TEXT,
		priority INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS contact_submissions (
		id TEXT PRIMARY KEY,
		user_id TEXT REFERENCES users(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`INSERT INTO gift_catalog (id, gift_type, name, description, price, currency, display_order, is_featured, created_at)
	VALUES
		('catalog-birthday-card', 'digital_card', 'Classic Birthday Card', 'A heartfelt digital card that stays on their wall', 1.99, 'USD', 1, TRUE, now()),
		('catalog-gold-confetti', 'confetti_effect', 'Gold Confetti Blast', 'Showers their wall in gold confetti for a day', 2.99, 'USD', 2, TRUE, now()),
		('catalog-rainbow-confetti', 'confetti_effect', 'Rainbow Confetti Storm', 'A rainbow of confetti for a day', 2.99, 'USD', 3, FALSE, now()),
		('catalog-wall-spotlight', 'wall_highlight', 'Wall Spotlight', 'Pins their latest photo to the top of the wall for two days', 4.99, 'USD', 4, FALSE, now()),
		('catalog-golden-badge', 'celebrant_badge', 'Golden Celebrant Badge', 'A golden badge next to their name for a day', 3.99, 'USD', 5, FALSE, now()),
		('catalog-diamond-badge', 'celebrant_badge', 'Diamond Celebrant Badge', 'A diamond badge next to their name for a day', 5.99, 'USD', 6, FALSE, now()),
		('catalog-featured-message', 'featured_message', 'Featured Birthday Message', 'Pins your message in their room for a day', 3.49, 'USD', 7, FALSE, now()),
		('catalog-amazon-card', 'gift_card', 'Amazon Gift Card', 'A gift card delivered by the provider', 25.00, 'USD', 8, FALSE, now())
	ON CONFLICT (id) DO NOTHING`,
}

// Migrate creates any missing tables and indexes
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
