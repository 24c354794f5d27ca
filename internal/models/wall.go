package models

import "time"

// Upload permission policies for a wall
const (
	UploadPermissionNone          = "none"
	UploadPermissionBirthdayMates = "birthday_mates"
	UploadPermissionInvitedGuests = "invited_guests"
	UploadPermissionBoth          = "both"
)

// Invitation types
const (
	InvitationBirthdayMate = "birthday_mate"
	InvitationGuest        = "guest"
)

// Wall defaults
const (
	DefaultWallTitle    = "My Birthday Wall"
	DefaultAccentColor  = "#FFD700"
	DefaultWallTheme    = "celebration"
	DefaultAnimation    = "celebration"
	DefaultIntensity    = "medium"
	DefaultMaxPhotos    = 50
	DefaultFrameStyle   = "none"
	DefaultUploaderName = "Guest"
)

var (
	WallThemes           = []string{"celebration", "elegant", "vibrant", "minimal", "gold", "rainbow"}
	BackgroundAnimations = []string{"celebration", "autumn", "spring", "winter", "ocean", "galaxy", "confetti"}
	AnimationIntensities = []string{"low", "medium", "high"}
	FrameStyles          = []string{"none", "classic", "elegant", "vintage", "modern", "gold", "rainbow", "polaroid"}
	ReactionEmojis       = []string{"❤️", "👍", "😊"}
	UploadPermissions    = []string{UploadPermissionNone, UploadPermissionBirthdayMates, UploadPermissionInvitedGuests, UploadPermissionBoth}
)

// OneOf reports whether v is in allowed
func OneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// BirthdayWall is a time-boxed photo board for one birthday cycle of its owner
type BirthdayWall struct {
	ID                  string     `json:"id"`
	OwnerID             string     `json:"owner_id"`
	Title               string     `json:"title"`
	Theme               string     `json:"theme"`
	AccentColor         string     `json:"accent_color"`
	BackgroundAnimation string     `json:"background_animation"`
	BackgroundColor     *string    `json:"background_color,omitempty"`
	AnimationIntensity  string     `json:"animation_intensity"`
	OpensAt             time.Time  `json:"opens_at"`
	ClosesAt            time.Time  `json:"closes_at"`
	BirthdayYear        int        `json:"birthday_year"`
	PublicURLCode       string     `json:"public_url_code"`
	IsActive            bool       `json:"is_active"`
	IsPublic            bool       `json:"is_public"`
	ViewCount           int        `json:"view_count"`
	MaxPhotos           int        `json:"max_photos"`
	AllowReactions      bool       `json:"allow_reactions"`
	UploadsEnabled      bool       `json:"uploads_enabled"`
	UploadPermission    string     `json:"upload_permission"`
	UploadPaused        bool       `json:"upload_paused"`
	IsSealed            bool       `json:"is_sealed"`
	SealedAt            *time.Time `json:"sealed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// WallPhoto is a photo posted on a wall
type WallPhoto struct {
	ID               string    `json:"id"`
	WallID           string    `json:"wall_id"`
	PhotoURL         string    `json:"photo_url"`
	Caption          *string   `json:"caption,omitempty"`
	UploadedByUserID *string   `json:"uploaded_by_user_id,omitempty"`
	UploadedByName   string    `json:"uploaded_by_name"`
	DisplayOrder     int       `json:"display_order"`
	FrameStyle       string    `json:"frame_style"`
	IsApproved       bool      `json:"is_approved"`
	CreatedAt        time.Time `json:"created_at"`
}

// PhotoReaction is a single emoji reaction of a user on a photo
type PhotoReaction struct {
	ID        string    `json:"id"`
	PhotoID   string    `json:"photo_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// WallInvitation grants a birthday mate or guest the right to upload
type WallInvitation struct {
	ID             string     `json:"id"`
	WallID         string     `json:"wall_id"`
	InvitationType string     `json:"invitation_type"`
	InvitedUserID  *string    `json:"invited_user_id,omitempty"`
	InvitedEmail   *string    `json:"invited_email,omitempty"`
	InvitedName    *string    `json:"invited_name,omitempty"`
	InviteCode     string     `json:"invite_code"`
	IsAccepted     bool       `json:"is_accepted"`
	AcceptedBy     *string    `json:"accepted_by,omitempty"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// WallUpload records that a user has used their single upload on a wall
type WallUpload struct {
	WallID     string    `json:"wall_id"`
	UploaderID string    `json:"uploader_id"`
	PhotoID    string    `json:"photo_id"`
	CreatedAt  time.Time `json:"created_at"`
}
