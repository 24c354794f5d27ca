package models

import "time"

// Flag statuses
const (
	FlagPending   = "pending"
	FlagReviewed  = "reviewed"
	FlagDismissed = "dismissed"
)

// Moderation actions
const (
	ActionWarning         = "warning"
	ActionContentRemoved  = "content_removed"
	ActionUserSuspended   = "user_suspended"
	ActionUserBanned      = "user_banned"
	ActionContentApproved = "content_approved"
)

var (
	FlagContentTypes  = []string{"message", "photo", "profile_picture", "user_profile"}
	ModerationActions = []string{ActionWarning, ActionContentRemoved, ActionUserSuspended, ActionUserBanned, ActionContentApproved}
	ContactSubjects   = []string{"account", "technical", "feature", "feedback", "gift", "wall", "tribe", "other"}
)

// FlaggedContent is a user report awaiting moderation
type FlaggedContent struct {
	ID          string     `json:"id"`
	ContentType string     `json:"content_type"`
	ContentID   string     `json:"content_id"`
	ReportedBy  string     `json:"reported_by"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	ReviewedBy  *string    `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ModerationLog records an admin action
type ModerationLog struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"admin_id"`
	Action       string    `json:"action"`
	TargetUserID *string   `json:"target_user_id,omitempty"`
	ContentType  *string   `json:"content_type,omitempty"`
	ContentID    *string   `json:"content_id,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Celebrity is a famous person featured on their birthday
type Celebrity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	BirthMonth  int       `json:"birth_month"`
	BirthDay    int       `json:"birth_day"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// StateCelebrant is a celebrant who shares their state
type StateCelebrant struct {
	ID                string  `json:"id"`
	FirstName         string  `json:"first_name"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	City              *string `json:"city"`
}

// StateCelebrants lists today's celebrants in one state. Total counts every
// celebrant there; Visible holds only those sharing their state.
type StateCelebrants struct {
	State   string           `json:"state"`
	Total   int              `json:"total_celebrants"`
	Visible []StateCelebrant `json:"visible_celebrants"`
}

// StateCount is the number of celebrants in a state
type StateCount struct {
	Country string `json:"country"`
	State   string `json:"state"`
	Count   int    `json:"count"`
}

// Overview holds headline platform counts
type Overview struct {
	TotalUsers      int `json:"total_users"`
	ActiveUsers     int `json:"active_users"`
	TodayCelebrants int `json:"today_celebrants"`
	OpenWalls       int `json:"open_walls"`
	OpenRooms       int `json:"open_rooms"`
	PendingFlags    int `json:"pending_flags"`
}

// Activity kinds for the admin activity feed
const (
	ActivitySignup     = "signup"
	ActivityMessage    = "message"
	ActivityGift       = "gift"
	ActivityWall       = "wall"
	ActivityModeration = "moderation"
)

var ActivityKinds = []string{ActivitySignup, ActivityMessage, ActivityGift, ActivityWall, ActivityModeration}

// Daily series counted by AdminStore.DailyCounts
const (
	SeriesUsers    = "users"
	SeriesMessages = "messages"
	SeriesGifts    = "gifts"
	SeriesWalls    = "walls"
)

// UserMetrics counts users overall and within an analytics period
type UserMetrics struct {
	Total       int     `json:"total"`
	Active      int     `json:"active"`
	NewInPeriod int     `json:"new_in_period"`
	GrowthRate  float64 `json:"growth_rate"`
}

// EngagementMetrics counts rooms and activity within an analytics period
type EngagementMetrics struct {
	TotalRooms           int `json:"total_rooms"`
	ActiveRooms          int `json:"active_rooms"`
	MessagesInPeriod     int `json:"messages_in_period"`
	GiftsSentInPeriod    int `json:"gifts_sent_in_period"`
	WallsCreatedInPeriod int `json:"walls_created_in_period"`
	TodaysCelebrants     int `json:"todays_celebrants"`
}

type ModerationMetrics struct {
	PendingFlags    int `json:"pending_flags"`
	ActionsInPeriod int `json:"actions_in_period"`
}

// Analytics is the admin dashboard summary over the last PeriodDays days
type Analytics struct {
	PeriodDays int               `json:"period_days"`
	Users      UserMetrics       `json:"users"`
	Engagement EngagementMetrics `json:"engagement"`
	Moderation ModerationMetrics `json:"moderation"`
}

// DailyCount is one point of a per-day series. Date is YYYY-MM-DD in UTC.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type CountryCount struct {
	Country   string `json:"country"`
	UserCount int    `json:"user_count"`
}

type RegionCount struct {
	State     string `json:"state"`
	Country   string `json:"country"`
	UserCount int    `json:"user_count"`
}

// Geography ranks countries and states by active users
type Geography struct {
	TopCountries []CountryCount `json:"top_countries"`
	TopStates    []RegionCount  `json:"top_states"`
}

type TribeSize struct {
	TribeID     string `json:"tribe_id"`
	MemberCount int    `json:"member_count"`
}

// TribeStats ranks tribes by active members
type TribeStats struct {
	TopTribes        []TribeSize `json:"top_tribes"`
	AverageTribeSize float64     `json:"average_tribe_size"`
	TotalTribes      int         `json:"total_tribes"`
}

// Activity is one entry in the admin activity feed. Which of the optional
// fields are set depends on Type.
type Activity struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id,omitempty"`
	UserName    string    `json:"user_name,omitempty"`
	RoomID      string    `json:"room_id,omitempty"`
	SenderID    string    `json:"sender_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	GiftType    string    `json:"gift_type,omitempty"`
	WallCode    string    `json:"wall_code,omitempty"`
	ModeratorID string    `json:"moderator_id,omitempty"`
	Action      string    `json:"action,omitempty"`
	Details     string    `json:"details"`
}

type UserActivityStats struct {
	MessagesSent  int `json:"messages_sent"`
	GiftsSent     int `json:"gifts_sent"`
	GiftsReceived int `json:"gifts_received"`
	WallsCreated  int `json:"walls_created"`
}

// UserActivity summarises what one user has done on the platform
type UserActivity struct {
	UserID     string            `json:"user_id"`
	UserName   string            `json:"user_name"`
	Email      string            `json:"email"`
	TribeID    string            `json:"tribe_id"`
	Country    string            `json:"country"`
	State      string            `json:"state"`
	CreatedAt  time.Time         `json:"created_at"`
	LastActive time.Time         `json:"last_active"`
	Stats      UserActivityStats `json:"stats"`
}
