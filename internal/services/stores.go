package services

import (
	"context"
	"time"

	"birthday-mate-backend/internal/models"
)

// The store interfaces below are satisfied by the repository package.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalUID(ctx context.Context, uid string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	ListByTribe(ctx context.Context, tribeID string, limit int, random bool) ([]*models.User, error)
	CountByTribe(ctx context.Context, tribeID string) (int, error)
	CelebrantsByState(ctx context.Context, month, day int) ([]models.StateCount, error)
	CelebrantsInState(ctx context.Context, month, day int, state string) (visible []*models.User, total int, err error)
	CreateContact(ctx context.Context, c *models.ContactSubmission) error
}

type WallStore interface {
	Create(ctx context.Context, w *models.BirthdayWall) error
	GetByID(ctx context.Context, id string) (*models.BirthdayWall, error)
	GetByCode(ctx context.Context, code string) (*models.BirthdayWall, error)
	GetCurrentByOwner(ctx context.Context, ownerID string, now time.Time) (*models.BirthdayWall, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.BirthdayWall, error)
	IncrementViewCount(ctx context.Context, id string) error
	UpdateUploadControl(ctx context.Context, w *models.BirthdayWall) error
}

type PhotoStore interface {
	CreateWithUpload(ctx context.Context, p *models.WallPhoto, u *models.WallUpload, maxPhotos int) error
	HasUploaded(ctx context.Context, wallID, userID string) (bool, error)
	CountByWall(ctx context.Context, wallID string) (int, error)
	CountApprovedByWall(ctx context.Context, wallID string) (int, error)
	ListByWall(ctx context.Context, wallID string, approvedOnly bool) ([]*models.WallPhoto, error)
	GetByID(ctx context.Context, id string) (*models.WallPhoto, error)
	Update(ctx context.Context, p *models.WallPhoto) error
	Delete(ctx context.Context, id string) error
}

type ReactionStore interface {
	Get(ctx context.Context, photoID, userID string) (*models.PhotoReaction, error)
	Upsert(ctx context.Context, r *models.PhotoReaction) error
	Delete(ctx context.Context, photoID, userID, emoji string) error
	ListByPhotos(ctx context.Context, photoIDs []string) ([]*models.PhotoReaction, error)
}

type InvitationStore interface {
	Create(ctx context.Context, inv *models.WallInvitation) error
	GetByCode(ctx context.Context, code string) (*models.WallInvitation, error)
	ListByWall(ctx context.Context, wallID string) ([]*models.WallInvitation, error)
	ExistsForUser(ctx context.Context, wallID, userID string) (bool, error)
	ExistsForEmail(ctx context.Context, wallID, email string) (bool, error)
	HasAccepted(ctx context.Context, wallID, userID string) (bool, error)
	Accept(ctx context.Context, id, userID string, at time.Time) error
}

type RoomStore interface {
	Create(ctx context.Context, r *models.Room) error
	GetOrCreate(ctx context.Context, r *models.Room) (*models.Room, error)
	GetByID(ctx context.Context, id string) (*models.Room, error)
	GetByIdentifier(ctx context.Context, identifier string, opensAt time.Time) (*models.Room, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Room, error)
	AddParticipant(ctx context.Context, p *models.RoomParticipant) error
	JoinWithLimit(ctx context.Context, p *models.RoomParticipant, limit int) error
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
	ListParticipants(ctx context.Context, roomID string) ([]*models.RoomParticipant, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListByRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type BuddyStore interface {
	GetByID(ctx context.Context, id string) (*models.BirthdayBuddy, error)
	GetActiveForUser(ctx context.Context, userID string, birthday time.Time) (*models.BirthdayBuddy, error)
	CreatePairing(ctx context.Context, b *models.BirthdayBuddy, month, day int) error
	Accept(ctx context.Context, id, userID string) (*models.BirthdayBuddy, error)
	Reveal(ctx context.Context, id, roomID string) (bool, error)
	Deactivate(ctx context.Context, id string) error
}

type GiftStore interface {
	ListCatalog(ctx context.Context, giftType string) ([]*models.GiftCatalogItem, error)
	GetCatalogItem(ctx context.Context, id string) (*models.GiftCatalogItem, error)
	Create(ctx context.Context, g *models.Gift) error
	GetByID(ctx context.Context, id string) (*models.Gift, error)
	GetByPaymentReference(ctx context.Context, ref string) (*models.Gift, error)
	UpdatePayment(ctx context.Context, id, status string, ref *string, at time.Time) error
	FailPayment(ctx context.Context, id string, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)
	ListReceived(ctx context.Context, recipientID string) ([]*models.Gift, error)
	ListSent(ctx context.Context, senderID string) ([]*models.Gift, error)
	ListDeliveredSince(ctx context.Context, recipientID string, since time.Time) ([]*models.Gift, error)
}

type AdminStore interface {
	CreateFlag(ctx context.Context, f *models.FlaggedContent) error
	GetFlag(ctx context.Context, id string) (*models.FlaggedContent, error)
	ListFlags(ctx context.Context, status string, limit int) ([]*models.FlaggedContent, error)
	ResolveFlag(ctx context.Context, id, status, adminID string, at time.Time) error
	CreateLog(ctx context.Context, l *models.ModerationLog) error
	CreateCelebrity(ctx context.Context, c *models.Celebrity) error
	ListCelebrities(ctx context.Context, month, day int) ([]*models.Celebrity, error)
	ListContacts(ctx context.Context, limit int) ([]*models.ContactSubmission, error)
	Overview(ctx context.Context, month, day int, now time.Time) (*models.Overview, error)
	Analytics(ctx context.Context, month, day int, since time.Time) (*models.Analytics, error)
	DailyCounts(ctx context.Context, series string, since time.Time) ([]models.DailyCount, error)
	Geography(ctx context.Context, limit int) (*models.Geography, error)
	TribeSizes(ctx context.Context, limit int) (*models.TribeStats, error)
	RecentActivity(ctx context.Context, kind string, limit int) ([]*models.Activity, error)
	UserActivity(ctx context.Context, userID string, limit int) ([]*models.UserActivity, error)
}
