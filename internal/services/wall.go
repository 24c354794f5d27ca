package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"birthday-mate-backend/internal/lifecycle"
	"birthday-mate-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WallService implements the birthday wall lifecycle
type WallService struct {
	walls       WallStore
	photos      PhotoStore
	reactions   ReactionStore
	invitations InvitationStore
	users       UserStore
	media       *MediaService
	now         func() time.Time
}

// NewWallService creates a new wall service
func NewWallService(
	walls WallStore,
	photos PhotoStore,
	reactions ReactionStore,
	invitations InvitationStore,
	users UserStore,
	media *MediaService,
) *WallService {
	return &WallService{
		walls:       walls,
		photos:      photos,
		reactions:   reactions,
		invitations: invitations,
		users:       users,
		media:       media,
		now:         time.Now,
	}
}

// CreateWallRequest holds optional customization for a new wall
type CreateWallRequest struct {
	Title               *string `json:"title"`
	Theme               *string `json:"theme"`
	AccentColor         *string `json:"accent_color"`
	BackgroundAnimation *string `json:"background_animation"`
	BackgroundColor     *string `json:"background_color"`
	AnimationIntensity  *string `json:"animation_intensity"`
	MaxPhotos           *int    `json:"max_photos"`
	AllowReactions      *bool   `json:"allow_reactions"`
}

// CreateWall opens the owner's wall for their upcoming birthday
func (s *WallService) CreateWall(ctx context.Context, owner *models.User, req CreateWallRequest) (*models.BirthdayWall, error) {
	now := s.now()

	_, err := s.walls.GetCurrentByOwner(ctx, owner.ID, now)
	switch {
	case err == nil:
		return nil, ErrWallExists
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to check current wall: %w", err)
	}

	birthday := lifecycle.NextBirthday(owner.BirthMonth, owner.BirthDay, now)
	opens, closes := lifecycle.WallWindow(birthday)
	if !lifecycle.CreationAllowed(opens, now) {
		return nil, fmt.Errorf("%w. Your wall will open in %d hours", ErrWallTooEarly, lifecycle.HoursUntil(opens, now))
	}

	wall := &models.BirthdayWall{
		ID:                  uuid.New().String(),
		OwnerID:             owner.ID,
		Title:               models.DefaultWallTitle,
		Theme:               models.DefaultWallTheme,
		AccentColor:         models.DefaultAccentColor,
		BackgroundAnimation: models.DefaultAnimation,
		AnimationIntensity:  models.DefaultIntensity,
		OpensAt:             opens,
		ClosesAt:            closes,
		BirthdayYear:        birthday.Year(),
		PublicURLCode:       urlToken(12),
		IsActive:            true,
		IsPublic:            true,
		MaxPhotos:           models.DefaultMaxPhotos,
		AllowReactions:      true,
		UploadPermission:    models.UploadPermissionNone,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := applyWallOptions(wall, req); err != nil {
		return nil, err
	}

	if err := s.walls.Create(ctx, wall); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrWallExists
		}
		return nil, fmt.Errorf("failed to create wall: %w", err)
	}

	log.Info().
		Str("wall_id", wall.ID).
		Str("owner_id", owner.ID).
		Time("opens_at", wall.OpensAt).
		Time("closes_at", wall.ClosesAt).
		Msg("Birthday wall created")

	return wall, nil
}

func applyWallOptions(w *models.BirthdayWall, req CreateWallRequest) error {
	if req.Title != nil {
		title := Sanitize(*req.Title, 200)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		w.Title = title
	}
	if req.Theme != nil {
		if !models.OneOf(*req.Theme, models.WallThemes) {
			return fmt.Errorf("%w: theme must be one of %s", ErrInvalidInput, strings.Join(models.WallThemes, ", "))
		}
		w.Theme = *req.Theme
	}
	if req.AccentColor != nil {
		w.AccentColor = Sanitize(*req.AccentColor, 20)
	}
	if req.BackgroundAnimation != nil && models.OneOf(*req.BackgroundAnimation, models.BackgroundAnimations) {
		w.BackgroundAnimation = *req.BackgroundAnimation
	}
	if req.BackgroundColor != nil {
		c := Sanitize(*req.BackgroundColor, 50)
		w.BackgroundColor = &c
	}
	if req.AnimationIntensity != nil && models.OneOf(*req.AnimationIntensity, models.AnimationIntensities) {
		w.AnimationIntensity = *req.AnimationIntensity
	}
	if req.MaxPhotos != nil {
		if *req.MaxPhotos < 1 || *req.MaxPhotos > 200 {
			return fmt.Errorf("%w: max_photos must be between 1 and 200", ErrInvalidInput)
		}
		w.MaxPhotos = *req.MaxPhotos
	}
	if req.AllowReactions != nil {
		w.AllowReactions = *req.AllowReactions
	}
	return nil
}

// PhotoView is a wall photo with its reaction summary
type PhotoView struct {
	*models.WallPhoto
	Reactions   map[string]int `json:"reactions"`
	UserReacted []string       `json:"user_reacted"`
}

// WallView is a wall as seen by a particular viewer
type WallView struct {
	*models.BirthdayWall
	OwnerName  string          `json:"owner_name"`
	State      lifecycle.State `json:"state"`
	IsOpen     bool            `json:"is_open"`
	IsArchived bool            `json:"is_archived"`
	IsOwner    bool            `json:"is_owner"`
	PhotoCount int             `json:"photo_count"`
	Photos     []*PhotoView    `json:"photos"`
}

// GetWallByCode returns the wall behind a share code. Archived walls are
// visible to their owner only; other viewers see approved photos only and
// each of their views is counted.
func (s *WallService) GetWallByCode(ctx context.Context, code string, viewer *models.User) (*WallView, error) {
	wall, err := s.walls.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrWallNotFound
		}
		return nil, fmt.Errorf("failed to load wall: %w", err)
	}

	state := lifecycle.WallState(wall, s.now())
	isOwner := viewer != nil && viewer.ID == wall.OwnerID
	if state == lifecycle.Archived && !isOwner {
		return nil, ErrWallArchived
	}

	if !isOwner {
		// unguarded popularity counter: every non-owner view counts
		if err := s.walls.IncrementViewCount(ctx, wall.ID); err != nil {
			log.Error().Err(err).Str("wall_id", wall.ID).Msg("Failed to increment view count")
		} else {
			wall.ViewCount++
		}
	}

	return s.buildView(ctx, wall, viewer, state)
}

// CurrentWall returns the owner's wall that has not closed yet
func (s *WallService) CurrentWall(ctx context.Context, ownerID string, viewer *models.User) (*WallView, error) {
	now := s.now()
	wall, err := s.walls.GetCurrentByOwner(ctx, ownerID, now)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrWallNotFound
		}
		return nil, fmt.Errorf("failed to load wall: %w", err)
	}
	return s.buildView(ctx, wall, viewer, lifecycle.WallState(wall, now))
}

func (s *WallService) buildView(ctx context.Context, wall *models.BirthdayWall, viewer *models.User, state lifecycle.State) (*WallView, error) {
	isOwner := viewer != nil && viewer.ID == wall.OwnerID

	view := &WallView{
		BirthdayWall: wall,
		State:        state,
		IsOpen:       state == lifecycle.Open,
		IsArchived:   state == lifecycle.Archived,
		IsOwner:      isOwner,
	}

	if owner, err := s.users.GetByID(ctx, wall.OwnerID); err == nil {
		view.OwnerName = owner.FirstName
	} else {
		log.Warn().Err(err).Str("wall_id", wall.ID).Msg("Failed to load wall owner")
	}

	photos, err := s.photos.ListByWall(ctx, wall.ID, !isOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}
	view.Photos, err = s.photoViews(ctx, photos, viewerID)
	if err != nil {
		return nil, err
	}
	view.PhotoCount = len(view.Photos)
	return view, nil
}

func (s *WallService) photoViews(ctx context.Context, photos []*models.WallPhoto, viewerID string) ([]*PhotoView, error) {
	ids := make([]string, 0, len(photos))
	views := make([]*PhotoView, 0, len(photos))
	byID := make(map[string]*PhotoView, len(photos))
	for _, p := range photos {
		v := &PhotoView{WallPhoto: p, Reactions: map[string]int{}, UserReacted: []string{}}
		ids = append(ids, p.ID)
		views = append(views, v)
		byID[p.ID] = v
	}

	reactions, err := s.reactions.ListByPhotos(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	for _, r := range reactions {
		v, ok := byID[r.PhotoID]
		if !ok {
			continue
		}
		v.Reactions[r.Emoji]++
		if viewerID != "" && r.UserID == viewerID {
			v.UserReacted = append(v.UserReacted, r.Emoji)
		}
	}
	return views, nil
}

// ArchivedWall is a past or current wall with its approved photo count
type ArchivedWall struct {
	*models.BirthdayWall
	State      lifecycle.State `json:"state"`
	PhotoCount int             `json:"photo_count"`
}

// ArchiveYear groups an owner's walls by birthday year
type ArchiveYear struct {
	Year  int             `json:"year"`
	Walls []*ArchivedWall `json:"walls"`
}

// Archive lists all of the owner's walls grouped by birthday year, newest
// first. Only the owner or an admin may read it.
func (s *WallService) Archive(ctx context.Context, viewer *models.User, ownerID string) ([]*ArchiveYear, error) {
	if viewer.ID != ownerID && !viewer.IsAdmin {
		return nil, fmt.Errorf("%w: only the wall owner can view the archive", ErrForbidden)
	}
	walls, err := s.walls.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list walls: %w", err)
	}

	now := s.now()
	byYear := make(map[int]*ArchiveYear)
	for _, w := range walls {
		count, err := s.photos.CountApprovedByWall(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count photos: %w", err)
		}
		y, ok := byYear[w.BirthdayYear]
		if !ok {
			y = &ArchiveYear{Year: w.BirthdayYear}
			byYear[w.BirthdayYear] = y
		}
		y.Walls = append(y.Walls, &ArchivedWall{BirthdayWall: w, State: lifecycle.WallState(w, now), PhotoCount: count})
	}

	years := make([]*ArchiveYear, 0, len(byYear))
	for _, y := range byYear {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })
	return years, nil
}

// CheckUpload returns nil if user may upload a photo to wall at now, or the
// sentinel naming the first rule that forbids it
func (s *WallService) CheckUpload(ctx context.Context, wall *models.BirthdayWall, user *models.User, now time.Time) error {
	switch lifecycle.WallState(wall, now) {
	case lifecycle.Pending:
		return ErrWallNotOpen
	case lifecycle.Archived:
		return ErrWallArchived
	}
	if !wall.IsActive {
		return ErrWallNotOpen
	}
	if wall.IsSealed {
		return ErrWallSealed
	}
	if !wall.UploadsEnabled {
		return ErrUploadsDisabled
	}
	if wall.UploadPaused {
		return ErrUploadsPaused
	}

	permitted, err := s.uploadPermitted(ctx, wall, user)
	if err != nil {
		return err
	}
	if !permitted {
		return ErrUploadNotPermitted
	}

	uploaded, err := s.photos.HasUploaded(ctx, wall.ID, user.ID)
	if err != nil {
		return fmt.Errorf("failed to check upload allowance: %w", err)
	}
	if uploaded {
		return ErrAlreadyUploaded
	}

	count, err := s.photos.CountByWall(ctx, wall.ID)
	if err != nil {
		return fmt.Errorf("failed to count photos: %w", err)
	}
	if count >= wall.MaxPhotos {
		return ErrPhotoLimit
	}
	return nil
}

func (s *WallService) uploadPermitted(ctx context.Context, wall *models.BirthdayWall, user *models.User) (bool, error) {
	if user.ID == wall.OwnerID {
		return true, nil
	}

	policy := wall.UploadPermission
	if policy == models.UploadPermissionBirthdayMates || policy == models.UploadPermissionBoth {
		owner, err := s.users.GetByID(ctx, wall.OwnerID)
		if err != nil {
			return false, fmt.Errorf("failed to load wall owner: %w", err)
		}
		if owner.TribeID == user.TribeID {
			return true, nil
		}
	}
	if policy == models.UploadPermissionInvitedGuests || policy == models.UploadPermissionBoth {
		accepted, err := s.invitations.HasAccepted(ctx, wall.ID, user.ID)
		if err != nil {
			return false, fmt.Errorf("failed to check invitation: %w", err)
		}
		if accepted {
			return true, nil
		}
	}
	return false, nil
}

// UploadPhotoInput is a decoded multipart photo upload
type UploadPhotoInput struct {
	Data        []byte
	ContentType string
	Caption     string
	FrameStyle  string
}

// UploadPhoto adds the user's single photo to an open wall
func (s *WallService) UploadPhoto(ctx context.Context, user *models.User, wallID string, in UploadPhotoInput) (*models.WallPhoto, error) {
	wall, err := s.getWall(ctx, wallID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.CheckUpload(ctx, wall, user, now); err != nil {
		return nil, err
	}

	stored, err := s.media.StoreWallPhoto(ctx, wall.ID, in.Data, in.ContentType)
	if err != nil {
		return nil, err
	}

	uploaderName := user.FirstName
	if uploaderName == "" {
		uploaderName = models.DefaultUploaderName
	}
	photo := &models.WallPhoto{
		ID:               uuid.New().String(),
		WallID:           wall.ID,
		PhotoURL:         stored.URL,
		UploadedByUserID: &user.ID,
		UploadedByName:   uploaderName,
		FrameStyle:       normalizeFrame(in.FrameStyle),
		IsApproved:       true,
		CreatedAt:        now,
	}
	if caption := Sanitize(in.Caption, 500); caption != "" {
		photo.Caption = &caption
	}
	upload := &models.WallUpload{WallID: wall.ID, UploaderID: user.ID, CreatedAt: now}

	if err := s.photos.CreateWithUpload(ctx, photo, upload, wall.MaxPhotos); err != nil {
		s.media.Discard(ctx, stored)
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, ErrAlreadyUploaded
		case errors.Is(err, models.ErrFull):
			return nil, ErrPhotoLimit
		}
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}

	log.Info().Str("wall_id", wall.ID).Str("photo_id", photo.ID).Str("user_id", user.ID).Msg("Wall photo uploaded")
	return photo, nil
}

func normalizeFrame(frame string) string {
	if models.OneOf(frame, models.FrameStyles) {
		return frame
	}
	return models.DefaultFrameStyle
}

// UpdatePhotoRequest edits a photo. Only the owner may change approval.
type UpdatePhotoRequest struct {
	Caption    *string `json:"caption"`
	FrameStyle *string `json:"frame_style"`
	IsApproved *bool   `json:"is_approved"`
}

// UpdatePhoto edits a photo as the wall owner or the photo's uploader
func (s *WallService) UpdatePhoto(ctx context.Context, user *models.User, wallID, photoID string, req UpdatePhotoRequest) (*models.WallPhoto, error) {
	wall, photo, err := s.getWallPhoto(ctx, wallID, photoID)
	if err != nil {
		return nil, err
	}

	isOwner := wall.OwnerID == user.ID
	isUploader := photo.UploadedByUserID != nil && *photo.UploadedByUserID == user.ID
	if !isOwner && !isUploader {
		return nil, fmt.Errorf("%w: only the wall owner or uploader can edit this photo", ErrForbidden)
	}
	if req.IsApproved != nil {
		if !isOwner {
			return nil, fmt.Errorf("%w: only the wall owner can approve photos", ErrForbidden)
		}
		photo.IsApproved = *req.IsApproved
	}
	if req.Caption != nil {
		caption := Sanitize(*req.Caption, 500)
		photo.Caption = &caption
	}
	if req.FrameStyle != nil {
		photo.FrameStyle = normalizeFrame(*req.FrameStyle)
	}

	if err := s.photos.Update(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to update photo: %w", err)
	}
	return photo, nil
}

// DeletePhoto removes a photo as the wall owner or the photo's uploader
func (s *WallService) DeletePhoto(ctx context.Context, user *models.User, wallID, photoID string) error {
	wall, photo, err := s.getWallPhoto(ctx, wallID, photoID)
	if err != nil {
		return err
	}

	isUploader := photo.UploadedByUserID != nil && *photo.UploadedByUserID == user.ID
	if wall.OwnerID != user.ID && !isUploader {
		return fmt.Errorf("%w: only the wall owner or uploader can delete this photo", ErrForbidden)
	}

	if err := s.photos.Delete(ctx, photo.ID); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	log.Info().Str("wall_id", wall.ID).Str("photo_id", photo.ID).Str("user_id", user.ID).Msg("Wall photo deleted")
	return nil
}

// ReactionResult reports what a reaction request did
type ReactionResult struct {
	Action    string         `json:"action"`
	Emoji     string         `json:"emoji"`
	Reactions map[string]int `json:"reactions"`
}

// React toggles the user's emoji on a photo. Reacting with the same emoji
// removes it; a different emoji replaces the user's earlier reaction.
func (s *WallService) React(ctx context.Context, user *models.User, wallID, photoID, emoji string) (*ReactionResult, error) {
	if !models.OneOf(emoji, models.ReactionEmojis) {
		return nil, fmt.Errorf("%w: emoji must be one of %s", ErrInvalidInput, strings.Join(models.ReactionEmojis, " "))
	}

	wall, photo, err := s.getWallPhoto(ctx, wallID, photoID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !wall.AllowReactions {
		return nil, ErrReactionsDisabled
	}
	if lifecycle.WallState(wall, now) == lifecycle.Archived {
		return nil, ErrWallArchived
	}
	if !photo.IsApproved && wall.OwnerID != user.ID {
		return nil, ErrPhotoNotFound
	}

	result := &ReactionResult{Emoji: emoji}
	existing, err := s.reactions.Get(ctx, photo.ID, user.ID)
	switch {
	case err == nil && existing.Emoji == emoji:
		if err := s.reactions.Delete(ctx, photo.ID, user.ID, emoji); err != nil {
			return nil, fmt.Errorf("failed to remove reaction: %w", err)
		}
		result.Action = "removed"
	case err == nil || errors.Is(err, models.ErrNotFound):
		result.Action = "added"
		if err == nil {
			result.Action = "replaced"
		}
		r := &models.PhotoReaction{ID: uuid.New().String(), PhotoID: photo.ID, UserID: user.ID, Emoji: emoji, CreatedAt: now}
		if err := s.reactions.Upsert(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save reaction: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load reaction: %w", err)
	}

	views, err := s.photoViews(ctx, []*models.WallPhoto{photo}, user.ID)
	if err != nil {
		return nil, err
	}
	result.Reactions = views[0].Reactions
	return result, nil
}

// UploadControlRequest changes who may upload and whether uploads are open
type UploadControlRequest struct {
	UploadsEnabled   *bool   `json:"uploads_enabled"`
	UploadPermission *string `json:"upload_permission"`
	UploadPaused     *bool   `json:"upload_paused"`
	IsSealed         *bool   `json:"is_sealed"`
}

// UpdateUploadControl applies the owner's upload settings. Sealing disables
// uploads; a sealed wall cannot be unsealed after it closes.
func (s *WallService) UpdateUploadControl(ctx context.Context, user *models.User, wallID string, req UploadControlRequest) (*models.BirthdayWall, error) {
	wall, err := s.ownedWall(ctx, user, wallID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if req.UploadPermission != nil {
		if !models.OneOf(*req.UploadPermission, models.UploadPermissions) {
			return nil, fmt.Errorf("%w: upload_permission must be one of %s", ErrInvalidInput, strings.Join(models.UploadPermissions, ", "))
		}
		wall.UploadPermission = *req.UploadPermission
	}

	if req.IsSealed != nil {
		switch {
		case *req.IsSealed && !wall.IsSealed:
			wall.IsSealed = true
			wall.SealedAt = &now
			wall.UploadsEnabled = false
		case !*req.IsSealed && wall.IsSealed:
			if now.After(wall.ClosesAt) {
				return nil, ErrCannotUnseal
			}
			wall.IsSealed = false
			wall.SealedAt = nil
		}
	}

	if req.UploadsEnabled != nil {
		if *req.UploadsEnabled && wall.IsSealed {
			return nil, ErrWallSealed
		}
		wall.UploadsEnabled = *req.UploadsEnabled
	}
	if req.UploadPaused != nil {
		wall.UploadPaused = *req.UploadPaused
	}

	wall.UpdatedAt = now
	if err := s.walls.UpdateUploadControl(ctx, wall); err != nil {
		return nil, fmt.Errorf("failed to update upload control: %w", err)
	}

	log.Info().
		Str("wall_id", wall.ID).
		Bool("uploads_enabled", wall.UploadsEnabled).
		Str("upload_permission", wall.UploadPermission).
		Bool("upload_paused", wall.UploadPaused).
		Bool("is_sealed", wall.IsSealed).
		Msg("Wall upload control updated")
	return wall, nil
}

// UploadStatus tells a user whether they can upload now
type UploadStatus struct {
	WallID           string          `json:"wall_id"`
	State            lifecycle.State `json:"state"`
	CanUpload        bool            `json:"can_upload"`
	Reason           string          `json:"reason,omitempty"`
	HasUploaded      bool            `json:"has_uploaded"`
	UploadsEnabled   bool            `json:"uploads_enabled"`
	UploadPermission string          `json:"upload_permission"`
	UploadPaused     bool            `json:"upload_paused"`
	IsSealed         bool            `json:"is_sealed"`
	PhotoCount       int             `json:"photo_count"`
	MaxPhotos        int             `json:"max_photos"`
}

// GetUploadStatus evaluates the upload rules for user without uploading
func (s *WallService) GetUploadStatus(ctx context.Context, user *models.User, wallID string) (*UploadStatus, error) {
	wall, err := s.getWall(ctx, wallID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	status := &UploadStatus{
		WallID:           wall.ID,
		State:            lifecycle.WallState(wall, now),
		UploadsEnabled:   wall.UploadsEnabled,
		UploadPermission: wall.UploadPermission,
		UploadPaused:     wall.UploadPaused,
		IsSealed:         wall.IsSealed,
		MaxPhotos:        wall.MaxPhotos,
	}
	if status.HasUploaded, err = s.photos.HasUploaded(ctx, wall.ID, user.ID); err != nil {
		return nil, fmt.Errorf("failed to check upload allowance: %w", err)
	}
	if status.PhotoCount, err = s.photos.CountByWall(ctx, wall.ID); err != nil {
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}

	err = s.CheckUpload(ctx, wall, user, now)
	switch {
	case err == nil:
		status.CanUpload = true
	case isRuleError(err):
		status.Reason = err.Error()
	default:
		return nil, err
	}
	return status, nil
}

var uploadRuleErrors = []error{
	ErrWallNotOpen, ErrWallArchived, ErrWallSealed, ErrUploadsDisabled, ErrUploadsPaused,
	ErrUploadNotPermitted, ErrAlreadyUploaded, ErrPhotoLimit,
}

func isRuleError(err error) bool {
	for _, e := range uploadRuleErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// InviteRequest invites a birthday mate by user id or a guest by email
type InviteRequest struct {
	InvitationType string  `json:"invitation_type"`
	InvitedUserID  *string `json:"invited_user_id"`
	InvitedEmail   *string `json:"invited_email"`
	InvitedName    *string `json:"invited_name"`
}

// Invite creates an upload invitation on the owner's wall
func (s *WallService) Invite(ctx context.Context, owner *models.User, wallID string, req InviteRequest) (*models.WallInvitation, error) {
	wall, err := s.ownedWall(ctx, owner, wallID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if lifecycle.WallState(wall, now) == lifecycle.Archived {
		return nil, ErrWallArchived
	}

	inv := &models.WallInvitation{
		ID:             uuid.New().String(),
		WallID:         wall.ID,
		InvitationType: req.InvitationType,
		InviteCode:     urlToken(16),
		CreatedAt:      now,
	}

	switch req.InvitationType {
	case models.InvitationBirthdayMate:
		if req.InvitedUserID == nil || *req.InvitedUserID == "" {
			return nil, fmt.Errorf("%w: invited_user_id is required for birthday mate invitations", ErrInvalidInput)
		}
		if *req.InvitedUserID == owner.ID {
			return nil, fmt.Errorf("%w: you cannot invite yourself", ErrInvalidInput)
		}
		invitee, err := s.users.GetByID(ctx, *req.InvitedUserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to load invitee: %w", err)
		}
		if invitee.TribeID != owner.TribeID {
			return nil, ErrNotBirthdayMate
		}
		exists, err := s.invitations.ExistsForUser(ctx, wall.ID, invitee.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check invitation: %w", err)
		}
		if exists {
			return nil, ErrAlreadyInvited
		}
		inv.InvitedUserID = &invitee.ID
		inv.InvitedName = &invitee.FirstName

	case models.InvitationGuest:
		if req.InvitedEmail == nil {
			return nil, fmt.Errorf("%w: invited_email is required for guest invitations", ErrInvalidInput)
		}
		email := strings.ToLower(strings.TrimSpace(*req.InvitedEmail))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invited_email is not a valid email", ErrInvalidInput)
		}
		exists, err := s.invitations.ExistsForEmail(ctx, wall.ID, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check invitation: %w", err)
		}
		if exists {
			return nil, ErrAlreadyInvited
		}
		inv.InvitedEmail = &email
		if req.InvitedName != nil {
			name := Sanitize(*req.InvitedName, 100)
			inv.InvitedName = &name
		}

	default:
		return nil, fmt.Errorf("%w: invitation_type must be %s or %s", ErrInvalidInput, models.InvitationBirthdayMate, models.InvitationGuest)
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrAlreadyInvited
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	log.Info().Str("wall_id", wall.ID).Str("invitation_id", inv.ID).Str("type", inv.InvitationType).Msg("Wall invitation created")
	return inv, nil
}

// Invitations lists the invitations of the owner's wall
func (s *WallService) Invitations(ctx context.Context, owner *models.User, wallID string) ([]*models.WallInvitation, error) {
	wall, err := s.ownedWall(ctx, owner, wallID)
	if err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListByWall(ctx, wall.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

// AcceptInvitation redeems an invitation code for user
func (s *WallService) AcceptInvitation(ctx context.Context, user *models.User, code string) (*models.WallInvitation, error) {
	inv, err := s.invitations.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	if inv.IsAccepted {
		if inv.AcceptedBy != nil && *inv.AcceptedBy == user.ID {
			return inv, nil
		}
		return nil, ErrInvitationUsed
	}
	if inv.InvitationType == models.InvitationBirthdayMate && (inv.InvitedUserID == nil || *inv.InvitedUserID != user.ID) {
		return nil, fmt.Errorf("%w: this invitation was sent to someone else", ErrForbidden)
	}

	wall, err := s.getWall(ctx, inv.WallID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if lifecycle.WallState(wall, now) == lifecycle.Archived {
		return nil, ErrWallArchived
	}

	if err := s.invitations.Accept(ctx, inv.ID, user.ID, now); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrInvitationUsed
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	inv.IsAccepted = true
	inv.AcceptedBy = &user.ID
	inv.AcceptedAt = &now
	return inv, nil
}

func (s *WallService) getWall(ctx context.Context, id string) (*models.BirthdayWall, error) {
	wall, err := s.walls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrWallNotFound
		}
		return nil, fmt.Errorf("failed to load wall: %w", err)
	}
	return wall, nil
}

func (s *WallService) ownedWall(ctx context.Context, user *models.User, id string) (*models.BirthdayWall, error) {
	wall, err := s.getWall(ctx, id)
	if err != nil {
		return nil, err
	}
	if wall.OwnerID != user.ID {
		return nil, fmt.Errorf("%w: only the wall owner can do this", ErrForbidden)
	}
	return wall, nil
}

func (s *WallService) getWallPhoto(ctx context.Context, wallID, photoID string) (*models.BirthdayWall, *models.WallPhoto, error) {
	wall, err := s.getWall(ctx, wallID)
	if err != nil {
		return nil, nil, err
	}
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, ErrPhotoNotFound
		}
		return nil, nil, fmt.Errorf("failed to load photo: %w", err)
	}
	if photo.WallID != wall.ID {
		return nil, nil, ErrPhotoNotFound
	}
	return wall, photo, nil
}
