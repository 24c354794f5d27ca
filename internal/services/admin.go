package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"birthday-mate-backend/internal/lifecycle"
	"birthday-mate-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AdminService handles moderation, featured celebrities and platform stats
type AdminService struct {
	admin    AdminStore
	users    UserStore
	photos   PhotoStore
	messages MessageStore
	rooms    *RoomService
	now      func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(admin AdminStore, users UserStore, photos PhotoStore, messages MessageStore, rooms *RoomService) *AdminService {
	return &AdminService{
		admin:    admin,
		users:    users,
		photos:   photos,
		messages: messages,
		rooms:    rooms,
		now:      time.Now,
	}
}

// FlagRequest reports a piece of content
type FlagRequest struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Reason      string `json:"reason"`
}

// FlagContent stores a user report for moderator review
func (s *AdminService) FlagContent(ctx context.Context, reporter *models.User, req FlagRequest) (*models.FlaggedContent, error) {
	if !models.OneOf(req.ContentType, models.FlagContentTypes) {
		return nil, fmt.Errorf("%w: content_type must be one of %s", ErrInvalidInput, strings.Join(models.FlagContentTypes, ", "))
	}
	if strings.TrimSpace(req.ContentID) == "" {
		return nil, fmt.Errorf("%w: content_id is required", ErrInvalidInput)
	}
	reason := Sanitize(req.Reason, 500)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	f := &models.FlaggedContent{
		ID:          uuid.New().String(),
		ContentType: req.ContentType,
		ContentID:   strings.TrimSpace(req.ContentID),
		ReportedBy:  reporter.ID,
		Reason:      reason,
		Status:      models.FlagPending,
		CreatedAt:   s.now(),
	}
	if err := s.admin.CreateFlag(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to store flag: %w", err)
	}

	log.Info().Str("flag_id", f.ID).Str("content_type", f.ContentType).Str("content_id", f.ContentID).Msg("Content flagged")
	return f, nil
}

// ListFlags returns reports in the given status, pending by default
func (s *AdminService) ListFlags(ctx context.Context, status string, limit int) ([]*models.FlaggedContent, error) {
	if status == "" {
		status = models.FlagPending
	}
	switch status {
	case models.FlagPending, models.FlagReviewed, models.FlagDismissed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	flags, err := s.admin.ListFlags(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return nonNil(flags), nil
}

// ReviewRequest is a moderator decision on a report
type ReviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// Review applies a moderation action to a reported item and logs it.
// Approval closes the report as dismissed; every other action marks it
// reviewed.
func (s *AdminService) Review(ctx context.Context, admin *models.User, flagID string, req ReviewRequest) (*models.ModerationLog, error) {
	if !models.OneOf(req.Action, models.ModerationActions) {
		return nil, fmt.Errorf("%w: action must be one of %s", ErrInvalidInput, strings.Join(models.ModerationActions, ", "))
	}

	flag, err := s.admin.GetFlag(ctx, flagID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to load flag: %w", err)
	}

	target, err := s.contentOwner(ctx, flag)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case models.ActionContentRemoved:
		if err := s.removeContent(ctx, flag); err != nil {
			return nil, err
		}
	case models.ActionUserSuspended, models.ActionUserBanned:
		if target == nil {
			return nil, fmt.Errorf("%w: reported content has no owner to act on", ErrInvalidInput)
		}
		if err := s.deactivate(ctx, *target); err != nil {
			return nil, err
		}
	}

	now := s.now()
	status := models.FlagReviewed
	if req.Action == models.ActionContentApproved {
		status = models.FlagDismissed
	}
	if err := s.admin.ResolveFlag(ctx, flag.ID, status, admin.ID, now); err != nil {
		return nil, fmt.Errorf("failed to resolve flag: %w", err)
	}

	entry := &models.ModerationLog{
		ID:           uuid.New().String(),
		AdminID:      admin.ID,
		Action:       req.Action,
		TargetUserID: target,
		ContentType:  &flag.ContentType,
		ContentID:    &flag.ContentID,
		CreatedAt:    now,
	}
	if notes := Sanitize(req.Notes, 1000); notes != "" {
		entry.Notes = &notes
	}
	if err := s.admin.CreateLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write moderation log: %w", err)
	}

	log.Info().
		Str("flag_id", flag.ID).
		Str("admin_id", admin.ID).
		Str("action", req.Action).
		Msg("Flag reviewed")
	return entry, nil
}

// contentOwner resolves the user responsible for a reported item. Photos
// uploaded anonymously have no owner.
func (s *AdminService) contentOwner(ctx context.Context, flag *models.FlaggedContent) (*string, error) {
	switch flag.ContentType {
	case "message":
		msg, err := s.messages.GetByID(ctx, flag.ContentID)
		if err != nil {
			return nil, contentErr(err, "message")
		}
		return &msg.UserID, nil
	case "photo":
		photo, err := s.photos.GetByID(ctx, flag.ContentID)
		if err != nil {
			return nil, contentErr(err, "photo")
		}
		return photo.UploadedByUserID, nil
	default:
		u, err := s.users.GetByID(ctx, flag.ContentID)
		if err != nil {
			return nil, contentErr(err, "user")
		}
		return &u.ID, nil
	}
}

func (s *AdminService) removeContent(ctx context.Context, flag *models.FlaggedContent) error {
	switch flag.ContentType {
	case "message":
		return s.rooms.RemoveMessage(ctx, flag.ContentID)
	case "photo":
		if err := s.photos.Delete(ctx, flag.ContentID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to delete photo: %w", err)
		}
	case "profile_picture":
		u, err := s.users.GetByID(ctx, flag.ContentID)
		if err != nil {
			return contentErr(err, "user")
		}
		u.ProfilePictureURL = nil
		u.UpdatedAt = s.now()
		if err := s.users.Update(ctx, u); err != nil {
			return fmt.Errorf("failed to clear profile picture: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s content cannot be removed, suspend the user instead", ErrInvalidInput, flag.ContentType)
	}
	return nil
}

func (s *AdminService) deactivate(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return contentErr(err, "user")
	}
	if u.IsAdmin {
		return fmt.Errorf("%w: admins cannot be suspended", ErrForbidden)
	}
	u.IsActive = false
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

func contentErr(err error, what string) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrContentNotFound, what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// CelebrityRequest adds a featured celebrity
type CelebrityRequest struct {
	Name        string  `json:"name"`
	BirthMonth  int     `json:"birth_month"`
	BirthDay    int     `json:"birth_day"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Priority    int     `json:"priority"`
}

// AddCelebrity stores a celebrity to feature on their birthday
func (s *AdminService) AddCelebrity(ctx context.Context, req CelebrityRequest) (*models.Celebrity, error) {
	name := Sanitize(req.Name, 200)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validMonthDay(req.BirthMonth, req.BirthDay) {
		return nil, fmt.Errorf("%w: invalid birth_month/birth_day", ErrInvalidInput)
	}

	c := &models.Celebrity{
		ID:         uuid.New().String(),
		Name:       name,
		BirthMonth: req.BirthMonth,
		BirthDay:   req.BirthDay,
		ImageURL:   req.ImageURL,
		Priority:   req.Priority,
		CreatedAt:  s.now(),
	}
	if req.Description != nil {
		desc := Sanitize(*req.Description, 1000)
		c.Description = &desc
	}
	if c.ImageURL != nil {
		if err := validatePictureURL(*c.ImageURL); err != nil {
			return nil, err
		}
	}

	if err := s.admin.CreateCelebrity(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store celebrity: %w", err)
	}
	return c, nil
}

// CelebritiesToday lists celebrities born on today's date by priority
func (s *AdminService) CelebritiesToday(ctx context.Context) ([]*models.Celebrity, error) {
	now := s.now()
	list, err := s.admin.ListCelebrities(ctx, int(now.Month()), now.Day())
	if err != nil {
		return nil, fmt.Errorf("failed to list celebrities: %w", err)
	}
	return nonNil(list), nil
}

// Overview returns headline counts for the admin dashboard
func (s *AdminService) Overview(ctx context.Context) (*models.Overview, error) {
	now := s.now()
	today := lifecycle.Day(now)
	o, err := s.admin.Overview(ctx, int(today.Month()), today.Day(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}
	return o, nil
}

// CelebrantsByState counts today's celebrants per state, limited to users
// who made their state visible
func (s *AdminService) CelebrantsByState(ctx context.Context) ([]models.StateCount, error) {
	now := s.now()
	counts, err := s.users.CelebrantsByState(ctx, int(now.Month()), now.Day())
	if err != nil {
		return nil, fmt.Errorf("failed to count celebrants: %w", err)
	}
	return nonNil(counts), nil
}

// CelebrantsInState lists today's celebrants in state
func (s *AdminService) CelebrantsInState(ctx context.Context, state string) (*models.StateCelebrants, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	now := s.now()
	users, total, err := s.users.CelebrantsInState(ctx, int(now.Month()), now.Day(), state)
	if err != nil {
		return nil, fmt.Errorf("failed to list celebrants: %w", err)
	}
	out := &models.StateCelebrants{State: state, Total: total, Visible: make([]models.StateCelebrant, 0, len(users))}
	for _, u := range users {
		out.Visible = append(out.Visible, models.StateCelebrant{
			ID:                u.ID,
			FirstName:         u.FirstName,
			ProfilePictureURL: u.ProfilePictureURL,
			City:              u.City,
		})
	}
	return out, nil
}

// Contacts lists recent contact form submissions
func (s *AdminService) Contacts(ctx context.Context, limit int) ([]*models.ContactSubmission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := s.admin.ListContacts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact submissions: %w", err)
	}
	return nonNil(list), nil
}

const (
	maxAnalyticsDays = 365
	maxActivityLimit = 200
	geographyLimit   = 10
	tribeLimit       = 20
)

func analyticsWindow(days int) error {
	if days < 1 || days > maxAnalyticsDays {
		return fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxAnalyticsDays)
	}
	return nil
}

// Analytics summarises users, engagement and moderation over the last days
func (s *AdminService) Analytics(ctx context.Context, days int) (*models.Analytics, error) {
	if err := analyticsWindow(days); err != nil {
		return nil, err
	}
	now := s.now()
	today := lifecycle.Day(now)
	a, err := s.admin.Analytics(ctx, int(today.Month()), today.Day(), now.AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}
	a.PeriodDays = days
	if before := a.Users.Total - a.Users.NewInPeriod; before > 0 {
		a.Users.GrowthRate = math.Round(float64(a.Users.NewInPeriod)/float64(before)*10000) / 100
	}
	return a, nil
}

// UserGrowth counts registrations per day over the last days
func (s *AdminService) UserGrowth(ctx context.Context, days int) ([]models.DailyCount, error) {
	if err := analyticsWindow(days); err != nil {
		return nil, err
	}
	counts, err := s.admin.DailyCounts(ctx, models.SeriesUsers, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("failed to load user growth: %w", err)
	}
	return nonNil(counts), nil
}

// EngagementSeries holds per-day activity counts
type EngagementSeries struct {
	PeriodDays    int                 `json:"period_days"`
	DailyMessages []models.DailyCount `json:"daily_messages"`
	DailyGifts    []models.DailyCount `json:"daily_gifts"`
	DailyWalls    []models.DailyCount `json:"daily_walls"`
}

// Engagement counts messages, gifts and walls per day over the last days
func (s *AdminService) Engagement(ctx context.Context, days int) (*EngagementSeries, error) {
	if err := analyticsWindow(days); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -days)
	out := &EngagementSeries{PeriodDays: days}
	for series, dst := range map[string]*[]models.DailyCount{
		models.SeriesMessages: &out.DailyMessages,
		models.SeriesGifts:    &out.DailyGifts,
		models.SeriesWalls:    &out.DailyWalls,
	} {
		counts, err := s.admin.DailyCounts(ctx, series, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s per day: %w", series, err)
		}
		*dst = nonNil(counts)
	}
	return out, nil
}

// Geography ranks the top countries and states by active users
func (s *AdminService) Geography(ctx context.Context) (*models.Geography, error) {
	g, err := s.admin.Geography(ctx, geographyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load geography: %w", err)
	}
	g.TopCountries = nonNil(g.TopCountries)
	g.TopStates = nonNil(g.TopStates)
	return g, nil
}

// Tribes ranks the largest tribes. The average covers the ranked tribes only.
func (s *AdminService) Tribes(ctx context.Context) (*models.TribeStats, error) {
	st, err := s.admin.TribeSizes(ctx, tribeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load tribe sizes: %w", err)
	}
	st.TopTribes = nonNil(st.TopTribes)
	if len(st.TopTribes) > 0 {
		total := 0
		for _, t := range st.TopTribes {
			total += t.MemberCount
		}
		st.AverageTribeSize = math.Round(float64(total)/float64(len(st.TopTribes))*100) / 100
	}
	return st, nil
}

// ActivityFeed is the merged recent activity across kinds
type ActivityFeed struct {
	Activities []*models.Activity `json:"activities"`
	Total      int                `json:"total"`
}

// RecentActivity merges the newest signups, messages, gifts, walls and
// moderation actions, newest first. An empty kind includes all of them.
// Total counts the merged entries before the limit is applied.
func (s *AdminService) RecentActivity(ctx context.Context, kind string, limit int) (*ActivityFeed, error) {
	if limit < 1 || limit > maxActivityLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, maxActivityLimit)
	}
	kinds := models.ActivityKinds
	if kind != "" {
		if !models.OneOf(kind, models.ActivityKinds) {
			return nil, fmt.Errorf("%w: activity_type must be one of %s", ErrInvalidInput, strings.Join(models.ActivityKinds, ", "))
		}
		kinds = []string{kind}
	}

	var all []*models.Activity
	for _, k := range kinds {
		list, err := s.admin.RecentActivity(ctx, k, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s activity: %w", k, err)
		}
		all = append(all, list...)
	}
	for _, a := range all {
		a.Details = describeActivity(a)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	feed := &ActivityFeed{Total: len(all), Activities: nonNil(all)}
	if len(feed.Activities) > limit {
		feed.Activities = feed.Activities[:limit]
	}
	return feed, nil
}

func describeActivity(a *models.Activity) string {
	switch a.Type {
	case "user_signup":
		return a.UserName + " joined the platform"
	case "message_sent":
		return "Message sent in room " + a.RoomID
	case "gift_sent":
		return "Gift (" + a.GiftType + ") sent"
	case "wall_created":
		return "Birthday wall created: " + a.WallCode
	case "moderation_action":
		return "Moderation: " + a.Action
	}
	return ""
}

// UserActivity lists per-user activity counts, most recently active first.
// An empty userID covers all users.
func (s *AdminService) UserActivity(ctx context.Context, userID string, limit int) ([]*models.UserActivity, error) {
	if limit < 1 || limit > maxActivityLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, maxActivityLimit)
	}
	list, err := s.admin.UserActivity(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load user activity: %w", err)
	}
	return nonNil(list), nil
}

func validMonthDay(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	d := time.Date(2000, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Day() == day
}
