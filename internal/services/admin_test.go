package services

import (
	"context"
	"testing"
	"time"

	"birthday-mate-backend/internal/memstore"
	"birthday-mate-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminFixture struct {
	db       *memstore.DB
	svc      *AdminService
	admin    *models.User
	reporter *models.User
	offender *models.User
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	db := memstore.New()
	registered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &adminFixture{
		db:       db,
		admin:    db.AddUser("Mod", 2, 2, registered),
		reporter: db.AddUser("Ngozi", 3, 14, registered),
		offender: db.AddUser("Troll", 3, 14, registered),
	}
	db.Users[f.admin.ID].IsAdmin = true
	f.admin.IsAdmin = true

	clock := fixedClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	rooms := NewRoomService(memstore.RoomStore{DB: db}, memstore.MessageStore{DB: db}, memstore.UserStore{DB: db}, &recordingNotifier{})
	rooms.now = clock
	f.svc = NewAdminService(memstore.AdminStore{DB: db}, memstore.UserStore{DB: db}, memstore.PhotoStore{DB: db}, memstore.MessageStore{DB: db}, rooms)
	f.svc.now = clock
	return f
}

func (f *adminFixture) flag(t *testing.T, contentType, contentID string) *models.FlaggedContent {
	t.Helper()
	fl, err := f.svc.FlagContent(context.Background(), f.reporter, FlagRequest{
		ContentType: contentType,
		ContentID:   contentID,
		Reason:      "not nice",
	})
	require.NoError(t, err)
	return fl
}

func TestFlagContentValidation(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	fl := f.flag(t, "user_profile", f.offender.ID)
	assert.Equal(t, models.FlagPending, fl.Status)
	assert.Equal(t, f.reporter.ID, fl.ReportedBy)

	_, err := f.svc.FlagContent(ctx, f.reporter, FlagRequest{ContentType: "wall", ContentID: "x", Reason: "r"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.FlagContent(ctx, f.reporter, FlagRequest{ContentType: "photo", ContentID: " ", Reason: "r"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.FlagContent(ctx, f.reporter, FlagRequest{ContentType: "photo", ContentID: "p1", Reason: "<script>x</script>"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	pending, err := f.svc.ListFlags(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.svc.ListFlags(ctx, "archived", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReviewRemovesMessage(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.db.Messages["m1"] = &models.Message{ID: "m1", RoomID: "r1", UserID: f.offender.ID, Content: "rude"}

	fl := f.flag(t, "message", "m1")
	entry, err := f.svc.Review(ctx, f.admin, fl.ID, ReviewRequest{Action: models.ActionContentRemoved, Notes: "  spam  "})
	require.NoError(t, err)

	assert.True(t, f.db.Messages["m1"].IsDeleted)
	require.NotNil(t, entry.TargetUserID)
	assert.Equal(t, f.offender.ID, *entry.TargetUserID)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "spam", *entry.Notes)
	assert.Equal(t, models.FlagReviewed, f.db.Flags[fl.ID].Status)
	assert.Equal(t, f.admin.ID, *f.db.Flags[fl.ID].ReviewedBy)
	assert.Len(t, f.db.Logs, 1)
}

func TestReviewRemovesPhotoAndPicture(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.db.Photos["p1"] = &models.WallPhoto{ID: "p1", WallID: "w1", UploadedByName: "Anonymous"}
	f.db.Users[f.offender.ID].ProfilePictureURL = ptr("https://cdn.example.com/x.png")

	_, err := f.svc.Review(ctx, f.admin, f.flag(t, "photo", "p1").ID, ReviewRequest{Action: models.ActionContentRemoved})
	require.NoError(t, err)
	assert.NotContains(t, f.db.Photos, "p1")

	_, err = f.svc.Review(ctx, f.admin, f.flag(t, "profile_picture", f.offender.ID).ID, ReviewRequest{Action: models.ActionContentRemoved})
	require.NoError(t, err)
	assert.Nil(t, f.db.Users[f.offender.ID].ProfilePictureURL)

	_, err = f.svc.Review(ctx, f.admin, f.flag(t, "user_profile", f.offender.ID).ID, ReviewRequest{Action: models.ActionContentRemoved})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReviewSuspendAndApprove(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.Review(ctx, f.admin, f.flag(t, "user_profile", f.offender.ID).ID, ReviewRequest{Action: models.ActionUserSuspended})
	require.NoError(t, err)
	assert.False(t, f.db.Users[f.offender.ID].IsActive)

	_, err = f.svc.Review(ctx, f.admin, f.flag(t, "user_profile", f.admin.ID).ID, ReviewRequest{Action: models.ActionUserBanned})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.True(t, f.db.Users[f.admin.ID].IsActive)

	approved := f.flag(t, "user_profile", f.reporter.ID)
	_, err = f.svc.Review(ctx, f.admin, approved.ID, ReviewRequest{Action: models.ActionContentApproved})
	require.NoError(t, err)
	assert.Equal(t, models.FlagDismissed, f.db.Flags[approved.ID].Status)

	dismissed, err := f.svc.ListFlags(ctx, models.FlagDismissed, 10)
	require.NoError(t, err)
	assert.Len(t, dismissed, 1)
}

func TestReviewErrors(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.Review(ctx, f.admin, "missing", ReviewRequest{Action: models.ActionWarning})
	assert.ErrorIs(t, err, ErrFlagNotFound)

	fl := f.flag(t, "message", "gone")
	_, err = f.svc.Review(ctx, f.admin, fl.ID, ReviewRequest{Action: models.ActionWarning})
	assert.ErrorIs(t, err, ErrContentNotFound)

	_, err = f.svc.Review(ctx, f.admin, fl.ID, ReviewRequest{Action: "delete"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCelebrities(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddCelebrity(ctx, CelebrityRequest{Name: "Albert Einstein", BirthMonth: 3, BirthDay: 14, Priority: 1})
	require.NoError(t, err)
	_, err = f.svc.AddCelebrity(ctx, CelebrityRequest{Name: "Simone Biles", BirthMonth: 3, BirthDay: 14, Priority: 5, ImageURL: ptr("https://img.example.com/s.jpg")})
	require.NoError(t, err)
	_, err = f.svc.AddCelebrity(ctx, CelebrityRequest{Name: "Someone Else", BirthMonth: 7, BirthDay: 1})
	require.NoError(t, err)

	_, err = f.svc.AddCelebrity(ctx, CelebrityRequest{Name: "Nobody", BirthMonth: 2, BirthDay: 30})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.AddCelebrity(ctx, CelebrityRequest{Name: "", BirthMonth: 1, BirthDay: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.AddCelebrity(ctx, CelebrityRequest{Name: "Bad Image", BirthMonth: 1, BirthDay: 1, ImageURL: ptr("javascript:alert(1)")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	today, err := f.svc.CelebritiesToday(ctx)
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "Simone Biles", today[0].Name)
}

func TestOverviewAndCelebrants(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.db.Users[f.reporter.ID].StateVisibilityEnabled = true
	f.db.Users[f.offender.ID].StateVisibilityEnabled = true
	f.flag(t, "user_profile", f.offender.ID)

	o, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, o.TotalUsers)
	assert.Equal(t, 2, o.TodayCelebrants)
	assert.Equal(t, 1, o.PendingFlags)

	counts, err := f.svc.CelebrantsByState(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, models.StateCount{Country: "Nigeria", State: "Lagos", Count: 2}, counts[0])

	f.db.Users[f.offender.ID].StateVisibilityEnabled = false
	lagos, err := f.svc.CelebrantsInState(ctx, "Lagos")
	require.NoError(t, err)
	assert.Equal(t, 2, lagos.Total)
	require.Len(t, lagos.Visible, 1)
	assert.Equal(t, "Ngozi", lagos.Visible[0].FirstName)

	abuja, err := f.svc.CelebrantsInState(ctx, "Abuja")
	require.NoError(t, err)
	assert.Zero(t, abuja.Total)
	assert.Empty(t, abuja.Visible)

	_, err = f.svc.CelebrantsInState(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func (f *adminFixture) seedActivity(t *testing.T) (newcomer, late *models.User) {
	t.Helper()
	recent := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	newcomer = f.db.AddUser("Zainab", 3, 14, recent)
	late = f.db.AddUser("Kemi", 7, 7, recent.Add(2*time.Hour))
	f.db.Users[newcomer.ID].Country = "Ghana"
	f.db.Users[newcomer.ID].State = "Accra"

	f.db.Messages["m-old"] = &models.Message{ID: "m-old", RoomID: "room-1", UserID: f.reporter.ID, Content: "old",
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), UpdatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	f.db.Messages["m-new"] = &models.Message{ID: "m-new", RoomID: "room-1", UserID: newcomer.ID, Content: "hi",
		CreatedAt: recent, UpdatedAt: recent}
	f.db.Gifts["g-1"] = &models.Gift{ID: "g-1", SenderID: f.reporter.ID, RecipientID: newcomer.ID,
		GiftType: models.GiftConfettiEffect, CreatedAt: time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)}
	f.flag(t, "user_profile", f.offender.ID)
	return newcomer, late
}

func TestAnalyticsOverview(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedActivity(t)

	a, err := f.svc.Analytics(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, a.PeriodDays)
	assert.Equal(t, models.UserMetrics{Total: 5, Active: 5, NewInPeriod: 2, GrowthRate: 66.67}, a.Users)
	assert.Equal(t, 1, a.Engagement.MessagesInPeriod)
	assert.Equal(t, 1, a.Engagement.GiftsSentInPeriod)
	assert.Equal(t, 0, a.Engagement.WallsCreatedInPeriod)
	assert.Equal(t, 3, a.Engagement.TodaysCelebrants)
	assert.Equal(t, 1, a.Moderation.PendingFlags)

	for _, days := range []int{0, 366} {
		_, err = f.svc.Analytics(ctx, days)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestAnalyticsDailySeries(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedActivity(t)

	growth, err := f.svc.UserGrowth(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyCount{{Date: "2026-03-10", Count: 2}}, growth)

	eng, err := f.svc.Engagement(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyCount{{Date: "2026-03-10", Count: 1}}, eng.DailyMessages)
	assert.Equal(t, []models.DailyCount{{Date: "2026-03-12", Count: 1}}, eng.DailyGifts)
	assert.NotNil(t, eng.DailyWalls)
	assert.Empty(t, eng.DailyWalls)
}

func TestGeographyAndTribes(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedActivity(t)

	g, err := f.svc.Geography(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CountryCount{{Country: "Nigeria", UserCount: 4}, {Country: "Ghana", UserCount: 1}}, g.TopCountries)
	require.Len(t, g.TopStates, 2)
	assert.Equal(t, models.RegionCount{State: "Lagos", Country: "Nigeria", UserCount: 4}, g.TopStates[0])

	st, err := f.svc.Tribes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalTribes)
	require.Len(t, st.TopTribes, 3)
	assert.Equal(t, models.TribeSize{TribeID: models.TribeKey(3, 14), MemberCount: 3}, st.TopTribes[0])
	assert.Equal(t, 1.67, st.AverageTribeSize)
}

func TestActivityFeeds(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	newcomer, late := f.seedActivity(t)

	feed, err := f.svc.RecentActivity(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 8, feed.Total)
	require.Len(t, feed.Activities, 2)
	assert.Equal(t, "gift_sent", feed.Activities[0].Type)
	assert.Equal(t, "Gift ("+models.GiftConfettiEffect+") sent", feed.Activities[0].Details)
	assert.Equal(t, "user_signup", feed.Activities[1].Type)
	assert.Equal(t, "Kemi joined the platform", feed.Activities[1].Details)

	signups, err := f.svc.RecentActivity(ctx, models.ActivitySignup, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, signups.Total)

	_, err = f.svc.RecentActivity(ctx, "likes", 50)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.RecentActivity(ctx, "", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	one, err := f.svc.UserActivity(ctx, newcomer.ID, 50)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, models.UserActivityStats{MessagesSent: 1, GiftsReceived: 1}, one[0].Stats)
	assert.Equal(t, "Ghana", one[0].Country)

	recent, err := f.svc.UserActivity(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, late.ID, recent[0].UserID)
}
