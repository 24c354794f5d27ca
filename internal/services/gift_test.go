package services

import (
	"context"
	"testing"
	"time"

	"birthday-mate-backend/internal/lifecycle"
	"birthday-mate-backend/internal/memstore"
	"birthday-mate-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type giftFixture struct {
	db        *memstore.DB
	svc       *GiftService
	clock     time.Time
	sender    *models.User
	recipient *models.User
	outsider  *models.User
}

func newGiftFixture(t *testing.T, autoComplete bool) *giftFixture {
	t.Helper()
	db := memstore.New()
	registered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &giftFixture{
		db:        db,
		clock:     time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC),
		sender:    db.AddUser("Sade", 1, 1, registered),
		recipient: db.AddUser("Rita", 4, 10, registered),
		outsider:  db.AddUser("Olu", 7, 7, registered),
	}

	items := []*models.GiftCatalogItem{
		{ID: "card", GiftType: models.GiftDigitalCard, Name: "Sunrise Card", Price: decimal.RequireFromString("1.99")},
		{ID: "confetti", GiftType: models.GiftConfettiEffect, Name: "Confetti Blast", Price: decimal.RequireFromString("2.99")},
		{ID: "badge", GiftType: models.GiftCelebrantBadge, Name: "Superstar Badge", Price: decimal.RequireFromString("3.99")},
		{ID: "highlight", GiftType: models.GiftWallHighlight, Name: "Wall Spotlight", Price: decimal.RequireFromString("4.99")},
		{ID: "featured", GiftType: models.GiftFeaturedMessage, Name: "Tribe Shoutout", Price: decimal.RequireFromString("5.99")},
		{ID: "amazon", GiftType: models.GiftCard, Name: "Amazon Gift Card $25", Price: decimal.RequireFromString("25.00")},
		{ID: "retired", GiftType: models.GiftConfettiEffect, Name: "Old Confetti", Price: decimal.RequireFromString("0.99")},
	}
	for i, item := range items {
		item.Currency = "USD"
		item.DisplayOrder = i
		item.IsActive = item.ID != "retired"
		db.Catalog[item.ID] = item
	}

	currency := NewCurrencyService(&stubFetcher{rates: map[string]Rates{"USD": usdRates()}}, NewRateCache(time.Hour, 10), nil)
	f.svc = NewGiftService(memstore.GiftStore{DB: db}, memstore.UserStore{DB: db}, memstore.WallStore{DB: db}, memstore.RoomStore{DB: db}, currency, autoComplete)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *giftFixture) send(t *testing.T, catalogID string) *models.Gift {
	t.Helper()
	g, err := f.svc.Send(context.Background(), f.sender, SendGiftRequest{
		RecipientID:   f.recipient.ID,
		GiftCatalogID: catalogID,
		Message:       ptr("Have the best day!"),
	})
	require.NoError(t, err)
	return g
}

func (f *giftFixture) pay(t *testing.T, g *models.Gift) {
	t.Helper()
	require.NoError(t, memstore.GiftStore{DB: f.db}.UpdatePayment(context.Background(), g.ID, models.PaymentCompleted, nil, f.clock))
}

func TestCatalogLocalPrices(t *testing.T) {
	f := newGiftFixture(t, false)

	items, err := f.svc.Catalog(context.Background(), "", "Nigeria")
	require.NoError(t, err)
	require.Len(t, items, 6)
	require.NotNil(t, items[0].LocalPrice)
	assert.Equal(t, "NGN", items[0].LocalCurrency)
	assert.Equal(t, "3045.20", items[0].LocalPrice.StringFixed(2))

	items, err = f.svc.Catalog(context.Background(), models.GiftCelebrantBadge, "United States")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].LocalPrice)

	_, err = f.svc.Catalog(context.Background(), "balloon", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendGift(t *testing.T) {
	f := newGiftFixture(t, false)
	ctx := context.Background()

	g := f.send(t, "amazon")
	assert.Equal(t, models.PaymentPending, g.PaymentStatus)
	assert.Equal(t, "flutterwave", g.PaymentProvider)
	assert.Equal(t, "Amazon Gift Card $25", g.GiftName)
	assert.True(t, g.Amount.Equal(decimal.RequireFromString("25")))
	require.NotNil(t, g.GiftCardProvider)
	assert.Equal(t, "amazon", *g.GiftCardProvider)

	_, err := f.svc.Send(ctx, f.sender, SendGiftRequest{RecipientID: f.sender.ID, GiftCatalogID: "card"})
	assert.ErrorIs(t, err, ErrSelfGift)

	_, err = f.svc.Send(ctx, f.sender, SendGiftRequest{RecipientID: f.recipient.ID, GiftCatalogID: "retired"})
	assert.ErrorIs(t, err, ErrCatalogItemNotFound)

	_, err = f.svc.Send(ctx, f.sender, SendGiftRequest{RecipientID: f.recipient.ID, GiftCatalogID: "nope"})
	assert.ErrorIs(t, err, ErrCatalogItemNotFound)

	_, err = f.svc.Send(ctx, f.sender, SendGiftRequest{RecipientID: "ghost", GiftCatalogID: "card"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Send(ctx, f.sender, SendGiftRequest{RecipientID: f.recipient.ID, GiftCatalogID: "card", PaymentProvider: "cash"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestActivateRequiresPayment(t *testing.T) {
	f := newGiftFixture(t, false)
	ctx := context.Background()
	g := f.send(t, "confetti")

	_, err := f.svc.Activate(ctx, f.recipient, g.ID)
	require.ErrorIs(t, err, ErrPaymentIncomplete)

	_, err = f.svc.Activate(ctx, f.outsider, g.ID)
	require.ErrorIs(t, err, ErrForbidden)

	f.pay(t, g)
	res, err := f.svc.Activate(ctx, f.recipient, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "show_confetti", res.Action)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, f.clock.Add(24*time.Hour), *res.ExpiresAt)

	again, err := f.svc.Activate(ctx, f.sender, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gift already activated", again.Message)
	assert.Empty(t, again.Action)
}

func TestActivateAutoComplete(t *testing.T) {
	f := newGiftFixture(t, true)
	g := f.send(t, "card")

	res, err := f.svc.Activate(context.Background(), f.sender, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "view_card", res.Action)
	assert.Nil(t, res.ExpiresAt)
	assert.Equal(t, models.PaymentCompleted, f.db.Gifts[g.ID].PaymentStatus)
}

func TestActivateGiftCardUnsupported(t *testing.T) {
	f := newGiftFixture(t, false)
	g := f.send(t, "amazon")
	f.pay(t, g)

	_, err := f.svc.Activate(context.Background(), f.recipient, g.ID)
	assert.ErrorIs(t, err, ErrGiftCardUnsupported)
	assert.False(t, f.db.Gifts[g.ID].IsDelivered)
}

func TestActivateBadge(t *testing.T) {
	f := newGiftFixture(t, false)
	g := f.send(t, "badge")
	f.pay(t, g)

	res, err := f.svc.ActivatePaid(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "show_badge", res.Action)
	assert.Equal(t, "superstar", res.BadgeType)
}

func TestActivateWallHighlight(t *testing.T) {
	f := newGiftFixture(t, false)
	ctx := context.Background()

	pending := f.send(t, "highlight")
	f.pay(t, pending)
	res, err := f.svc.Activate(ctx, f.sender, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending_wall_highlight", res.Action)
	assert.Nil(t, res.WallID)

	opens, closes := lifecycle.WallWindow(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC))
	f.db.Walls["w1"] = &models.BirthdayWall{ID: "w1", OwnerID: f.recipient.ID, OpensAt: opens, ClosesAt: closes, BirthdayYear: 2026, IsActive: true}

	applied := f.send(t, "highlight")
	f.pay(t, applied)
	res, err = f.svc.Activate(ctx, f.sender, applied.ID)
	require.NoError(t, err)
	assert.Equal(t, "highlight_wall", res.Action)
	require.NotNil(t, res.WallID)
	assert.Equal(t, "w1", *res.WallID)
}

func TestActivateFeaturedMessage(t *testing.T) {
	f := newGiftFixture(t, false)
	ctx := context.Background()

	pending := f.send(t, "featured")
	f.pay(t, pending)
	res, err := f.svc.Activate(ctx, f.sender, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending_featured_message", res.Action)
	assert.Equal(t, "Have the best day!", res.MessageText)

	opens, closes := lifecycle.DayWindow(f.clock)
	f.db.Rooms["r1"] = &models.Room{ID: "r1", RoomType: models.RoomTypeTribe, RoomIdentifier: f.recipient.TribeID, OpensAt: opens, ClosesAt: closes, IsActive: true}

	pinned := f.send(t, "featured")
	f.pay(t, pinned)
	res, err = f.svc.Activate(ctx, f.sender, pinned.ID)
	require.NoError(t, err)
	assert.Equal(t, "pin_message", res.Action)
	require.NotNil(t, res.RoomID)
	assert.Equal(t, "r1", *res.RoomID)
}

func TestActiveGiftWindows(t *testing.T) {
	f := newGiftFixture(t, false)
	ctx := context.Background()
	delivered := f.clock

	for _, id := range []string{"confetti", "card", "highlight"} {
		g := f.send(t, id)
		f.pay(t, g)
		_, err := f.svc.Activate(ctx, f.recipient, g.ID)
		require.NoError(t, err)
	}
	f.send(t, "badge")

	f.clock = delivered.Add(23 * time.Hour)
	active, err := f.svc.Active(ctx, f.recipient.ID)
	require.NoError(t, err)
	assert.Len(t, active.ConfettiEffects, 1)
	assert.Len(t, active.DigitalCards, 1)
	assert.Len(t, active.WallHighlights, 1)
	assert.Empty(t, active.Badges)

	f.clock = delivered.Add(25 * time.Hour)
	active, err = f.svc.Active(ctx, f.recipient.ID)
	require.NoError(t, err)
	assert.Empty(t, active.ConfettiEffects)
	assert.Len(t, active.WallHighlights, 1)
	assert.Len(t, active.DigitalCards, 1)

	f.clock = delivered.Add(30 * 24 * time.Hour)
	active, err = f.svc.Active(ctx, f.recipient.ID)
	require.NoError(t, err)
	assert.Empty(t, active.WallHighlights)
	assert.Len(t, active.DigitalCards, 1, "digital cards never expire")
}

func TestGiftVisibility(t *testing.T) {
	f := newGiftFixture(t, false)
	ctx := context.Background()
	g := f.send(t, "card")

	_, err := f.svc.GetForParty(ctx, f.outsider, g.ID)
	assert.ErrorIs(t, err, ErrGiftNotFound)

	got, err := f.svc.GetForParty(ctx, f.recipient, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)

	received, err := f.svc.Received(ctx, f.recipient)
	require.NoError(t, err)
	assert.Empty(t, received, "unpaid gifts are not shown to the recipient")

	sent, err := f.svc.Sent(ctx, f.sender)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}

func TestGiftCardProvider(t *testing.T) {
	cases := map[string]string{
		"Amazon Gift Card $25": "amazon",
		"Uber Eats Voucher":    "uber_eats",
		"Uber Ride Credit":     "uber",
		"Apple App Store Card": "apple",
		"Google Play $10":      "google_play",
		"Disney+ Annual":       "disney_plus",
		"Mystery Box":          "",
	}
	for name, want := range cases {
		assert.Equal(t, want, GiftCardProvider(name), name)
	}
}

func TestBadgeType(t *testing.T) {
	assert.Equal(t, "superstar", BadgeType("Superstar Celebrant"))
	assert.Equal(t, "star", BadgeType("Rising Star"))
	assert.Equal(t, "golden", BadgeType("Golden Crown"))
	assert.Equal(t, "default", BadgeType("Birthday Badge"))
}
