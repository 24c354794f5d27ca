package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"birthday-mate-backend/internal/lifecycle"
	"birthday-mate-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// GiftService manages the gift catalog, gift purchases and their activation
type GiftService struct {
	gifts        GiftStore
	users        UserStore
	walls        WallStore
	rooms        RoomStore
	currency     *CurrencyService
	autoComplete bool
	now          func() time.Time
}

// NewGiftService creates a new gift service. With autoComplete set, pending
// gifts are treated as paid on activation; meant for development only.
func NewGiftService(
	gifts GiftStore,
	users UserStore,
	walls WallStore,
	rooms RoomStore,
	currency *CurrencyService,
	autoComplete bool,
) *GiftService {
	return &GiftService{
		gifts:        gifts,
		users:        users,
		walls:        walls,
		rooms:        rooms,
		currency:     currency,
		autoComplete: autoComplete,
		now:          time.Now,
	}
}

// CatalogItemView is a catalog item with its price in the viewer's currency
type CatalogItemView struct {
	*models.GiftCatalogItem
	LocalPrice    *decimal.Decimal `json:"local_price,omitempty"`
	LocalCurrency string           `json:"local_currency,omitempty"`
}

// Catalog lists active gifts. When country maps to a currency other than
// the catalog's, each item also carries a converted price.
func (s *GiftService) Catalog(ctx context.Context, giftType, country string) ([]*CatalogItemView, error) {
	if giftType != "" && !models.OneOf(giftType, models.GiftTypes) {
		return nil, fmt.Errorf("%w: type must be one of %s", ErrInvalidInput, strings.Join(models.GiftTypes, ", "))
	}

	items, err := s.gifts.ListCatalog(ctx, giftType)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	local := ""
	if country != "" {
		local = CurrencyForCountry(country)
	}

	views := make([]*CatalogItemView, 0, len(items))
	for _, item := range items {
		v := &CatalogItemView{GiftCatalogItem: item}
		if local != "" && local != item.Currency && s.currency != nil {
			price := s.currency.Convert(ctx, item.Price, item.Currency, local)
			if !price.Equal(item.Price) {
				v.LocalPrice = &price
				v.LocalCurrency = local
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// SendGiftRequest is a gift purchase
type SendGiftRequest struct {
	RecipientID     string  `json:"recipient_id"`
	GiftCatalogID   string  `json:"gift_catalog_id"`
	PaymentProvider string  `json:"payment_provider"`
	Message         *string `json:"message"`
}

// Send records a pending gift, snapshotting the catalog item
func (s *GiftService) Send(ctx context.Context, sender *models.User, req SendGiftRequest) (*models.Gift, error) {
	if req.RecipientID == "" || req.GiftCatalogID == "" {
		return nil, fmt.Errorf("%w: recipient_id and gift_catalog_id are required", ErrInvalidInput)
	}
	if req.RecipientID == sender.ID {
		return nil, ErrSelfGift
	}
	provider := req.PaymentProvider
	if provider == "" {
		provider = "flutterwave"
	}
	if !models.OneOf(provider, models.PaymentProviders) {
		return nil, fmt.Errorf("%w: payment_provider must be one of %s", ErrInvalidInput, strings.Join(models.PaymentProviders, ", "))
	}

	recipient, err := s.users.GetByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	item, err := s.gifts.GetCatalogItem(ctx, req.GiftCatalogID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("failed to load catalog item: %w", err)
	}
	if !item.IsActive {
		return nil, ErrCatalogItemNotFound
	}

	now := s.now()
	gift := &models.Gift{
		ID:              uuid.New().String(),
		SenderID:        sender.ID,
		RecipientID:     recipient.ID,
		CatalogItemID:   item.ID,
		GiftType:        item.GiftType,
		GiftName:        item.Name,
		GiftDescription: item.Description,
		Amount:          item.Price,
		Currency:        item.Currency,
		PaymentProvider: provider,
		PaymentStatus:   models.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Message != nil {
		if msg := Sanitize(*req.Message, 500); msg != "" {
			gift.Message = &msg
		}
	}
	if item.GiftType == models.GiftCard {
		if p := GiftCardProvider(item.Name); p != "" {
			gift.GiftCardProvider = &p
		}
	}

	if err := s.gifts.Create(ctx, gift); err != nil {
		return nil, fmt.Errorf("failed to create gift: %w", err)
	}

	log.Info().
		Str("gift_id", gift.ID).
		Str("sender_id", sender.ID).
		Str("recipient_id", recipient.ID).
		Str("gift_type", gift.GiftType).
		Msg("Gift created")
	return gift, nil
}

var giftCardProviders = []struct{ keyword, provider string }{
	{"amazon", "amazon"},
	{"netflix", "netflix"},
	{"spotify", "spotify"},
	{"apple", "apple"},
	{"app store", "apple"},
	{"google play", "google_play"},
	{"uber eats", "uber_eats"},
	{"starbucks", "starbucks"},
	{"airbnb", "airbnb"},
	{"steam", "steam"},
	{"disney", "disney_plus"},
	{"sephora", "sephora"},
	{"nike", "nike"},
	{"uber", "uber"},
	{"doordash", "doordash"},
	{"masterclass", "masterclass"},
}

// GiftCardProvider derives the card provider from a catalog name such as
// "Amazon Gift Card $25". It returns "" when no provider is recognized.
func GiftCardProvider(name string) string {
	lower := strings.ToLower(name)
	for _, p := range giftCardProviders {
		if strings.Contains(lower, p.keyword) {
			return p.provider
		}
	}
	return ""
}

var badgeTypes = []string{"golden", "diamond", "platinum", "royal", "superstar", "star", "legend", "champion", "hero", "magical"}

// BadgeType derives the badge style from a celebrant badge name
func BadgeType(name string) string {
	lower := strings.ToLower(name)
	for _, b := range badgeTypes {
		if strings.Contains(lower, b) {
			return b
		}
	}
	return "default"
}

// ActivationResult describes what activating a gift did
type ActivationResult struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	GiftID      string     `json:"gift_id"`
	Action      string     `json:"action,omitempty"`
	BadgeType   string     `json:"badge_type,omitempty"`
	WallID      *string    `json:"wall_id,omitempty"`
	RoomID      *string    `json:"room_id,omitempty"`
	MessageText string     `json:"message_text,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Activate delivers a paid gift on behalf of its sender or recipient
func (s *GiftService) Activate(ctx context.Context, actor *models.User, giftID string) (*ActivationResult, error) {
	gift, err := s.getGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.SenderID != actor.ID && gift.RecipientID != actor.ID && !actor.IsAdmin {
		return nil, fmt.Errorf("%w: only the sender or recipient can activate this gift", ErrForbidden)
	}
	return s.activate(ctx, gift)
}

// ActivatePaid delivers a gift whose payment was just confirmed
func (s *GiftService) ActivatePaid(ctx context.Context, giftID string) (*ActivationResult, error) {
	gift, err := s.getGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	return s.activate(ctx, gift)
}

func (s *GiftService) activate(ctx context.Context, gift *models.Gift) (*ActivationResult, error) {
	now := s.now()

	if gift.PaymentStatus == models.PaymentPending && s.autoComplete {
		if err := s.gifts.UpdatePayment(ctx, gift.ID, models.PaymentCompleted, nil, now); err != nil {
			return nil, fmt.Errorf("failed to complete payment: %w", err)
		}
		gift.PaymentStatus = models.PaymentCompleted
		log.Warn().Str("gift_id", gift.ID).Msg("Payment auto-completed on activation")
	}
	if gift.PaymentStatus != models.PaymentCompleted {
		return nil, ErrPaymentIncomplete
	}

	already := &ActivationResult{Success: true, Message: "Gift already activated", GiftID: gift.ID}
	if gift.IsDelivered {
		return already, nil
	}
	if gift.GiftType == models.GiftCard {
		return nil, ErrGiftCardUnsupported
	}

	delivered, err := s.gifts.MarkDelivered(ctx, gift.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark gift delivered: %w", err)
	}
	if !delivered {
		return already, nil
	}
	gift.IsDelivered = true
	gift.DeliveredAt = &now

	var result *ActivationResult
	switch gift.GiftType {
	case models.GiftDigitalCard:
		result = &ActivationResult{Message: "Digital card delivered", Action: "view_card"}
	case models.GiftConfettiEffect:
		result = &ActivationResult{Message: "Confetti effect activated", Action: "show_confetti"}
	case models.GiftCelebrantBadge:
		result = &ActivationResult{Message: "Celebrant badge activated", Action: "show_badge", BadgeType: BadgeType(gift.GiftName)}
	case models.GiftWallHighlight:
		result = s.activateWallHighlight(ctx, gift, now)
	case models.GiftFeaturedMessage:
		result = s.activateFeaturedMessage(ctx, gift, now)
	default:
		return nil, fmt.Errorf("%w: unknown gift type %s", ErrInvalidInput, gift.GiftType)
	}
	result.Success = true
	result.GiftID = gift.ID
	result.ExpiresAt = lifecycle.GiftExpiry(gift.GiftType, now)

	log.Info().Str("gift_id", gift.ID).Str("gift_type", gift.GiftType).Str("action", result.Action).Msg("Gift activated")
	return result, nil
}

func (s *GiftService) activateWallHighlight(ctx context.Context, gift *models.Gift, now time.Time) *ActivationResult {
	wall, err := s.walls.GetCurrentByOwner(ctx, gift.RecipientID, now)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error().Err(err).Str("gift_id", gift.ID).Msg("Failed to load recipient wall")
		}
		return &ActivationResult{
			Message: "Wall highlight will be applied when birthday wall is created",
			Action:  "pending_wall_highlight",
		}
	}
	return &ActivationResult{Message: "Wall highlight applied", Action: "highlight_wall", WallID: &wall.ID}
}

func (s *GiftService) activateFeaturedMessage(ctx context.Context, gift *models.Gift, now time.Time) *ActivationResult {
	text := "Happy Birthday!"
	if gift.Message != nil && *gift.Message != "" {
		text = *gift.Message
	}

	recipient, err := s.users.GetByID(ctx, gift.RecipientID)
	if err == nil {
		opens, _ := lifecycle.DayWindow(now)
		room, err := s.rooms.GetByIdentifier(ctx, recipient.TribeID, opens)
		if err == nil {
			return &ActivationResult{Message: "Featured message pinned", Action: "pin_message", RoomID: &room.ID, MessageText: text}
		}
	}
	return &ActivationResult{
		Message:     "Featured message will be pinned when tribe room opens",
		Action:      "pending_featured_message",
		MessageText: text,
	}
}

// ActiveGift is a delivered gift effect that is still showing
type ActiveGift struct {
	GiftID      string     `json:"gift_id"`
	GiftName    string     `json:"gift_name"`
	BadgeType   string     `json:"badge_type,omitempty"`
	Message     *string    `json:"message,omitempty"`
	SenderID    string     `json:"sender_id,omitempty"`
	DeliveredAt time.Time  `json:"delivered_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ActiveGifts groups a user's currently showing gift effects by kind
type ActiveGifts struct {
	ConfettiEffects  []*ActiveGift `json:"confetti_effects"`
	Badges           []*ActiveGift `json:"badges"`
	WallHighlights   []*ActiveGift `json:"wall_highlights"`
	FeaturedMessages []*ActiveGift `json:"featured_messages"`
	DigitalCards     []*ActiveGift `json:"digital_cards"`
}

// Active returns the gift effects currently showing for userID
func (s *GiftService) Active(ctx context.Context, userID string) (*ActiveGifts, error) {
	now := s.now()
	var longest time.Duration
	for _, t := range models.GiftTypes {
		if d, ok := lifecycle.GiftWindow(t); ok && d > longest {
			longest = d
		}
	}

	gifts, err := s.gifts.ListDeliveredSince(ctx, userID, now.Add(-longest))
	if err != nil {
		return nil, fmt.Errorf("failed to list delivered gifts: %w", err)
	}

	active := &ActiveGifts{
		ConfettiEffects:  []*ActiveGift{},
		Badges:           []*ActiveGift{},
		WallHighlights:   []*ActiveGift{},
		FeaturedMessages: []*ActiveGift{},
		DigitalCards:     []*ActiveGift{},
	}
	for _, g := range gifts {
		if g.DeliveredAt == nil || !lifecycle.GiftActive(g.GiftType, *g.DeliveredAt, now) {
			continue
		}
		a := &ActiveGift{
			GiftID:      g.ID,
			GiftName:    g.GiftName,
			DeliveredAt: *g.DeliveredAt,
			ExpiresAt:   lifecycle.GiftExpiry(g.GiftType, *g.DeliveredAt),
		}
		switch g.GiftType {
		case models.GiftConfettiEffect:
			active.ConfettiEffects = append(active.ConfettiEffects, a)
		case models.GiftCelebrantBadge:
			a.BadgeType = BadgeType(g.GiftName)
			active.Badges = append(active.Badges, a)
		case models.GiftWallHighlight:
			active.WallHighlights = append(active.WallHighlights, a)
		case models.GiftFeaturedMessage:
			a.Message, a.SenderID = g.Message, g.SenderID
			active.FeaturedMessages = append(active.FeaturedMessages, a)
		case models.GiftDigitalCard:
			a.Message, a.SenderID = g.Message, g.SenderID
			active.DigitalCards = append(active.DigitalCards, a)
		}
	}
	return active, nil
}

// Received lists completed gifts received by user
func (s *GiftService) Received(ctx context.Context, user *models.User) ([]*models.Gift, error) {
	gifts, err := s.gifts.ListReceived(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list received gifts: %w", err)
	}
	return nonNil(gifts), nil
}

// Sent lists every gift sent by user
func (s *GiftService) Sent(ctx context.Context, user *models.User) ([]*models.Gift, error) {
	gifts, err := s.gifts.ListSent(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent gifts: %w", err)
	}
	return nonNil(gifts), nil
}

// GetForParty returns a gift to its sender, its recipient or an admin
func (s *GiftService) GetForParty(ctx context.Context, user *models.User, giftID string) (*models.Gift, error) {
	gift, err := s.getGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.SenderID != user.ID && gift.RecipientID != user.ID && !user.IsAdmin {
		return nil, ErrGiftNotFound
	}
	return gift, nil
}

func (s *GiftService) getGift(ctx context.Context, id string) (*models.Gift, error) {
	gift, err := s.gifts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrGiftNotFound
		}
		return nil, fmt.Errorf("failed to load gift: %w", err)
	}
	return gift, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
