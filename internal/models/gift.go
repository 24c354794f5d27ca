package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gift types
const (
	GiftDigitalCard     = "digital_card"
	GiftConfettiEffect  = "confetti_effect"
	GiftWallHighlight   = "wall_highlight"
	GiftCelebrantBadge  = "celebrant_badge"
	GiftFeaturedMessage = "featured_message"
	GiftCard            = "gift_card"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

var (
	GiftTypes        = []string{GiftDigitalCard, GiftConfettiEffect, GiftWallHighlight, GiftCelebrantBadge, GiftFeaturedMessage, GiftCard}
	PaymentProviders = []string{"stripe", "paypal", "paystack", "flutterwave"}
)

// GiftCatalogItem is a purchasable gift
type GiftCatalogItem struct {
	ID           string          `json:"id"`
	GiftType     string          `json:"gift_type"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ImageURL     *string         `json:"image_url,omitempty"`
	PreviewURL   *string         `json:"preview_url,omitempty"`
	DisplayOrder int             `json:"display_order"`
	IsActive     bool            `json:"is_active"`
	IsFeatured   bool            `json:"is_featured"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Gift is a purchase record that snapshots the catalog item at send time
type Gift struct {
	ID               string          `json:"id"`
	SenderID         string          `json:"sender_id"`
	RecipientID      string          `json:"recipient_id"`
	CatalogItemID    string          `json:"catalog_item_id"`
	GiftType         string          `json:"gift_type"`
	GiftName         string          `json:"gift_name"`
	GiftDescription  string          `json:"gift_description"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentProvider  string          `json:"payment_provider"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	PaymentStatus    string          `json:"payment_status"`
	GiftCardProvider *string         `json:"gift_card_provider,omitempty"`
	Message          *string         `json:"message,omitempty"`
	IsDelivered      bool            `json:"is_delivered"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
