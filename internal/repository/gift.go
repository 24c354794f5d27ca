package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const catalogColumns = `id, gift_type, name, description, price, currency, image_url, preview_url, display_order,
	is_active, is_featured, created_at`

const giftColumns = `id, sender_id, recipient_id, catalog_item_id, gift_type, gift_name, gift_description, amount,
	currency, payment_provider, payment_reference, payment_status, gift_card_provider, message, is_delivered,
	delivered_at, created_at, updated_at`

// GiftRepository handles database operations for the gift catalog and gifts
type GiftRepository struct {
	db *pgxpool.Pool
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(db *pgxpool.Pool) *GiftRepository {
	return &GiftRepository{db: db}
}

func scanCatalogItem(row scanner) (*models.GiftCatalogItem, error) {
	var c models.GiftCatalogItem
	err := row.Scan(
		&c.ID, &c.GiftType, &c.Name, &c.Description, &c.Price, &c.Currency, &c.ImageURL, &c.PreviewURL,
		&c.DisplayOrder, &c.IsActive, &c.IsFeatured, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanGift(row scanner) (*models.Gift, error) {
	var g models.Gift
	err := row.Scan(
		&g.ID, &g.SenderID, &g.RecipientID, &g.CatalogItemID, &g.GiftType, &g.GiftName, &g.GiftDescription, &g.Amount,
		&g.Currency, &g.PaymentProvider, &g.PaymentReference, &g.PaymentStatus, &g.GiftCardProvider, &g.Message,
		&g.IsDelivered, &g.DeliveredAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListCatalog returns active catalog items in display order, optionally filtered by type
func (r *GiftRepository) ListCatalog(ctx context.Context, giftType string) ([]*models.GiftCatalogItem, error) {
	query := `
		SELECT ` + catalogColumns + ` FROM gift_catalog
		WHERE is_active AND ($1 = '' OR gift_type = $1)
		ORDER BY display_order, name
	`
	rows, err := r.db.Query(ctx, query, giftType)
	if err != nil {
		return nil, wrapErr(err, "gift catalog")
	}
	defer rows.Close()

	var items []*models.GiftCatalogItem
	for rows.Next() {
		c, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// GetCatalogItem retrieves a catalog item by ID
func (r *GiftRepository) GetCatalogItem(ctx context.Context, id string) (*models.GiftCatalogItem, error) {
	c, err := scanCatalogItem(r.db.QueryRow(ctx, `SELECT `+catalogColumns+` FROM gift_catalog WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "catalog item")
	}
	return c, nil
}

// Create inserts a gift
func (r *GiftRepository) Create(ctx context.Context, g *models.Gift) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO gifts (`+giftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		g.ID, g.SenderID, g.RecipientID, g.CatalogItemID, g.GiftType, g.GiftName, g.GiftDescription, g.Amount,
		g.Currency, g.PaymentProvider, g.PaymentReference, g.PaymentStatus, g.GiftCardProvider, g.Message,
		g.IsDelivered, g.DeliveredAt, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "gift")
	}
	return nil
}

// GetByID retrieves a gift by ID
func (r *GiftRepository) GetByID(ctx context.Context, id string) (*models.Gift, error) {
	g, err := scanGift(r.db.QueryRow(ctx, `SELECT `+giftColumns+` FROM gifts WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err, "gift")
	}
	return g, nil
}

// GetByPaymentReference retrieves a gift by the reference sent to the payment provider
func (r *GiftRepository) GetByPaymentReference(ctx context.Context, ref string) (*models.Gift, error) {
	g, err := scanGift(r.db.QueryRow(ctx, `SELECT `+giftColumns+` FROM gifts WHERE payment_reference = $1`, ref))
	if err != nil {
		return nil, wrapErr(err, "gift")
	}
	return g, nil
}

// UpdatePayment sets the payment status and reference
func (r *GiftRepository) UpdatePayment(ctx context.Context, id, status string, ref *string, at time.Time) error {
	result, err := r.db.Exec(ctx,
		`UPDATE gifts SET payment_status = $2, payment_reference = COALESCE($3, payment_reference), updated_at = $4 WHERE id = $1`,
		id, status, ref, at,
	)
	if err != nil {
		return wrapErr(err, "gift")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("gift not found: %w", models.ErrNotFound)
	}
	return nil
}

// FailPayment marks a payment failed unless it already completed. It reports
// whether the row changed.
func (r *GiftRepository) FailPayment(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE gifts SET payment_status = 'failed', updated_at = $2 WHERE id = $1 AND payment_status <> 'completed'`,
		id, at,
	)
	if err != nil {
		return false, wrapErr(err, "gift")
	}
	return result.RowsAffected() == 1, nil
}

// MarkDelivered flips is_delivered from false to true. It reports false when
// the gift was already delivered, so only one caller ever performs activation.
func (r *GiftRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE gifts SET is_delivered = TRUE, delivered_at = $2, updated_at = $2 WHERE id = $1 AND NOT is_delivered`,
		id, at,
	)
	if err != nil {
		return false, wrapErr(err, "gift")
	}
	return result.RowsAffected() == 1, nil
}

func (r *GiftRepository) list(ctx context.Context, query string, args ...any) ([]*models.Gift, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "gifts")
	}
	defer rows.Close()

	var gifts []*models.Gift
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

// ListReceived returns completed gifts for a recipient, newest first
func (r *GiftRepository) ListReceived(ctx context.Context, recipientID string) ([]*models.Gift, error) {
	return r.list(ctx,
		`SELECT `+giftColumns+` FROM gifts WHERE recipient_id = $1 AND payment_status = 'completed' ORDER BY created_at DESC`,
		recipientID)
}

// ListSent returns every gift sent by a user, newest first
func (r *GiftRepository) ListSent(ctx context.Context, senderID string) ([]*models.Gift, error) {
	return r.list(ctx, `SELECT `+giftColumns+` FROM gifts WHERE sender_id = $1 ORDER BY created_at DESC`, senderID)
}

// ListDeliveredSince returns a recipient's paid gifts delivered at or after
// since. Digital cards are returned regardless of delivery time.
func (r *GiftRepository) ListDeliveredSince(ctx context.Context, recipientID string, since time.Time) ([]*models.Gift, error) {
	return r.list(ctx, `
		SELECT `+giftColumns+` FROM gifts
		WHERE recipient_id = $1 AND is_delivered AND payment_status = 'completed'
			AND (delivered_at >= $2 OR gift_type = 'digital_card')
		ORDER BY delivered_at DESC`,
		recipientID, since)
}
