package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CheckoutRequest starts a hosted payment
type CheckoutRequest struct {
	TxRef        string
	Amount       decimal.Decimal
	Currency     string
	Email        string
	CustomerName string
	RedirectURL  string
	Meta         map[string]string
}

// Checkout is the provider's answer to a CheckoutRequest
type Checkout struct {
	Link string `json:"link"`
}

// Transaction is a provider-side payment record
type Transaction struct {
	ID       int64           `json:"id"`
	TxRef    string          `json:"tx_ref"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// PaymentGateway is a hosted payment provider
type PaymentGateway interface {
	Initialize(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	Verify(ctx context.Context, transactionID string) (*Transaction, error)
}

// FlutterwaveClient talks to the Flutterwave v3 REST API
type FlutterwaveClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewFlutterwaveClient creates a Flutterwave API client
func NewFlutterwaveClient(baseURL, secretKey string) *FlutterwaveClient {
	return &FlutterwaveClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type flutterwaveEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize implements PaymentGateway
func (c *FlutterwaveClient) Initialize(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	payload := map[string]any{
		"tx_ref":          req.TxRef,
		"amount":          req.Amount.StringFixed(2),
		"currency":        strings.ToUpper(req.Currency),
		"redirect_url":    req.RedirectURL,
		"payment_options": "card,account,ussd,banktransfer,mobilemoney",
		"customer": map[string]string{
			"email": req.Email,
			"name":  req.CustomerName,
		},
		"customizations": map[string]string{
			"title":       "Happy Birthday Mate - Gift Payment",
			"description": "Payment for birthday gift",
		},
	}
	if len(req.Meta) > 0 {
		payload["meta"] = req.Meta
	}

	var checkout Checkout
	if err := c.do(ctx, http.MethodPost, "/payments", payload, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// Verify implements PaymentGateway
func (c *FlutterwaveClient) Verify(ctx context.Context, transactionID string) (*Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID+"/verify", nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *FlutterwaveClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	defer resp.Body.Close()

	var env flutterwaveEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: invalid response: %v", ErrPaymentProvider, err)
	}
	if resp.StatusCode >= 300 || env.Status != "success" {
		return fmt.Errorf("%w: %s (status %d)", ErrPaymentProvider, env.Message, resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: invalid response data: %v", ErrPaymentProvider, err)
	}
	return nil
}

// PaymentService connects gifts to the payment provider
type PaymentService struct {
	gifts       GiftStore
	giftService *GiftService
	gateway     PaymentGateway
	webhookHash string
	redirectURL string
	now         func() time.Time
}

// NewPaymentService creates a new payment service. gateway may be nil when
// payments are not configured.
func NewPaymentService(gifts GiftStore, giftService *GiftService, gateway PaymentGateway, webhookHash, redirectURL string) *PaymentService {
	return &PaymentService{
		gifts:       gifts,
		giftService: giftService,
		gateway:     gateway,
		webhookHash: webhookHash,
		redirectURL: redirectURL,
		now:         time.Now,
	}
}

// PaymentInit is a started checkout for a gift
type PaymentInit struct {
	GiftID      string          `json:"gift_id"`
	TxRef       string          `json:"tx_ref"`
	PaymentLink string          `json:"payment_link"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// Initialize starts the provider checkout for a gift the user sent
func (s *PaymentService) Initialize(ctx context.Context, user *models.User, giftID string) (*PaymentInit, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	gift, err := s.giftService.getGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.SenderID != user.ID {
		return nil, fmt.Errorf("%w: only the sender can pay for this gift", ErrForbidden)
	}
	if gift.PaymentStatus == models.PaymentCompleted {
		return nil, fmt.Errorf("%w: gift is already paid", ErrInvalidInput)
	}

	txRef := TxRef(gift.ID)
	if err := s.gifts.UpdatePayment(ctx, gift.ID, models.PaymentPending, &txRef, s.now()); err != nil {
		return nil, fmt.Errorf("failed to store payment reference: %w", err)
	}

	checkout, err := s.gateway.Initialize(ctx, CheckoutRequest{
		TxRef:        txRef,
		Amount:       gift.Amount,
		Currency:     gift.Currency,
		Email:        user.Email,
		CustomerName: user.FirstName,
		RedirectURL:  s.redirectURL,
		Meta:         map[string]string{"gift_id": gift.ID},
	})
	if err != nil {
		log.Error().Err(err).Str("gift_id", gift.ID).Msg("Failed to initialize payment")
		return nil, err
	}

	log.Info().Str("gift_id", gift.ID).Str("tx_ref", txRef).Msg("Payment initialized")
	return &PaymentInit{
		GiftID:      gift.ID,
		TxRef:       txRef,
		PaymentLink: checkout.Link,
		Amount:      gift.Amount,
		Currency:    gift.Currency,
	}, nil
}

// TxRef builds a unique provider transaction reference for a gift
func TxRef(giftID string) string {
	id := strings.ReplaceAll(giftID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("HBM-GIFT-%s-%s", id, hexToken(2))
}

// VerifySignature checks the webhook's verif-hash header, which must be the
// hex HMAC-SHA256 of the raw body keyed with the webhook secret. Without a
// configured secret every webhook is rejected.
func (s *PaymentService) VerifySignature(body []byte, signature string) error {
	if s.webhookHash == "" || signature == "" {
		return ErrInvalidSignature
	}
	expected := SignWebhook(s.webhookHash, body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}

// SignWebhook returns the verif-hash value for body
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID     int64  `json:"id"`
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

// HandleWebhook processes a provider callback. A successful charge is
// re-verified with the provider before the gift is marked paid and activated.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.VerifySignature(body, signature); err != nil {
		return err
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: malformed webhook body", ErrInvalidInput)
	}
	if event.Event != "charge.completed" {
		log.Debug().Str("event", event.Event).Msg("Ignoring payment webhook event")
		return nil
	}

	gift, err := s.gifts.GetByPaymentReference(ctx, event.Data.TxRef)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrGiftNotFound
		}
		return fmt.Errorf("failed to load gift: %w", err)
	}

	switch event.Data.Status {
	case "successful":
		if gift.PaymentStatus == models.PaymentCompleted {
			return nil
		}
		if s.gateway == nil {
			return ErrPaymentsDisabled
		}
		tx, err := s.gateway.Verify(ctx, strconv.FormatInt(event.Data.ID, 10))
		if err != nil {
			return err
		}
		if tx.Status != "successful" || tx.TxRef != event.Data.TxRef ||
			!strings.EqualFold(tx.Currency, gift.Currency) || tx.Amount.LessThan(gift.Amount) {
			log.Warn().
				Str("gift_id", gift.ID).
				Str("tx_status", tx.Status).
				Str("tx_amount", tx.Amount.String()).
				Str("tx_currency", tx.Currency).
				Msg("Payment verification mismatch")
			return fmt.Errorf("%w: transaction does not match gift", ErrPaymentProvider)
		}
		if err := s.gifts.UpdatePayment(ctx, gift.ID, models.PaymentCompleted, nil, s.now()); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		log.Info().Str("gift_id", gift.ID).Str("tx_ref", tx.TxRef).Msg("Payment completed")

		if _, err := s.giftService.ActivatePaid(ctx, gift.ID); err != nil && !errors.Is(err, ErrGiftCardUnsupported) {
			return fmt.Errorf("failed to activate gift: %w", err)
		}

	case "failed":
		// completed is terminal
		if gift.PaymentStatus == models.PaymentCompleted {
			log.Warn().Str("gift_id", gift.ID).Msg("Ignoring failed event for completed payment")
			return nil
		}
		changed, err := s.gifts.FailPayment(ctx, gift.ID, s.now())
		if err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		if !changed {
			log.Warn().Str("gift_id", gift.ID).Msg("Ignoring failed event for completed payment")
			return nil
		}
		log.Info().Str("gift_id", gift.ID).Msg("Payment failed")
	}
	return nil
}

// PaymentStatus reports the payment state of a gift
type PaymentStatus struct {
	GiftID           string  `json:"gift_id"`
	PaymentStatus    string  `json:"payment_status"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	IsDelivered      bool    `json:"is_delivered"`
}

// Status returns the payment state of a gift to its sender or recipient
func (s *PaymentService) Status(ctx context.Context, user *models.User, giftID string) (*PaymentStatus, error) {
	gift, err := s.giftService.GetForParty(ctx, user, giftID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{
		GiftID:           gift.ID,
		PaymentStatus:    gift.PaymentStatus,
		PaymentReference: gift.PaymentReference,
		IsDelivered:      gift.IsDelivered,
	}, nil
}
