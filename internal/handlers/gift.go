package handlers

import (
	"errors"
	"io"
	"net/http"

	"birthday-mate-backend/internal/metrics"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxWebhookBody = 64 << 10

// GiftHandler handles the gift catalog, gift purchases and payments
type GiftHandler struct {
	giftService    *services.GiftService
	paymentService *services.PaymentService
}

// NewGiftHandler creates a new gift handler
func NewGiftHandler(giftService *services.GiftService, paymentService *services.PaymentService) *GiftHandler {
	return &GiftHandler{
		giftService:    giftService,
		paymentService: paymentService,
	}
}

// Catalog handles GET /api/gifts/catalog
func (h *GiftHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.giftService.Catalog(r.Context(), q.Get("type"), q.Get("country"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get gift catalog")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"gifts": items})
}

// Send handles POST /api/gifts/send
func (h *GiftHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req services.SendGiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	gift, err := h.giftService.Send(r.Context(), user, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to send gift")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("gift_id", gift.ID).
		Str("recipient_id", gift.RecipientID).
		Str("gift_type", gift.GiftType).
		Msg("Gift created")

	respondJSON(w, http.StatusCreated, gift)
}

// Activate handles POST /api/gifts/activate/{gift_id}
func (h *GiftHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	giftID := chi.URLParam(r, "gift_id")

	result, err := h.giftService.Activate(r.Context(), user, giftID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to activate gift")
		return
	}

	if result.Action != "" {
		metrics.RecordGiftActivation(result.Action)
	}
	respondJSON(w, http.StatusOK, result)
}

// Active handles GET /api/gifts/active/{user_id}
func (h *GiftHandler) Active(w http.ResponseWriter, r *http.Request) {
	active, err := h.giftService.Active(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get active gifts")
		return
	}
	respondJSON(w, http.StatusOK, active)
}

// Received handles GET /api/gifts/received
func (h *GiftHandler) Received(w http.ResponseWriter, r *http.Request) {
	gifts, err := h.giftService.Received(r.Context(), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list received gifts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"gifts": gifts})
}

// Sent handles GET /api/gifts/sent
func (h *GiftHandler) Sent(w http.ResponseWriter, r *http.Request) {
	gifts, err := h.giftService.Sent(r.Context(), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list sent gifts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"gifts": gifts})
}

// InitializePayment handles POST /api/payments/initialize/{gift_id}
func (h *GiftHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	started, err := h.paymentService.Initialize(r.Context(), user, chi.URLParam(r, "gift_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to initialize payment")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("gift_id", started.GiftID).
		Str("tx_ref", started.TxRef).
		Msg("Payment initialized")

	respondJSON(w, http.StatusOK, started)
}

// PaymentStatus handles GET /api/payments/verify/{gift_id}
func (h *GiftHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.paymentService.Status(r.Context(), currentUser(r), chi.URLParam(r, "gift_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get payment status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Webhook handles POST /api/payments/webhook/flutterwave. The provider gets
// a 200 whatever the outcome so it stops retrying; failures are logged.
func (h *GiftHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read payment webhook")
		metrics.RecordPaymentEvent("failed")
		respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	err = h.paymentService.HandleWebhook(r.Context(), body, r.Header.Get("verif-hash"))
	switch {
	case err == nil:
		metrics.RecordPaymentEvent("processed")
	case errors.Is(err, services.ErrInvalidSignature):
		log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Rejected payment webhook with invalid signature")
		metrics.RecordPaymentEvent("rejected")
	case errors.Is(err, services.ErrGiftNotFound), errors.Is(err, services.ErrInvalidInput):
		log.Warn().Err(err).Msg("Ignored payment webhook")
		metrics.RecordPaymentEvent("ignored")
	default:
		log.Error().Err(err).Msg("Failed to process payment webhook")
		metrics.RecordPaymentEvent("failed")
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
