package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"birthday-mate-backend/internal/metrics"
	"birthday-mate-backend/internal/services"
)

// AIHandler handles gift message suggestions
type AIHandler struct {
	messageService *services.MessageService
}

// NewAIHandler creates a new AI handler
func NewAIHandler(messageService *services.MessageService) *AIHandler {
	return &AIHandler{
		messageService: messageService,
	}
}

// generateMessageRequest accepts the short age/country names used by the
// web client alongside the recipient_ prefixed ones
type generateMessageRequest struct {
	services.GiftMessageRequest
	Age     *int   `json:"age"`
	Country string `json:"country"`
}

// GenerateGiftMessage handles POST /api/ai/generate-gift-message
func (h *AIHandler) GenerateGiftMessage(w http.ResponseWriter, r *http.Request) {
	var req generateMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := req.GiftMessageRequest
	if in.RecipientAge == nil {
		in.RecipientAge = req.Age
	}
	if in.RecipientCountry == "" {
		in.RecipientCountry = req.Country
	}
	if strings.TrimSpace(in.RecipientName) == "" {
		respondError(w, "recipient_name is required", http.StatusBadRequest)
		return
	}
	if in.SenderName == "" {
		if user := currentUser(r); user != nil {
			in.SenderName = user.FirstName
		}
	}

	msg := h.messageService.Generate(r.Context(), in)
	metrics.RecordGiftMessage(msg.Source)
	respondJSON(w, http.StatusOK, msg)
}

// templateRequest is the POST body form of the template query
type templateRequest struct {
	RecipientName    string `json:"recipient_name"`
	RecipientAge     *int   `json:"recipient_age"`
	RecipientCountry string `json:"recipient_country"`
	Category         string `json:"category"`
}

// TemplateMessages handles GET and POST /api/ai/get-template-messages. GET
// reads name, age, country and category from the query string.
func (h *AIHandler) TemplateMessages(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if r.Method == http.MethodPost {
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
	} else {
		q := r.URL.Query()
		req.RecipientName = q.Get("name")
		req.RecipientCountry = q.Get("country")
		req.Category = q.Get("category")
		if raw := q.Get("age"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				respondError(w, "age must be a number between 0 and 150", http.StatusBadRequest)
				return
			}
			req.RecipientAge = &v
		}
	}

	if req.Category != "" && !services.IsTemplateCategory(req.Category) {
		respondError(w, "category must be one of warm, fun, heartfelt, short", http.StatusBadRequest)
		return
	}
	if req.RecipientAge != nil && (*req.RecipientAge < 0 || *req.RecipientAge > 150) {
		respondError(w, "age must be a number between 0 and 150", http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"category": req.Category,
		"messages": services.TemplateMessages(req.RecipientName, req.RecipientAge, req.RecipientCountry, req.Category),
	})
}
