package handlers

import (
	"net/http"

	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// AdminHandler handles moderation, celebrities and platform stats
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// FlagContent handles POST /api/admin/flag-content. Any signed-in user may report.
func (h *AdminHandler) FlagContent(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req services.FlagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flag, err := h.adminService.FlagContent(r.Context(), user, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to flag content")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("flag_id", flag.ID).
		Str("content_type", flag.ContentType).
		Msg("Content flagged")

	respondJSON(w, http.StatusCreated, flag)
}

// FlaggedContent handles GET /api/admin/flagged-content
func (h *AdminHandler) FlaggedContent(w http.ResponseWriter, r *http.Request) {
	flags, err := h.adminService.ListFlags(r.Context(), r.URL.Query().Get("status"), queryInt(r, "limit", 50))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list flagged content")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"flags": flags})
}

// Review handles POST /api/admin/flagged-content/{id}/review
func (h *AdminHandler) Review(w http.ResponseWriter, r *http.Request) {
	admin := currentUser(r)

	var req services.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.adminService.Review(r.Context(), admin, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to review content")
		return
	}

	log.Info().
		Str("admin_id", admin.ID).
		Str("flag_id", chi.URLParam(r, "id")).
		Str("action", entry.Action).
		Msg("Flagged content reviewed")

	respondJSON(w, http.StatusOK, entry)
}

// AddCelebrity handles POST /api/admin/celebrities
func (h *AdminHandler) AddCelebrity(w http.ResponseWriter, r *http.Request) {
	var req services.CelebrityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	celeb, err := h.adminService.AddCelebrity(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to add celebrity")
		return
	}
	respondJSON(w, http.StatusCreated, celeb)
}

// CelebritiesToday handles GET /api/admin/celebrities/today
func (h *AdminHandler) CelebritiesToday(w http.ResponseWriter, r *http.Request) {
	celebs, err := h.adminService.CelebritiesToday(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to list celebrities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"celebrities": celebs})
}

// Overview handles GET /api/admin/stats/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Overview(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to get overview")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// CelebrantsByState handles GET /api/admin/celebrants/by-state
func (h *AdminHandler) CelebrantsByState(w http.ResponseWriter, r *http.Request) {
	counts, err := h.adminService.CelebrantsByState(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to get celebrants by state")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"states": counts})
}

// CelebrantsInState handles GET /api/admin/celebrants/state/{state}
func (h *AdminHandler) CelebrantsInState(w http.ResponseWriter, r *http.Request) {
	celebrants, err := h.adminService.CelebrantsInState(r.Context(), chi.URLParam(r, "state"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get state celebrants")
		return
	}
	respondJSON(w, http.StatusOK, celebrants)
}

// ContactSubmissions handles GET /api/admin/contact-submissions
func (h *AdminHandler) ContactSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.adminService.Contacts(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list contact submissions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"submissions": submissions})
}

// Analytics handles GET /api/admin/analytics/overview?days=
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.adminService.Analytics(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get analytics")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// UserGrowth handles GET /api/admin/analytics/user-growth?days=
func (h *AdminHandler) UserGrowth(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	counts, err := h.adminService.UserGrowth(r.Context(), days)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user growth")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"period_days":         days,
		"daily_registrations": counts,
	})
}

// Engagement handles GET /api/admin/analytics/engagement?days=
func (h *AdminHandler) Engagement(w http.ResponseWriter, r *http.Request) {
	series, err := h.adminService.Engagement(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get engagement")
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Geography handles GET /api/admin/analytics/geographic
func (h *AdminHandler) Geography(w http.ResponseWriter, r *http.Request) {
	g, err := h.adminService.Geography(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to get geographic analytics")
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// Tribes handles GET /api/admin/analytics/tribes
func (h *AdminHandler) Tribes(w http.ResponseWriter, r *http.Request) {
	st, err := h.adminService.Tribes(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Failed to get tribe analytics")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// RecentActivity handles GET /api/admin/activities/recent?limit=&activity_type=
func (h *AdminHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	feed, err := h.adminService.RecentActivity(r.Context(), r.URL.Query().Get("activity_type"), queryInt(r, "limit", 50))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get recent activity")
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

// UserActivity handles GET /api/admin/activities/users?user_id=&limit=
func (h *AdminHandler) UserActivity(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.UserActivity(r.Context(), r.URL.Query().Get("user_id"), queryInt(r, "limit", 50))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user activity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": len(users),
	})
}
