package cmd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"birthday-mate-backend/internal/config"
	"birthday-mate-backend/internal/handlers"
	"birthday-mate-backend/internal/metrics"
	"birthday-mate-backend/internal/middleware"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const limiterCleanupInterval = 5 * time.Minute

type pinger interface {
	Ping(ctx context.Context) error
}

// app holds everything the HTTP router is built from
type app struct {
	cfg      *config.Config
	db       pinger
	store    services.ObjectStore
	hub      *services.WSHub
	users    *services.UserService
	walls    *services.WallService
	rooms    *services.RoomService
	buddies  *services.BuddyService
	gifts    *services.GiftService
	payments *services.PaymentService
	messages *services.MessageService
	admin    *services.AdminService
	media    *services.MediaService
}

// newRouter wires handlers, rate limiters and middleware into the API
// router. Limiter cleanup stops when ctx is done.
func newRouter(ctx context.Context, a app) http.Handler {
	cfg := a.cfg

	userHandler := handlers.NewUserHandler(a.users)
	wallHandler := handlers.NewWallHandler(a.walls)
	roomHandler := handlers.NewRoomHandler(a.rooms)
	buddyHandler := handlers.NewBuddyHandler(a.buddies)
	giftHandler := handlers.NewGiftHandler(a.gifts, a.payments)
	uploadHandler := handlers.NewUploadHandler(a.users, a.media)
	aiHandler := handlers.NewAIHandler(a.messages)
	adminHandler := handlers.NewAdminHandler(a.admin)
	wsHandler := handlers.NewWebSocketHandler(a.hub, a.users, a.rooms, cfg.Server.AllowedOrigins)

	// Rate limiters
	rl := cfg.RateLimits
	authLimiter := middleware.NewRateLimiter("auth", rl.Auth, time.Minute)
	apiLimiter := middleware.NewRateLimiter("api", rl.API, time.Minute)
	adminLimiter := middleware.NewRateLimiter("admin", rl.Admin, time.Minute)
	uploadLimiter := middleware.NewRateLimiter("upload", rl.Upload, time.Hour)
	contactLimiter := middleware.NewRateLimiter("contact", rl.Contact, time.Hour)
	roomLimiter := middleware.NewRateLimiter("personal_room", rl.PersonalRoom, time.Hour)
	for _, l := range []*middleware.RateLimiter{authLimiter, apiLimiter, adminLimiter, uploadLimiter, contactLimiter, roomLimiter} {
		l.StartCleanup(ctx, limiterCleanupInterval)
	}

	requireUser := middleware.AuthMiddleware(a.users)
	optionalUser := middleware.OptionalUser(a.users)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(metrics.InstrumentHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"message":"Birthday Mate API","status":"running"}`)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.Ping(pingCtx); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, `{"status":"unhealthy","database":"disconnected"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"healthy","database":"connected"}`)
	})
	r.Handle("/metrics", metrics.Handler())

	if local, ok := a.store.(*services.LocalStore); ok && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		prefix := strings.TrimRight(cfg.Storage.PublicBaseURL, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir()))))
		log.Info().Str("dir", local.Dir()).Str("prefix", prefix).Msg("Serving local uploads")
	}

	// Routes. Paths shared between the public and signed-in groups are
	// registered in full rather than as subrouters so neither shadows the other.
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Handler)
			r.With(middleware.IdentityMiddleware(a.users)).Post("/signup", userHandler.Signup)
			r.Get("/verify-token", userHandler.VerifyToken)
			r.Post("/verify-token", userHandler.VerifyToken)
			r.With(requireUser).Get("/me", userHandler.Me)
		})

		// Provider callback, authenticated by signature
		r.Post("/payments/webhook/flutterwave", giftHandler.Webhook)

		// Public routes, personalised when signed in
		r.Group(func(r chi.Router) {
			r.Use(optionalUser)
			r.Use(apiLimiter.Handler)
			r.Get("/rooms/birthday-wall/{code}", wallHandler.GetWallByCode)
			r.Get("/rooms/birthday-wall/user/{user_id}", wallHandler.CurrentWall)
			r.Get("/tribes/{tribe_id}", roomHandler.TribeInfo)
			r.Get("/gifts/catalog", giftHandler.Catalog)
			r.Get("/gifts/active/{user_id}", giftHandler.Active)
			r.Get("/ai/get-template-messages", aiHandler.TemplateMessages)
			r.Post("/ai/get-template-messages", aiHandler.TemplateMessages)
			r.With(contactLimiter.Handler).Post("/users/contact", userHandler.SubmitContact)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Use(apiLimiter.Handler)

			r.Get("/users/{id}", userHandler.GetUser)
			r.Patch("/users/{id}", userHandler.UpdateUser)
			r.Put("/users/{id}/profile-picture", userHandler.UpdateProfilePicture)
			r.Get("/users/tribe/{tribe_id}/members", userHandler.TribeMembers)

			r.Post("/rooms/birthday-wall", wallHandler.CreateWall)
			r.Get("/rooms/birthday-wall/user/{user_id}/archive", wallHandler.Archive)
			r.With(uploadLimiter.Handler).Post("/rooms/birthday-wall/{wall_id}/photos", wallHandler.UploadPhoto)
			r.Patch("/rooms/birthday-wall/{wall_id}/photos/{photo_id}", wallHandler.UpdatePhoto)
			r.Delete("/rooms/birthday-wall/{wall_id}/photos/{photo_id}", wallHandler.DeletePhoto)
			r.Post("/rooms/birthday-wall/{wall_id}/photos/{photo_id}/reactions", wallHandler.React)
			r.Patch("/rooms/birthday-wall/{wall_id}/upload-control", wallHandler.UpdateUploadControl)
			r.Get("/rooms/birthday-wall/{wall_id}/upload-status", wallHandler.UploadStatus)
			r.Post("/rooms/birthday-wall/{wall_id}/invite", wallHandler.Invite)
			r.Get("/rooms/birthday-wall/{wall_id}/invitations", wallHandler.Invitations)
			r.Post("/rooms/birthday-wall/invite/accept/{code}", wallHandler.AcceptInvitation)

			r.Get("/tribes/{tribe_id}/room", roomHandler.TribeRoom)
			r.Get("/tribes/{tribe_id}/room/{room_id}/messages", roomHandler.TribeMessages)
			r.Post("/tribes/{tribe_id}/room/{room_id}/messages", roomHandler.SendTribeMessage)
			r.Put("/tribes/{tribe_id}/room/{room_id}/messages/{message_id}", roomHandler.EditTribeMessage)
			r.Delete("/tribes/{tribe_id}/room/{room_id}/messages/{message_id}", roomHandler.DeleteTribeMessage)

			r.With(roomLimiter.Handler).Post("/rooms/personal", roomHandler.CreatePersonalRoom)
			r.Post("/rooms/{room_id}/join", roomHandler.JoinPersonalRoom)
			r.Get("/rooms/{room_id}/messages", roomHandler.Messages)
			r.Post("/rooms/{room_id}/messages", roomHandler.SendMessage)
			r.Put("/rooms/{room_id}/messages/{message_id}", roomHandler.EditMessage)
			r.Delete("/rooms/{room_id}/messages/{message_id}", roomHandler.DeleteMessage)
			r.Get("/rooms/{room_id}/participants", roomHandler.Participants)

			r.Route("/buddy", func(r chi.Router) {
				r.Post("/match", buddyHandler.Match)
				r.Post("/accept", buddyHandler.Accept)
				r.Post("/respond/{buddy_id}", buddyHandler.Respond)
				r.Get("/status", buddyHandler.Status)
				r.Post("/match/{user_id}", handlers.ForSelf(buddyHandler.Match))
				r.Post("/accept/{user_id}", handlers.ForSelf(buddyHandler.Accept))
				r.Get("/status/{user_id}", handlers.ForSelf(buddyHandler.Status))
			})

			r.Post("/gifts/send", giftHandler.Send)
			r.Post("/gifts/activate/{gift_id}", giftHandler.Activate)
			r.Get("/gifts/received", giftHandler.Received)
			r.Get("/gifts/sent", giftHandler.Sent)

			r.Post("/payments/initialize/{gift_id}", giftHandler.InitializePayment)
			r.Get("/payments/verify/{gift_id}", giftHandler.PaymentStatus)

			r.Route("/upload", func(r chi.Router) {
				r.Use(uploadLimiter.Handler)
				r.Post("/profile-picture", uploadHandler.ProfilePicture)
				r.Delete("/profile-picture/{filename}", uploadHandler.DeleteProfilePicture)
				r.Post("/birthday-wall-photo", uploadHandler.WallPhoto)
			})

			r.Post("/ai/generate-gift-message", aiHandler.GenerateGiftMessage)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/flag-content", adminHandler.FlagContent)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Use(adminLimiter.Handler)
					r.Get("/flagged-content", adminHandler.FlaggedContent)
					r.Post("/flagged-content/{id}/review", adminHandler.Review)
					r.Post("/celebrities", adminHandler.AddCelebrity)
					r.Get("/celebrities/today", adminHandler.CelebritiesToday)
					r.Get("/stats/overview", adminHandler.Overview)
					r.Get("/celebrants/by-state", adminHandler.CelebrantsByState)
					r.Get("/celebrants/state/{state}", adminHandler.CelebrantsInState)
					r.Get("/contact-submissions", adminHandler.ContactSubmissions)
					r.Get("/analytics/overview", adminHandler.Analytics)
					r.Get("/analytics/user-growth", adminHandler.UserGrowth)
					r.Get("/analytics/engagement", adminHandler.Engagement)
					r.Get("/analytics/geographic", adminHandler.Geography)
					r.Get("/analytics/tribes", adminHandler.Tribes)
					r.Get("/activities/recent", adminHandler.RecentActivity)
					r.Get("/activities/users", adminHandler.UserActivity)
				})
			})
		})
	})

	// WebSocket route
	r.Get("/ws/rooms/{room_id}", wsHandler.HandleWebSocket)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
