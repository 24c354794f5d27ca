package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"birthday-mate-backend/internal/config"
	"birthday-mate-backend/internal/memstore"
	"birthday-mate-backend/internal/models"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthyDB struct{}

func (healthyDB) Ping(context.Context) error { return nil }

type stubGateway struct {
	mu       sync.Mutex
	refs     []string
	linkBase string
}

func (g *stubGateway) Initialize(_ context.Context, req services.CheckoutRequest) (*services.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs = append(g.refs, req.TxRef)
	return &services.Checkout{Link: g.linkBase + req.TxRef}, nil
}

func (g *stubGateway) Verify(context.Context, string) (*services.Transaction, error) {
	return nil, services.ErrPaymentProvider
}

type fixedRates struct{}

func (fixedRates) Fetch(context.Context, string) (services.Rates, error) {
	return services.Rates{"NGN": decimal.NewFromInt(1)}, nil
}

type routerFixture struct {
	db       *memstore.DB
	verifier *services.HMACVerifier
	gateway  *stubGateway
	handler  http.Handler
}

// newRouterFixture builds the production router over in-memory stores and
// a local object store in a temp dir. Services run on the real clock, so
// birthdays are set relative to today.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	db := memstore.New()
	verifier := services.NewHMACVerifier("router-secret")
	objects := services.NewLocalStore(t.TempDir(), "/uploads")
	gateway := &stubGateway{linkBase: "https://checkout.example/"}

	hub := services.NewWSHub()
	media := services.NewMediaService(objects)
	users := services.NewUserService(memstore.UserStore{DB: db}, verifier)
	rooms := services.NewRoomService(memstore.RoomStore{DB: db}, memstore.MessageStore{DB: db}, memstore.UserStore{DB: db}, hub)
	currency := services.NewCurrencyService(fixedRates{}, services.NewRateCache(time.Hour, 4), nil)
	gifts := services.NewGiftService(memstore.GiftStore{DB: db}, memstore.UserStore{DB: db}, memstore.WallStore{DB: db}, memstore.RoomStore{DB: db}, currency, false)

	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Storage.PublicBaseURL = "/uploads"
	cfg.RateLimits = config.RateLimitsConfig{Auth: 100, API: 1000, Admin: 100, Upload: 100, Contact: 10, PersonalRoom: 10}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := newRouter(ctx, app{
		cfg:   cfg,
		db:    healthyDB{},
		store: objects,
		hub:   hub,
		users: users,
		walls: services.NewWallService(memstore.WallStore{DB: db}, memstore.PhotoStore{DB: db}, memstore.ReactionStore{DB: db},
			memstore.InvitationStore{DB: db}, memstore.UserStore{DB: db}, media),
		rooms:    rooms,
		buddies:  services.NewBuddyService(memstore.BuddyStore{DB: db}, memstore.RoomStore{DB: db}, memstore.UserStore{DB: db}),
		gifts:    gifts,
		payments: services.NewPaymentService(memstore.GiftStore{DB: db}, gifts, gateway, "whsec", "https://app.example/paid"),
		messages: services.NewMessageService(nil),
		admin: services.NewAdminService(memstore.AdminStore{DB: db}, memstore.UserStore{DB: db}, memstore.PhotoStore{DB: db},
			memstore.MessageStore{DB: db}, rooms),
		media: media,
	})
	return &routerFixture{db: db, verifier: verifier, gateway: gateway, handler: handler}
}

func (f *routerFixture) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := f.verifier.Issue(u.ExternalUID, u.Email, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	return f.send(httptest.NewRequest(method, path, &buf), token)
}

func (f *routerFixture) upload(t *testing.T, path, token, caption string) *httptest.ResponseRecorder {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, x%30, color.RGBA{R: 200, A: 255})
	}
	var pic bytes.Buffer
	require.NoError(t, png.Encode(&pic, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "cake.png")
	require.NoError(t, err)
	_, err = part.Write(pic.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("caption", caption))
	require.NoError(t, mw.WriteField("frame_style", "polaroid"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.send(req, token)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func registered(day time.Time) time.Time { return day.AddDate(-1, 0, 0) }

func TestRouteTable(t *testing.T) {
	f := newRouterFixture(t)
	routes, ok := f.handler.(chi.Routes)
	require.True(t, ok)

	got := map[string]bool{}
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, want := range []string{
		"POST /api/auth/signup",
		"GET /api/auth/verify-token",
		"POST /api/auth/verify-token",
		"POST /api/ai/get-template-messages",
		"POST /api/rooms/birthday-wall",
		"GET /api/rooms/birthday-wall/{code}",
		"GET /api/rooms/birthday-wall/user/{user_id}",
		"GET /api/rooms/birthday-wall/user/{user_id}/archive",
		"POST /api/rooms/birthday-wall/{wall_id}/photos",
		"POST /api/rooms/birthday-wall/{wall_id}/photos/{photo_id}/reactions",
		"GET /api/tribes/{tribe_id}",
		"GET /api/tribes/{tribe_id}/room",
		"POST /api/tribes/{tribe_id}/room/{room_id}/messages",
		"DELETE /api/tribes/{tribe_id}/room/{room_id}/messages/{message_id}",
		"POST /api/rooms/personal",
		"POST /api/rooms/{room_id}/join",
		"POST /api/buddy/accept",
		"POST /api/buddy/match/{user_id}",
		"POST /api/buddy/accept/{user_id}",
		"GET /api/buddy/status/{user_id}",
		"GET /api/admin/celebrants/state/{state}",
		"POST /api/payments/initialize/{gift_id}",
		"POST /api/upload/birthday-wall-photo",
		"DELETE /api/upload/profile-picture/{filename}",
		"GET /api/admin/analytics/overview",
		"GET /api/admin/analytics/user-growth",
		"GET /api/admin/analytics/engagement",
		"GET /api/admin/analytics/geographic",
		"GET /api/admin/analytics/tribes",
		"GET /api/admin/activities/recent",
		"GET /api/admin/activities/users",
		"GET /ws/rooms/{room_id}",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestRouteGroupsDoNotShadow(t *testing.T) {
	f := newRouterFixture(t)
	today := time.Now().UTC()
	user := f.db.AddUser("Ada", int(today.Month()), today.Day(), registered(today))
	later := today.AddDate(0, 0, 100)
	admin := f.db.AddUser("Mod", int(later.Month()), later.Day(), registered(today))
	f.db.Users[admin.ID].IsAdmin = true
	tribe := models.TribeKey(int(today.Month()), today.Day())

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", nil).Code)

	// public tribe info next to the signed-in tribe room
	rec := f.do(http.MethodGet, "/api/tribes/"+tribe, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["member_count"])
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/tribes/"+tribe+"/room", "", nil).Code)

	// the archive is not taken for a wall code or a public owner lookup
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/rooms/birthday-wall/user/"+user.ID, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/rooms/birthday-wall/user/"+user.ID+"/archive", "", nil).Code)
	rec = f.do(http.MethodGet, "/api/rooms/birthday-wall/user/"+user.ID+"/archive", f.token(t, user), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["years"])

	rec = f.do(http.MethodPost, "/api/payments/webhook/flutterwave", "", map[string]string{"event": "charge.completed"})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/admin/analytics/overview", f.token(t, user), nil).Code)
	rec = f.do(http.MethodGet, "/api/admin/analytics/overview?days=7", f.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), decode(t, rec)["period_days"])
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/admin/analytics/overview?days=400", f.token(t, admin), nil).Code)
	rec = f.do(http.MethodGet, "/api/admin/activities/recent?activity_type=signup", f.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["total"])

	rec = f.do(http.MethodGet, "/api/admin/celebrants/state/Lagos", f.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lagos := decode(t, rec)
	assert.Equal(t, float64(1), lagos["total_celebrants"])
	assert.Empty(t, lagos["visible_celebrants"])

	rec = f.do(http.MethodGet, "/api/auth/verify-token?token="+f.token(t, user), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["onboarded"])

	rec = f.do(http.MethodPost, "/api/ai/get-template-messages", "", map[string]string{"recipient_name": "Ada", "category": "short"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["messages"])
}

func TestWallFlowOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	month, day := int(tomorrow.Month()), tomorrow.Day()
	owner := f.db.AddUser("Ada", month, day, registered(tomorrow))
	mate := f.db.AddUser("Bola", month, day, registered(tomorrow))
	otherDay := tomorrow.AddDate(0, 0, 100)
	stranger := f.db.AddUser("Chidi", int(otherDay.Month()), otherDay.Day(), registered(tomorrow))
	ownerToken, mateToken, strangerToken := f.token(t, owner), f.token(t, mate), f.token(t, stranger)

	rec := f.do(http.MethodPost, "/api/rooms/birthday-wall", ownerToken, map[string]string{"title": "Ada turns 30"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wall := decode(t, rec)
	wallID := wall["id"].(string)
	assert.Equal(t, "Ada turns 30", wall["title"])
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/rooms/birthday-wall", ownerToken, nil).Code)

	rec = f.do(http.MethodPatch, "/api/rooms/birthday-wall/"+wallID+"/upload-control", ownerToken, map[string]any{
		"uploads_enabled":   true,
		"upload_permission": models.UploadPermissionBirthdayMates,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	photosPath := "/api/rooms/birthday-wall/" + wallID + "/photos"
	assert.Equal(t, http.StatusForbidden, f.upload(t, photosPath, strangerToken, "hi").Code)

	rec = f.upload(t, photosPath, mateToken, "Happy birthday!")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	photo := decode(t, rec)
	photoID := photo["id"].(string)
	assert.Equal(t, "Happy birthday!", photo["caption"])
	assert.Equal(t, "polaroid", photo["frame_style"])
	photoURL := photo["photo_url"].(string)
	assert.True(t, strings.HasPrefix(photoURL, "/uploads/walls/"+wallID+"/"), photoURL)

	rec = f.do(http.MethodGet, photoURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusConflict, f.upload(t, photosPath, mateToken, "again").Code)

	reactPath := photosPath + "/" + photoID + "/reactions"
	rec = f.do(http.MethodPost, reactPath, strangerToken, map[string]string{"emoji": "❤️"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "added", decode(t, rec)["action"])

	rec = f.do(http.MethodPost, "/api/rooms/birthday-wall/other-wall/photos/"+photoID+"/reactions", strangerToken, map[string]string{"emoji": "👍"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/rooms/birthday-wall/"+wall["public_url_code"].(string), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["photos"], 1)

	// close the wall
	stored := f.db.Walls[wallID]
	stored.OpensAt = stored.OpensAt.AddDate(0, 0, -30)
	stored.ClosesAt = stored.ClosesAt.AddDate(0, 0, -30)

	rec = f.do(http.MethodPost, reactPath, strangerToken, map[string]string{"emoji": "😊"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, services.ErrWallArchived.Error(), decode(t, rec)["error"])
	assert.Equal(t, http.StatusForbidden, f.upload(t, photosPath, ownerToken, "late").Code)

	archivePath := "/api/rooms/birthday-wall/user/" + owner.ID + "/archive"
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, archivePath, strangerToken, nil).Code)
	rec = f.do(http.MethodGet, archivePath, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	years := decode(t, rec)["years"].([]any)
	require.Len(t, years, 1)
	walls := years[0].(map[string]any)["walls"].([]any)
	require.Len(t, walls, 1)
	assert.Equal(t, "archived", walls[0].(map[string]any)["state"])
}

func TestTribeMessagesOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	today := time.Now().UTC()
	month, day := int(today.Month()), today.Day()
	ada := f.db.AddUser("Ada", month, day, registered(today))
	bola := f.db.AddUser("Bola", month, day, registered(today))
	adaToken, bolaToken := f.token(t, ada), f.token(t, bola)
	tribe := models.TribeKey(month, day)

	rec := f.do(http.MethodGet, "/api/tribes/"+tribe+"/room", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	roomID := decode(t, rec)["id"].(string)
	messagesPath := "/api/tribes/" + tribe + "/room/" + roomID + "/messages"

	rec = f.do(http.MethodPost, messagesPath, adaToken, map[string]string{"content": "Happy birthday to us"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msgID := decode(t, rec)["id"].(string)

	rec = f.do(http.MethodGet, messagesPath, bolaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode(t, rec)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Happy birthday to us", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "Ada", msgs[0].(map[string]any)["sender_name"])

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, messagesPath+"/"+msgID, bolaToken, map[string]string{"content": "mine now"}).Code)
	rec = f.do(http.MethodPut, messagesPath+"/"+msgID, adaToken, map[string]string{"content": "Happy birthday, tribe"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Happy birthday, tribe", decode(t, rec)["content"])

	rec = f.do(http.MethodPost, "/api/tribes/"+tribe+"/room/not-this-room/messages", adaToken, map[string]string{"content": "lost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodDelete, messagesPath+"/"+msgID, adaToken, nil).Code)
	rec = f.do(http.MethodGet, messagesPath, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["messages"])

	// personal room on the same birthday
	rec = f.do(http.MethodPost, "/api/rooms/personal", adaToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode(t, rec)
	joinPath := "/api/rooms/" + room["id"].(string) + "/join?invite_code="
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, joinPath+"WRONG", bolaToken, nil).Code)
	rec = f.do(http.MethodPost, joinPath+room["invite_code"].(string), bolaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["is_birthday_mate"])
}

func TestBuddyAndGiftOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	soon := time.Now().UTC().AddDate(0, 0, 10)
	ada := f.db.AddUser("Ada", int(soon.Month()), soon.Day(), registered(soon))
	bola := f.db.AddUser("Bola", int(soon.Month()), soon.Day(), registered(soon).Add(time.Hour))
	adaToken, bolaToken := f.token(t, ada), f.token(t, bola)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/buddy/match/"+bola.ID, adaToken, nil).Code)
	rec := f.do(http.MethodPost, "/api/buddy/match/"+ada.ID, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	match := decode(t, rec)
	require.Equal(t, true, match["matched"])
	assert.Nil(t, match["buddy"])

	rec = f.do(http.MethodPost, "/api/buddy/accept", bolaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["you_accepted"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/buddy/respond/"+match["buddy_id"].(string), adaToken, map[string]any{}).Code)
	rec = f.do(http.MethodPost, "/api/buddy/respond/"+match["buddy_id"].(string), adaToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	revealed := decode(t, rec)
	assert.Equal(t, true, revealed["is_revealed"])
	assert.Equal(t, "Bola", revealed["buddy"].(map[string]any)["first_name"])

	rec = f.do(http.MethodGet, "/api/buddy/status/"+bola.ID, bolaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, revealed["room_id"], decode(t, rec)["room_id"])
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/buddy/status/"+ada.ID, bolaToken, nil).Code)

	f.db.Catalog["confetti"] = &models.GiftCatalogItem{
		ID: "confetti", GiftType: models.GiftConfettiEffect, Name: "Confetti Blast",
		Price: decimal.NewFromInt(500), Currency: "NGN", IsActive: true,
	}
	rec = f.do(http.MethodGet, "/api/gifts/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/gifts/send", adaToken, map[string]string{"recipient_id": bola.ID, "gift_catalog_id": "confetti"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	gift := decode(t, rec)
	giftID := gift["id"].(string)
	assert.Equal(t, models.PaymentPending, gift["payment_status"])

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/payments/initialize/"+giftID, bolaToken, nil).Code)
	rec = f.do(http.MethodPost, "/api/payments/initialize/"+giftID, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode(t, rec)
	require.Len(t, f.gateway.refs, 1)
	assert.Equal(t, f.gateway.refs[0], started["tx_ref"])
	assert.Equal(t, "https://checkout.example/"+f.gateway.refs[0], started["payment_link"])
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/payments/initialize/missing", adaToken, nil).Code)
}

func TestProfilePictureUploadAndDelete(t *testing.T) {
	f := newRouterFixture(t)
	today := time.Now().UTC()
	ada := f.db.AddUser("Ada", int(today.Month()), today.Day(), registered(today))
	token := f.token(t, ada)

	rec := f.upload(t, "/api/upload/profile-picture", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored := decode(t, rec)
	filename := stored["filename"].(string)
	assert.Equal(t, "/uploads/profiles/"+ada.ID+"/"+filename, stored["url"])
	require.NotNil(t, f.db.Users[ada.ID].ProfilePictureURL)
	assert.Equal(t, stored["url"], *f.db.Users[ada.ID].ProfilePictureURL)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, stored["url"].(string), "", nil).Code)

	other := f.db.AddUser("Bola", int(today.Month()), today.Day(), registered(today))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/upload/profile-picture/"+filename, f.token(t, other), nil).Code)

	rec = f.do(http.MethodDelete, "/api/upload/profile-picture/"+filename, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "File deleted successfully", decode(t, rec)["message"])
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, stored["url"].(string), "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/upload/profile-picture/"+filename, token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/upload/profile-picture/..hidden", token, nil).Code)
}
