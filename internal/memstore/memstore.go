// Package memstore implements the service store interfaces in memory. It
// backs service, handler and router tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"birthday-mate-backend/internal/models"
)

// DB is an in-memory stand-in for the postgres repositories. Each store
// interface gets its own view type over the shared tables.
type DB struct {
	mu          sync.Mutex
	Users       map[string]*models.User
	Contacts    []*models.ContactSubmission
	Walls       map[string]*models.BirthdayWall
	Photos      map[string]*models.WallPhoto
	Uploads     map[string]bool
	Reactions   map[string]*models.PhotoReaction
	Invitations map[string]*models.WallInvitation
	Rooms       map[string]*models.Room
	Members     map[string]map[string]*models.RoomParticipant
	Messages    map[string]*models.Message
	Buddies     map[string]*models.BirthdayBuddy
	Catalog     map[string]*models.GiftCatalogItem
	Gifts       map[string]*models.Gift
	Flags       map[string]*models.FlaggedContent
	Logs        []*models.ModerationLog
	Celebrities []*models.Celebrity
}

// New returns an empty store
func New() *DB {
	return &DB{
		Users:       map[string]*models.User{},
		Walls:       map[string]*models.BirthdayWall{},
		Photos:      map[string]*models.WallPhoto{},
		Uploads:     map[string]bool{},
		Reactions:   map[string]*models.PhotoReaction{},
		Invitations: map[string]*models.WallInvitation{},
		Rooms:       map[string]*models.Room{},
		Members:     map[string]map[string]*models.RoomParticipant{},
		Messages:    map[string]*models.Message{},
		Buddies:     map[string]*models.BirthdayBuddy{},
		Catalog:     map[string]*models.GiftCatalogItem{},
		Gifts:       map[string]*models.Gift{},
		Flags:       map[string]*models.FlaggedContent{},
	}
}

func notFound(what string) error { return fmt.Errorf("%s: %w", what, models.ErrNotFound) }

func clone[T any](v *T) *T {
	c := *v
	return &c
}

type UserStore struct{ *DB }
type WallStore struct{ *DB }
type PhotoStore struct{ *DB }
type ReactionStore struct{ *DB }
type InvitationStore struct{ *DB }
type RoomStore struct{ *DB }
type MessageStore struct{ *DB }
type BuddyStore struct{ *DB }
type GiftStore struct{ *DB }
type AdminStore struct{ *DB }

// users

func (m UserStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Users {
		if existing.ExternalUID == u.ExternalUID || existing.Email == u.Email {
			return fmt.Errorf("user: %w", models.ErrConflict)
		}
	}
	m.Users[u.ID] = clone(u)
	return nil
}

func (m UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, notFound("user")
	}
	return clone(u), nil
}

func (m UserStore) GetByExternalUID(_ context.Context, uid string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.ExternalUID == uid {
			return clone(u), nil
		}
	}
	return nil, notFound("user")
}

func (m UserStore) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[u.ID]; !ok {
		return notFound("user")
	}
	m.Users[u.ID] = clone(u)
	return nil
}

func (m UserStore) ListByTribe(_ context.Context, tribeID string, limit int, _ bool) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, u := range m.Users {
		if u.TribeID == tribeID && u.IsActive {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m UserStore) CountByTribe(_ context.Context, tribeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.Users {
		if u.TribeID == tribeID && u.IsActive {
			n++
		}
	}
	return n, nil
}

func (m UserStore) CelebrantsByState(_ context.Context, month, day int) ([]models.StateCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[[2]string]int{}
	for _, u := range m.Users {
		if u.BirthMonth == month && u.BirthDay == day && u.IsActive && u.StateVisibilityEnabled {
			counts[[2]string{u.Country, u.State}]++
		}
	}
	var out []models.StateCount
	for k, n := range counts {
		out = append(out, models.StateCount{Country: k[0], State: k[1], Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (m UserStore) CelebrantsInState(_ context.Context, month, day int, state string) ([]*models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var visible []*models.User
	total := 0
	for _, u := range m.Users {
		if u.BirthMonth != month || u.BirthDay != day || u.State != state || !u.IsActive {
			continue
		}
		total++
		if u.StateVisibilityEnabled {
			visible = append(visible, clone(u))
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.Before(visible[j].CreatedAt)
		}
		return visible[i].ID < visible[j].ID
	})
	return visible, total, nil
}

func (m UserStore) CreateContact(_ context.Context, c *models.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Contacts = append(m.Contacts, clone(c))
	return nil
}

// walls

func (m WallStore) Create(_ context.Context, w *models.BirthdayWall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Walls {
		if existing.OwnerID == w.OwnerID && existing.BirthdayYear == w.BirthdayYear {
			return fmt.Errorf("wall: %w", models.ErrConflict)
		}
	}
	m.Walls[w.ID] = clone(w)
	return nil
}

func (m WallStore) GetByID(_ context.Context, id string) (*models.BirthdayWall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.Walls[id]
	if !ok {
		return nil, notFound("wall")
	}
	return clone(w), nil
}

func (m WallStore) GetByCode(_ context.Context, code string) (*models.BirthdayWall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.Walls {
		if w.PublicURLCode == code {
			return clone(w), nil
		}
	}
	return nil, notFound("wall")
}

func (m WallStore) GetCurrentByOwner(_ context.Context, ownerID string, now time.Time) (*models.BirthdayWall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.BirthdayWall
	for _, w := range m.Walls {
		if w.OwnerID == ownerID && w.ClosesAt.After(now) && (best == nil || w.ClosesAt.Before(best.ClosesAt)) {
			best = w
		}
	}
	if best == nil {
		return nil, notFound("wall")
	}
	return clone(best), nil
}

func (m WallStore) ListByOwner(_ context.Context, ownerID string) ([]*models.BirthdayWall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.BirthdayWall
	for _, w := range m.Walls {
		if w.OwnerID == ownerID {
			out = append(out, clone(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BirthdayYear > out[j].BirthdayYear })
	return out, nil
}

func (m WallStore) IncrementViewCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.Walls[id]; ok {
		w.ViewCount++
	}
	return nil
}

func (m WallStore) UpdateUploadControl(_ context.Context, w *models.BirthdayWall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Walls[w.ID]; !ok {
		return notFound("wall")
	}
	m.Walls[w.ID] = clone(w)
	return nil
}

// photos

func (m PhotoStore) CreateWithUpload(_ context.Context, p *models.WallPhoto, u *models.WallUpload, maxPhotos int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := u.WallID + "/" + u.UploaderID
	if m.Uploads[key] {
		return fmt.Errorf("wall upload: %w", models.ErrConflict)
	}
	count := 0
	for _, existing := range m.Photos {
		if existing.WallID == p.WallID {
			count++
		}
	}
	if count >= maxPhotos {
		return fmt.Errorf("wall photos: %w", models.ErrFull)
	}
	p.DisplayOrder = count
	m.Uploads[key] = true
	m.Photos[p.ID] = clone(p)
	u.PhotoID = p.ID
	return nil
}

func (m PhotoStore) HasUploaded(_ context.Context, wallID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Uploads[wallID+"/"+userID], nil
}

func (m PhotoStore) CountByWall(_ context.Context, wallID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.Photos {
		if p.WallID == wallID {
			n++
		}
	}
	return n, nil
}

func (m PhotoStore) CountApprovedByWall(_ context.Context, wallID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.Photos {
		if p.WallID == wallID && p.IsApproved {
			n++
		}
	}
	return n, nil
}

func (m PhotoStore) ListByWall(_ context.Context, wallID string, approvedOnly bool) ([]*models.WallPhoto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WallPhoto
	for _, p := range m.Photos {
		if p.WallID == wallID && (p.IsApproved || !approvedOnly) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m PhotoStore) GetByID(_ context.Context, id string) (*models.WallPhoto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Photos[id]
	if !ok {
		return nil, notFound("photo")
	}
	return clone(p), nil
}

func (m PhotoStore) Update(_ context.Context, p *models.WallPhoto) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Photos[p.ID]; !ok {
		return notFound("photo")
	}
	m.Photos[p.ID] = clone(p)
	return nil
}

func (m PhotoStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Photos[id]; !ok {
		return notFound("photo")
	}
	delete(m.Photos, id)
	return nil
}

// reactions

func (m ReactionStore) Get(_ context.Context, photoID, userID string) (*models.PhotoReaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Reactions[photoID+"/"+userID]
	if !ok {
		return nil, notFound("reaction")
	}
	return clone(r), nil
}

func (m ReactionStore) Upsert(_ context.Context, r *models.PhotoReaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reactions[r.PhotoID+"/"+r.UserID] = clone(r)
	return nil
}

func (m ReactionStore) Delete(_ context.Context, photoID, userID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := photoID + "/" + userID
	if r, ok := m.Reactions[key]; ok && r.Emoji == emoji {
		delete(m.Reactions, key)
	}
	return nil
}

func (m ReactionStore) ListByPhotos(_ context.Context, photoIDs []string) ([]*models.PhotoReaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range photoIDs {
		want[id] = true
	}
	var out []*models.PhotoReaction
	for _, r := range m.Reactions {
		if want[r.PhotoID] {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

// invitations

func (m InvitationStore) Create(_ context.Context, inv *models.WallInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invitations[inv.ID] = clone(inv)
	return nil
}

func (m InvitationStore) GetByCode(_ context.Context, code string) (*models.WallInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.Invitations {
		if inv.InviteCode == code {
			return clone(inv), nil
		}
	}
	return nil, notFound("invitation")
}

func (m InvitationStore) ListByWall(_ context.Context, wallID string) ([]*models.WallInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WallInvitation
	for _, inv := range m.Invitations {
		if inv.WallID == wallID {
			out = append(out, clone(inv))
		}
	}
	return out, nil
}

func (m InvitationStore) ExistsForUser(_ context.Context, wallID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.Invitations {
		if inv.WallID == wallID && inv.InvitedUserID != nil && *inv.InvitedUserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m InvitationStore) ExistsForEmail(_ context.Context, wallID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.Invitations {
		if inv.WallID == wallID && inv.InvitedEmail != nil && strings.EqualFold(*inv.InvitedEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m InvitationStore) HasAccepted(_ context.Context, wallID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.Invitations {
		if inv.WallID == wallID && inv.IsAccepted && inv.AcceptedBy != nil && *inv.AcceptedBy == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m InvitationStore) Accept(_ context.Context, id, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.Invitations[id]
	if !ok || inv.IsAccepted {
		return fmt.Errorf("invitation: %w", models.ErrConflict)
	}
	inv.IsAccepted = true
	inv.AcceptedBy = &userID
	inv.AcceptedAt = &at
	return nil
}

// rooms

func (m RoomStore) Create(_ context.Context, r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Rooms {
		if existing.RoomIdentifier == r.RoomIdentifier && existing.OpensAt.Equal(r.OpensAt) {
			return fmt.Errorf("room: %w", models.ErrConflict)
		}
	}
	m.Rooms[r.ID] = clone(r)
	return nil
}

func (m RoomStore) GetOrCreate(_ context.Context, r *models.Room) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Rooms {
		if existing.RoomIdentifier == r.RoomIdentifier && existing.OpensAt.Equal(r.OpensAt) {
			return clone(existing), nil
		}
	}
	m.Rooms[r.ID] = clone(r)
	return clone(r), nil
}

func (m RoomStore) GetByID(_ context.Context, id string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rooms[id]
	if !ok {
		return nil, notFound("room")
	}
	return clone(r), nil
}

func (m RoomStore) GetByIdentifier(_ context.Context, identifier string, opensAt time.Time) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Rooms {
		if r.RoomIdentifier == identifier && r.OpensAt.Equal(opensAt) {
			return clone(r), nil
		}
	}
	return nil, notFound("room")
}

func (m RoomStore) GetByInviteCode(_ context.Context, code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Rooms {
		if r.InviteCode != nil && *r.InviteCode == code {
			return clone(r), nil
		}
	}
	return nil, notFound("room")
}

func (m RoomStore) AddParticipant(_ context.Context, p *models.RoomParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(p)
	return nil
}

func (m RoomStore) addLocked(p *models.RoomParticipant) {
	members, ok := m.Members[p.RoomID]
	if !ok {
		members = map[string]*models.RoomParticipant{}
		m.Members[p.RoomID] = members
	}
	if existing, ok := members[p.UserID]; ok {
		existing.LastSeen = p.LastSeen
		return
	}
	members[p.UserID] = clone(p)
}

func (m RoomStore) JoinWithLimit(_ context.Context, p *models.RoomParticipant, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.Members[p.RoomID]
	if _, ok := members[p.UserID]; !ok && len(members) >= limit {
		return fmt.Errorf("room: %w", models.ErrFull)
	}
	m.addLocked(p)
	return nil
}

func (m RoomStore) IsParticipant(_ context.Context, roomID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Members[roomID][userID]
	return ok, nil
}

func (m RoomStore) ListParticipants(_ context.Context, roomID string) ([]*models.RoomParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RoomParticipant
	for _, p := range m.Members[roomID] {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// messages

func (m MessageStore) Create(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[msg.ID] = clone(msg)
	return nil
}

func (m MessageStore) GetByID(_ context.Context, id string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.Messages[id]
	if !ok {
		return nil, notFound("message")
	}
	return clone(msg), nil
}

func (m MessageStore) ListByRoom(_ context.Context, roomID string, limit int) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.Messages {
		if msg.RoomID == roomID && !msg.IsDeleted {
			out = append(out, clone(msg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m MessageStore) UpdateContent(_ context.Context, id, content string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.Messages[id]
	if !ok {
		return notFound("message")
	}
	msg.Content = content
	msg.UpdatedAt = at
	return nil
}

func (m MessageStore) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.Messages[id]
	if !ok {
		return notFound("message")
	}
	msg.IsDeleted = true
	msg.UpdatedAt = at
	return nil
}

// buddies

func (m BuddyStore) GetByID(_ context.Context, id string) (*models.BirthdayBuddy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Buddies[id]
	if !ok {
		return nil, notFound("buddy pairing")
	}
	return clone(b), nil
}

func (m BuddyStore) GetActiveForUser(_ context.Context, userID string, birthday time.Time) (*models.BirthdayBuddy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.activeLocked(userID, birthday); b != nil {
		return clone(b), nil
	}
	return nil, notFound("buddy pairing")
}

func (m BuddyStore) activeLocked(userID string, birthday time.Time) *models.BirthdayBuddy {
	for _, b := range m.Buddies {
		if b.IsActive && b.BirthdayDate.Equal(birthday) && b.Has(userID) {
			return b
		}
	}
	return nil
}

func (m BuddyStore) CreatePairing(_ context.Context, b *models.BirthdayBuddy, month, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeLocked(b.User1ID, b.BirthdayDate) != nil {
		return fmt.Errorf("buddy pairing: %w", models.ErrConflict)
	}

	var candidates []*models.User
	for _, u := range m.Users {
		if u.BirthMonth == month && u.BirthDay == day && u.IsActive && u.ID != b.User1ID &&
			m.activeLocked(u.ID, b.BirthdayDate) == nil {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return notFound("buddy candidate")
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	b.User2ID = candidates[0].ID
	m.Buddies[b.ID] = clone(b)
	return nil
}

func (m BuddyStore) Accept(_ context.Context, id, userID string) (*models.BirthdayBuddy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Buddies[id]
	if !ok || !b.IsActive {
		return nil, notFound("buddy pairing")
	}
	if b.User1ID == userID {
		b.User1Accepted = true
	}
	if b.User2ID == userID {
		b.User2Accepted = true
	}
	return clone(b), nil
}

func (m BuddyStore) Reveal(_ context.Context, id, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Buddies[id]
	if !ok || !b.IsActive || !b.User1Accepted || !b.User2Accepted || b.IsRevealed {
		return false, nil
	}
	b.IsRevealed = true
	b.RoomID = &roomID
	return true, nil
}

func (m BuddyStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Buddies[id]
	if !ok {
		return notFound("buddy pairing")
	}
	b.IsActive = false
	return nil
}

// gifts

func (m GiftStore) ListCatalog(_ context.Context, giftType string) ([]*models.GiftCatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GiftCatalogItem
	for _, c := range m.Catalog {
		if c.IsActive && (giftType == "" || c.GiftType == giftType) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m GiftStore) GetCatalogItem(_ context.Context, id string) (*models.GiftCatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Catalog[id]
	if !ok {
		return nil, notFound("catalog item")
	}
	return clone(c), nil
}

func (m GiftStore) Create(_ context.Context, g *models.Gift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gifts[g.ID] = clone(g)
	return nil
}

func (m GiftStore) GetByID(_ context.Context, id string) (*models.Gift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.Gifts[id]
	if !ok {
		return nil, notFound("gift")
	}
	return clone(g), nil
}

func (m GiftStore) GetByPaymentReference(_ context.Context, ref string) (*models.Gift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.Gifts {
		if g.PaymentReference != nil && *g.PaymentReference == ref {
			return clone(g), nil
		}
	}
	return nil, notFound("gift")
}

func (m GiftStore) UpdatePayment(_ context.Context, id, status string, ref *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.Gifts[id]
	if !ok {
		return notFound("gift")
	}
	g.PaymentStatus = status
	if ref != nil {
		r := *ref
		g.PaymentReference = &r
	}
	g.UpdatedAt = at
	return nil
}

func (m GiftStore) FailPayment(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.Gifts[id]
	if !ok || g.PaymentStatus == models.PaymentCompleted {
		return false, nil
	}
	g.PaymentStatus = models.PaymentFailed
	g.UpdatedAt = at
	return true, nil
}

func (m GiftStore) MarkDelivered(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.Gifts[id]
	if !ok || g.IsDelivered {
		return false, nil
	}
	g.IsDelivered = true
	g.DeliveredAt = &at
	g.UpdatedAt = at
	return true, nil
}

func (m GiftStore) filter(keep func(*models.Gift) bool) []*models.Gift {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Gift
	for _, g := range m.Gifts {
		if keep(g) {
			out = append(out, clone(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m GiftStore) ListReceived(_ context.Context, recipientID string) ([]*models.Gift, error) {
	return m.filter(func(g *models.Gift) bool {
		return g.RecipientID == recipientID && g.PaymentStatus == models.PaymentCompleted
	}), nil
}

func (m GiftStore) ListSent(_ context.Context, senderID string) ([]*models.Gift, error) {
	return m.filter(func(g *models.Gift) bool { return g.SenderID == senderID }), nil
}

func (m GiftStore) ListDeliveredSince(_ context.Context, recipientID string, since time.Time) ([]*models.Gift, error) {
	return m.filter(func(g *models.Gift) bool {
		return g.RecipientID == recipientID && g.IsDelivered && g.PaymentStatus == models.PaymentCompleted &&
			(!g.DeliveredAt.Before(since) || g.GiftType == models.GiftDigitalCard)
	}), nil
}

// admin

func (m AdminStore) CreateFlag(_ context.Context, f *models.FlaggedContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flags[f.ID] = clone(f)
	return nil
}

func (m AdminStore) GetFlag(_ context.Context, id string) (*models.FlaggedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Flags[id]
	if !ok {
		return nil, notFound("flagged content")
	}
	return clone(f), nil
}

func (m AdminStore) ListFlags(_ context.Context, status string, limit int) ([]*models.FlaggedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FlaggedContent
	for _, f := range m.Flags {
		if f.Status == status {
			out = append(out, clone(f))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m AdminStore) ResolveFlag(_ context.Context, id, status, adminID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Flags[id]
	if !ok {
		return notFound("flagged content")
	}
	f.Status = status
	f.ReviewedBy = &adminID
	f.ReviewedAt = &at
	return nil
}

func (m AdminStore) CreateLog(_ context.Context, l *models.ModerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, clone(l))
	return nil
}

func (m AdminStore) CreateCelebrity(_ context.Context, c *models.Celebrity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Celebrities = append(m.Celebrities, clone(c))
	return nil
}

func (m AdminStore) ListCelebrities(_ context.Context, month, day int) ([]*models.Celebrity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Celebrity
	for _, c := range m.Celebrities {
		if c.BirthMonth == month && c.BirthDay == day {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (m AdminStore) ListContacts(_ context.Context, limit int) ([]*models.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*models.ContactSubmission(nil), m.Contacts...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m AdminStore) Overview(_ context.Context, month, day int, now time.Time) (*models.Overview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var o models.Overview
	for _, u := range m.Users {
		o.TotalUsers++
		if u.IsActive {
			o.ActiveUsers++
			if u.BirthMonth == month && u.BirthDay == day {
				o.TodayCelebrants++
			}
		}
	}
	for _, w := range m.Walls {
		if w.IsActive && !now.Before(w.OpensAt) && !now.After(w.ClosesAt) {
			o.OpenWalls++
		}
	}
	for _, r := range m.Rooms {
		if r.IsActive && !now.Before(r.OpensAt) && !now.After(r.ClosesAt) {
			o.OpenRooms++
		}
	}
	for _, f := range m.Flags {
		if f.Status == models.FlagPending {
			o.PendingFlags++
		}
	}
	return &o, nil
}

func (m AdminStore) Analytics(_ context.Context, month, day int, since time.Time) (*models.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var a models.Analytics
	for _, u := range m.Users {
		a.Users.Total++
		if u.IsActive {
			a.Users.Active++
			if u.BirthMonth == month && u.BirthDay == day {
				a.Engagement.TodaysCelebrants++
			}
		}
		if !u.CreatedAt.Before(since) {
			a.Users.NewInPeriod++
		}
	}
	for _, r := range m.Rooms {
		a.Engagement.TotalRooms++
		if r.IsActive {
			a.Engagement.ActiveRooms++
		}
	}
	for _, msg := range m.Messages {
		if !msg.CreatedAt.Before(since) {
			a.Engagement.MessagesInPeriod++
		}
	}
	for _, g := range m.Gifts {
		if !g.CreatedAt.Before(since) {
			a.Engagement.GiftsSentInPeriod++
		}
	}
	for _, w := range m.Walls {
		if !w.CreatedAt.Before(since) {
			a.Engagement.WallsCreatedInPeriod++
		}
	}
	for _, f := range m.Flags {
		if f.Status == models.FlagPending {
			a.Moderation.PendingFlags++
		}
	}
	for _, l := range m.Logs {
		if !l.CreatedAt.Before(since) {
			a.Moderation.ActionsInPeriod++
		}
	}
	return &a, nil
}

func (m AdminStore) DailyCounts(_ context.Context, series string, since time.Time) ([]models.DailyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stamps []time.Time
	switch series {
	case models.SeriesUsers:
		for _, u := range m.Users {
			stamps = append(stamps, u.CreatedAt)
		}
	case models.SeriesMessages:
		for _, msg := range m.Messages {
			stamps = append(stamps, msg.CreatedAt)
		}
	case models.SeriesGifts:
		for _, g := range m.Gifts {
			stamps = append(stamps, g.CreatedAt)
		}
	case models.SeriesWalls:
		for _, w := range m.Walls {
			stamps = append(stamps, w.CreatedAt)
		}
	default:
		return nil, fmt.Errorf("unknown series %q", series)
	}

	byDay := map[string]int{}
	for _, t := range stamps {
		if !t.Before(since) {
			byDay[t.UTC().Format(time.DateOnly)]++
		}
	}
	out := make([]models.DailyCount, 0, len(byDay))
	for d, n := range byDay {
		out = append(out, models.DailyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m AdminStore) Geography(_ context.Context, limit int) (*models.Geography, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	countries := map[string]int{}
	states := map[[2]string]int{}
	for _, u := range m.Users {
		if u.IsActive {
			countries[u.Country]++
			states[[2]string{u.State, u.Country}]++
		}
	}

	g := &models.Geography{}
	for c, n := range countries {
		g.TopCountries = append(g.TopCountries, models.CountryCount{Country: c, UserCount: n})
	}
	sort.Slice(g.TopCountries, func(i, j int) bool {
		a, b := g.TopCountries[i], g.TopCountries[j]
		return a.UserCount > b.UserCount || (a.UserCount == b.UserCount && a.Country < b.Country)
	})
	for k, n := range states {
		g.TopStates = append(g.TopStates, models.RegionCount{State: k[0], Country: k[1], UserCount: n})
	}
	sort.Slice(g.TopStates, func(i, j int) bool {
		a, b := g.TopStates[i], g.TopStates[j]
		return a.UserCount > b.UserCount || (a.UserCount == b.UserCount && a.State < b.State)
	})
	if len(g.TopCountries) > limit {
		g.TopCountries = g.TopCountries[:limit]
	}
	if len(g.TopStates) > limit {
		g.TopStates = g.TopStates[:limit]
	}
	return g, nil
}

func (m AdminStore) TribeSizes(_ context.Context, limit int) (*models.TribeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := map[string]int{}
	for _, u := range m.Users {
		if u.IsActive {
			sizes[u.TribeID]++
		}
	}
	st := &models.TribeStats{TotalTribes: len(sizes)}
	for id, n := range sizes {
		st.TopTribes = append(st.TopTribes, models.TribeSize{TribeID: id, MemberCount: n})
	}
	sort.Slice(st.TopTribes, func(i, j int) bool {
		a, b := st.TopTribes[i], st.TopTribes[j]
		return a.MemberCount > b.MemberCount || (a.MemberCount == b.MemberCount && a.TribeID < b.TribeID)
	})
	if len(st.TopTribes) > limit {
		st.TopTribes = st.TopTribes[:limit]
	}
	return st, nil
}

func (m AdminStore) RecentActivity(_ context.Context, kind string, limit int) ([]*models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Activity
	switch kind {
	case models.ActivitySignup:
		for _, u := range m.Users {
			out = append(out, &models.Activity{Type: "user_signup", Timestamp: u.CreatedAt, UserID: u.ID, UserName: u.FirstName})
		}
	case models.ActivityMessage:
		for _, msg := range m.Messages {
			out = append(out, &models.Activity{Type: "message_sent", Timestamp: msg.CreatedAt, UserID: msg.UserID, RoomID: msg.RoomID})
		}
	case models.ActivityGift:
		for _, g := range m.Gifts {
			out = append(out, &models.Activity{Type: "gift_sent", Timestamp: g.CreatedAt, SenderID: g.SenderID, RecipientID: g.RecipientID, GiftType: g.GiftType})
		}
	case models.ActivityWall:
		for _, w := range m.Walls {
			out = append(out, &models.Activity{Type: "wall_created", Timestamp: w.CreatedAt, UserID: w.OwnerID, WallCode: w.PublicURLCode})
		}
	case models.ActivityModeration:
		for _, l := range m.Logs {
			out = append(out, &models.Activity{Type: "moderation_action", Timestamp: l.CreatedAt, ModeratorID: l.AdminID, Action: l.Action})
		}
	default:
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m AdminStore) UserActivity(_ context.Context, userID string, limit int) ([]*models.UserActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.UserActivity
	for _, u := range m.Users {
		if userID != "" && u.ID != userID {
			continue
		}
		a := &models.UserActivity{
			UserID:     u.ID,
			UserName:   u.FirstName,
			Email:      u.Email,
			TribeID:    u.TribeID,
			Country:    u.Country,
			State:      u.State,
			CreatedAt:  u.CreatedAt,
			LastActive: u.UpdatedAt,
		}
		for _, msg := range m.Messages {
			if msg.UserID == u.ID {
				a.Stats.MessagesSent++
			}
		}
		for _, g := range m.Gifts {
			if g.SenderID == u.ID {
				a.Stats.GiftsSent++
			}
			if g.RecipientID == u.ID {
				a.Stats.GiftsReceived++
			}
		}
		for _, w := range m.Walls {
			if w.OwnerID == u.ID {
				a.Stats.WallsCreated++
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fixtures

var userSeq atomic.Int64

// AddUser inserts an active, consenting user born on month/day
func (m *DB) AddUser(name string, month, day int, created time.Time) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("user-%03d-%s", userSeq.Add(1), strings.ToLower(name))
	u := &models.User{
		ID:           id,
		ExternalUID:  "ext-" + id,
		Email:        strings.ToLower(name) + "@example.com",
		FirstName:    name,
		DateOfBirth:  time.Date(1990, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		Gender:       models.GenderPreferNotToSay,
		Country:      "Nigeria",
		State:        "Lagos",
		BirthMonth:   month,
		BirthDay:     day,
		TribeID:      models.TribeKey(month, day),
		IsActive:     true,
		ConsentGiven: true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	m.Users[u.ID] = u
	return clone(u)
}
