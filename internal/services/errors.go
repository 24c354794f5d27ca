package services

import "errors"

// Request errors. Handlers wrap-match these to pick a status code; wrapped
// details after the sentinel text are shown to the client as-is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("not allowed")
	ErrAdminRequired = errors.New("admin access required")
)

// Identity errors
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrNotOnboarded    = errors.New("User not found - may need to complete onboarding")
	ErrUserInactive    = errors.New("user account is inactive")
	ErrUserExists      = errors.New("user already registered")
	ErrConsentRequired = errors.New("consent is required to create an account")
	ErrUserNotFound    = errors.New("user not found")
)

// Wall errors
var (
	ErrWallNotFound       = errors.New("birthday wall not found")
	ErrWallExists         = errors.New("you already have a birthday wall for your upcoming birthday")
	ErrWallTooEarly       = errors.New("Birthday Wall can only be created within 24 hours before your birthday")
	ErrWallNotOpen        = errors.New("Birthday wall is not open yet")
	ErrWallArchived       = errors.New("Birthday wall is closed and archived")
	ErrWallSealed         = errors.New("Birthday wall has been sealed")
	ErrUploadsDisabled    = errors.New("uploads are disabled on this wall")
	ErrUploadsPaused      = errors.New("uploads are paused on this wall")
	ErrUploadNotPermitted = errors.New("you are not permitted to upload to this wall")
	ErrAlreadyUploaded    = errors.New("you have already uploaded a photo to this wall")
	ErrPhotoLimit         = errors.New("Photo limit reached")
	ErrPhotoNotFound      = errors.New("photo not found")
	ErrReactionsDisabled  = errors.New("reactions are disabled on this wall")
	ErrCannotUnseal       = errors.New("a wall cannot be unsealed after it has closed")
	ErrAlreadyInvited     = errors.New("this person has already been invited")
	ErrNotBirthdayMate    = errors.New("invitee does not share your birthday")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationUsed     = errors.New("invitation has already been accepted")
)

// Room errors
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room is not active")
	ErrRoomReadOnly    = errors.New("room is read-only")
	ErrRoomFull        = errors.New("room is full")
	ErrNotParticipant  = errors.New("you are not a participant of this room")
	ErrNotBirthday     = errors.New("this is only available on the birthday")
	ErrNotTribeMember  = errors.New("you are not a member of this tribe")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotSender       = errors.New("only the sender can change this message")
	ErrMessageDeleted  = errors.New("message has been deleted")
)

// Buddy errors
var (
	ErrBuddyNotFound = errors.New("buddy pairing not found")
	ErrBuddyInactive = errors.New("buddy pairing is no longer active")
)

// Gift and payment errors
var (
	ErrCatalogItemNotFound = errors.New("gift not available")
	ErrGiftNotFound        = errors.New("Gift not found")
	ErrSelfGift            = errors.New("you cannot send a gift to yourself")
	ErrPaymentIncomplete   = errors.New("payment has not been completed")
	ErrGiftCardUnsupported = errors.New("gift card activation requires provider integration")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrPaymentsDisabled    = errors.New("payments are not configured")
	ErrPaymentProvider     = errors.New("payment provider error")
)

// Upload errors
var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image is too large")
	ErrInvalidImage     = errors.New("file is not a valid image")
	ErrFileNotFound     = errors.New("File not found")
)

// Moderation errors
var (
	ErrFlagNotFound    = errors.New("flagged content not found")
	ErrContentNotFound = errors.New("reported content not found")
)
