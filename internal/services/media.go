package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"

	"birthday-mate-backend/internal/models"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// ImageSpec describes how an upload is validated and normalized
type ImageSpec struct {
	MaxBytes int64
	Width    int
	Height   int
}

var (
	ProfileImage = ImageSpec{MaxBytes: 5 << 20, Width: 512, Height: 512}
	WallImage    = ImageSpec{MaxBytes: 10 << 20, Width: 600, Height: 800}
)

const (
	jpegQuality = 85
	// maxImagePixels bounds decode memory; byte size alone does not
	maxImagePixels = 40_000_000
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// NormalizeImage checks type, size and decodability, then center-crops the
// image to the target dimensions and re-encodes it as JPEG
func NormalizeImage(data []byte, contentType string, spec ImageSpec) ([]byte, error) {
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	if int64(len(data)) > spec.MaxBytes {
		return nil, fmt.Errorf("%w: maximum is %d MB", ErrImageTooLarge, spec.MaxBytes>>20)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d pixels exceeds the %d megapixel limit", ErrImageTooLarge, cfg.Width, cfg.Height, maxImagePixels/1_000_000)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	out := imaging.Fill(img, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// MediaService normalizes uploaded images and hands them to the object store
type MediaService struct {
	store ObjectStore
}

// NewMediaService creates a new media service
func NewMediaService(store ObjectStore) *MediaService {
	return &MediaService{store: store}
}

// StoredImage is a normalized image in the object store
type StoredImage struct {
	Key      string
	URL      string
	Filename string
	Size     int
}

func (s *MediaService) put(ctx context.Context, dir string, data []byte, contentType string, spec ImageSpec) (*StoredImage, error) {
	normalized, err := NormalizeImage(data, contentType, spec)
	if err != nil {
		return nil, err
	}
	filename := uuid.New().String() + ".jpg"
	key := dir + "/" + filename
	url, err := s.store.Put(ctx, key, "image/jpeg", normalized)
	if err != nil {
		return nil, err
	}
	return &StoredImage{Key: key, URL: url, Filename: filename, Size: len(normalized)}, nil
}

// StoreWallPhoto normalizes a wall photo and stores it
func (s *MediaService) StoreWallPhoto(ctx context.Context, wallID string, data []byte, contentType string) (*StoredImage, error) {
	return s.put(ctx, "walls/"+wallID, data, contentType, WallImage)
}

// StoreProfilePicture normalizes a profile picture and stores it
func (s *MediaService) StoreProfilePicture(ctx context.Context, userID string, data []byte, contentType string) (*StoredImage, error) {
	return s.put(ctx, "profiles/"+userID, data, contentType, ProfileImage)
}

// Discard removes an object whose database write failed. Failures are only
// logged; the caller is already returning an error.
func (s *MediaService) Discard(ctx context.Context, img *StoredImage) {
	if err := s.store.Delete(ctx, img.Key); err != nil {
		log.Error().Err(err).Str("key", img.Key).Msg("Failed to remove orphaned upload")
	}
}

// DeleteProfilePicture removes one of the user's uploaded profile pictures
func (s *MediaService) DeleteProfilePicture(ctx context.Context, userID, filename string) error {
	if filename == "" || filename != path.Base(filename) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("%w: invalid filename", ErrInvalidInput)
	}
	if err := s.store.Delete(ctx, "profiles/"+userID+"/"+filename); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}
