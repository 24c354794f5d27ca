package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"birthday-mate-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (m *memObjectStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return notFoundObject(key)
	}
	delete(m.objects, key)
	return nil
}

func notFoundObject(key string) error {
	return fmt.Errorf("object %s: %w", key, models.ErrNotFound)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeImageWallPhoto(t *testing.T) {
	out, err := NormalizeImage(pngBytes(t, 1200, 900), "image/png", WallImage)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 800, cfg.Height)
}

func TestNormalizeImageRejections(t *testing.T) {
	_, err := NormalizeImage(pngBytes(t, 10, 10), "image/bmp", WallImage)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = NormalizeImage([]byte("definitely not an image"), "image/jpeg", WallImage)
	assert.ErrorIs(t, err, ErrInvalidImage)

	tiny := ImageSpec{MaxBytes: 16, Width: 10, Height: 10}
	_, err = NormalizeImage(pngBytes(t, 10, 10), "image/png", tiny)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

// hugeDimensionsPNG returns a small PNG whose header declares w x h pixels
func hugeDimensionsPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestNormalizeImageRejectsHugeDimensions(t *testing.T) {
	data := hugeDimensionsPNG(t, 30000, 30000)
	require.Less(t, len(data), 1024)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 30000, cfg.Width)

	_, err = NormalizeImage(data, "image/png", WallImage)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	// within the cap the truncated pixel data is what fails
	_, err = NormalizeImage(hugeDimensionsPNG(t, 2000, 1000), "image/png", WallImage)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestMediaServiceStoresJPEG(t *testing.T) {
	store := newMemObjectStore()
	media := NewMediaService(store)

	stored, err := media.StoreProfilePicture(context.Background(), "user-1", pngBytes(t, 300, 200), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.URL, "https://cdn.test/profiles/user-1/"))
	assert.True(t, strings.HasSuffix(stored.URL, ".jpg"))
	assert.Equal(t, "profiles/user-1/"+stored.Filename, stored.Key)

	require.Len(t, store.objects, 1)
	for _, data := range store.objects {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 512, cfg.Width)
		assert.Equal(t, 512, cfg.Height)
	}
}

func TestMediaServiceDeleteProfilePicture(t *testing.T) {
	store := newMemObjectStore()
	media := NewMediaService(store)
	ctx := context.Background()

	stored, err := media.StoreProfilePicture(ctx, "user-1", pngBytes(t, 40, 40), "image/png")
	require.NoError(t, err)

	assert.ErrorIs(t, media.DeleteProfilePicture(ctx, "user-2", stored.Filename), ErrFileNotFound)
	for _, bad := range []string{"", "../user-2/x.jpg", "a/b.jpg", ".hidden"} {
		assert.ErrorIs(t, media.DeleteProfilePicture(ctx, "user-1", bad), ErrInvalidInput, bad)
	}

	require.NoError(t, media.DeleteProfilePicture(ctx, "user-1", stored.Filename))
	assert.Empty(t, store.objects)
	assert.ErrorIs(t, media.DeleteProfilePicture(ctx, "user-1", stored.Filename), ErrFileNotFound)
}

func TestLocalStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads/")
	ctx := context.Background()

	url, err := store.Put(ctx, "profiles/u1/a.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/profiles/u1/a.jpg", url)

	require.NoError(t, store.Delete(ctx, "profiles/u1/a.jpg"))
	assert.ErrorIs(t, store.Delete(ctx, "profiles/u1/a.jpg"), models.ErrNotFound)
}
