package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 5 << 20

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds 5 MiB")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload is the stored location of an image.
type Upload struct {
	URL         string `json:"url"`
	Key         string `json:"key,omitempty"`
	ContentType string `json:"contentType"`
	// Inline is set when the image is embedded as a data URL because object
	// storage was unavailable.
	Inline bool `json:"inline"`
}

// ImageUploader writes user images to object storage and falls back to
// inline data URLs when storage is missing or failing.
type ImageUploader struct {
	objects ObjectStore
	timeout time.Duration
}

// NewImageUploader builds an uploader. objects may be nil.
func NewImageUploader(objects ObjectStore) *ImageUploader {
	return &ImageUploader{objects: objects, timeout: 15 * time.Second}
}

// Upload validates data as an image and stores it under
// businesses/<owner>/<kind>/<id>-<name>.
func (u *ImageUploader) Upload(ctx context.Context, ownerID, kind, filename string, data []byte) (Upload, error) {
	if len(data) == 0 {
		return Upload{}, ErrEmptyFile
	}
	if len(data) > MaxImageBytes {
		return Upload{}, ErrFileTooLarge
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if u.objects == nil {
		return inline(data, contentType), nil
	}

	key := BuildKey(ownerID, kind, filename, ext)
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	if err := u.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		slog.Warn("image upload failed, using inline fallback", "key", key, "err", err)
		return inline(data, contentType), nil
	}
	url, err := u.objects.URL(ctx, key)
	if err != nil {
		slog.Warn("image url failed, using inline fallback", "key", key, "err", err)
		_ = u.objects.Delete(ctx, key)
		return inline(data, contentType), nil
	}
	return Upload{URL: url, Key: key, ContentType: contentType}, nil
}

// StoreDataURL decodes a data: URL (as returned by the image relay) and
// uploads it. Non-data URLs are returned unchanged.
func (u *ImageUploader) StoreDataURL(ctx context.Context, ownerID, kind, dataURL string) (Upload, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return Upload{URL: dataURL}, nil
	}
	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return Upload{}, err
	}
	return u.Upload(ctx, ownerID, kind, "generated", data)
}

func inline(data []byte, contentType string) Upload {
	return Upload{URL: DataURL(contentType, data), ContentType: contentType, Inline: true}
}

// DataURL encodes data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, errors.New("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("data url must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}

// BuildKey returns the object key for an owner's image.
func BuildKey(ownerID, kind, filename, ext string) string {
	name := sanitizeFilename(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if name == "" || name == "_" {
		name = "image"
	}
	if len(name) > 64 {
		name = name[:64]
	}
	return path.Join("businesses", sanitizeFilename(ownerID), sanitizeFilename(kind), uuid.NewString()+"-"+name+ext)
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return b.String()
}
