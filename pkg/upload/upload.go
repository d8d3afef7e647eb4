package upload

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrUnsupportedType is returned when the detected type is not allowed.
var ErrUnsupportedType = errors.New("upload: unsupported file type")

// ErrInvalidKey is returned for object keys that could escape the store.
var ErrInvalidKey = errors.New("upload: invalid key")

// Store is the image hosting backend.
type Store interface {
	// Put stores r under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (url string, err error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// File describes a stored upload.
type File struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Config holds the upload limits.
type Config struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Default: 5MB.
	MaxFileSize int64

	// AllowedTypes lists the accepted detected MIME types.
	// Default: JPEG, PNG, GIF and WebP images.
	AllowedTypes []string

	// Prefix is prepended to every object key, e.g. "avatars/".
	Prefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize:  5 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		Prefix:       "avatars/",
	}
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader validates files and hands them to a Store.
type Uploader struct {
	store  Store
	config Config
}

// NewUploader creates an uploader. A nil config uses DefaultConfig.
func NewUploader(store Store, config *Config) *Uploader {
	cfg := DefaultConfig()
	if config != nil {
		cfg = config
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultConfig().MaxFileSize
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultConfig().AllowedTypes
	}
	return &Uploader{store: store, config: *cfg}
}

// MaxFileSize returns the size limit in bytes.
func (u *Uploader) MaxFileSize() int64 {
	return u.config.MaxFileSize
}

// Upload checks r and stores it under a fresh key. size may be -1 when
// unknown; the limit is then enforced while reading.
func (u *Uploader) Upload(ctx context.Context, filename string, size int64, r io.Reader) (File, error) {
	if size > u.config.MaxFileSize {
		return File{}, ErrTooLarge
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return File{}, fmt.Errorf("upload: read: %w", err)
	}
	if len(head) == 0 {
		return File{}, ErrUnsupportedType
	}

	contentType := DetectType(head)
	if !slices.Contains(u.config.AllowedTypes, contentType) {
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	limited := &limitReader{r: br, remaining: u.config.MaxFileSize}
	key := u.config.Prefix + uuid.NewString() + extensions[contentType]

	url, err := u.store.Put(ctx, key, contentType, size, limited)
	if limited.exceeded {
		if url != "" || err == nil {
			_ = u.store.Delete(ctx, key)
		}
		return File{}, ErrTooLarge
	}
	if err != nil {
		return File{}, fmt.Errorf("upload: store %s: %w", key, err)
	}

	if size < 0 {
		size = limited.read
	}
	return File{Key: key, URL: url, Filename: filename, ContentType: contentType, Size: size}, nil
}

// DetectType sniffs the MIME type of content, without parameters.
func DetectType(head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// limitReader fails once more than remaining bytes were read.
type limitReader struct {
	r         io.Reader
	remaining int64
	read      int64
	exceeded  bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrTooLarge
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.remaining {
		l.exceeded = true
		return n, ErrTooLarge
	}
	return n, err
}

// checkKey rejects keys that are empty, absolute or contain "..".
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// joinURL appends key to base with exactly one slash.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
