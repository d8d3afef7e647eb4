package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/vango-dev/gigmarket/pkg/upload"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, pngHeader)
	return b
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key, contentType string, _ int64, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return "https://img.example.com/" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func TestUploader_StoresImage(t *testing.T) {
	store := newMemStore()
	u := upload.NewUploader(store, nil)

	content := pngBytes(100)
	f, err := u.Upload(context.Background(), "me.png", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if f.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", f.ContentType)
	}
	if !strings.HasPrefix(f.Key, "avatars/") || !strings.HasSuffix(f.Key, ".png") {
		t.Errorf("Key = %q, want avatars/*.png", f.Key)
	}
	if f.URL != "https://img.example.com/"+f.Key {
		t.Errorf("URL = %q", f.URL)
	}
	if f.Size != 100 || f.Filename != "me.png" {
		t.Errorf("File = %+v", f)
	}
	if !bytes.Equal(store.objects[f.Key], content) {
		t.Error("stored bytes differ from upload")
	}
}

func TestUploader_UnknownSizeIsCounted(t *testing.T) {
	u := upload.NewUploader(newMemStore(), nil)

	f, err := u.Upload(context.Background(), "a.png", -1, bytes.NewReader(pngBytes(700)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if f.Size != 700 {
		t.Errorf("Size = %d, want 700", f.Size)
	}
}

func TestUploader_Rejections(t *testing.T) {
	cfg := upload.DefaultConfig()
	cfg.MaxFileSize = 1024

	tests := []struct {
		name    string
		size    int64
		content []byte
		want    error
	}{
		{"declared too large", 2048, pngBytes(2048), upload.ErrTooLarge},
		{"undeclared too large", -1, pngBytes(2048), upload.ErrTooLarge},
		{"text file", 11, []byte("hello world"), upload.ErrUnsupportedType},
		{"empty", 0, nil, upload.ErrUnsupportedType},
		{"html disguised", 20, []byte("<html><body>x</body>"), upload.ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			u := upload.NewUploader(store, cfg)

			_, err := u.Upload(context.Background(), "f", tt.size, bytes.NewReader(tt.content))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(store.objects) != 0 {
				t.Errorf("objects = %d, want 0", len(store.objects))
			}
		})
	}
}

func TestUploader_StoreError(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("bucket gone")
	u := upload.NewUploader(store, nil)

	_, err := u.Upload(context.Background(), "a.png", 100, bytes.NewReader(pngBytes(100)))
	if err == nil || !strings.Contains(err.Error(), "bucket gone") {
		t.Fatalf("err = %v, want store error", err)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{pngHeader, "image/png"},
		{[]byte("GIF89a......"), "image/gif"},
		{[]byte("\xff\xd8\xff\xe0\x00\x10JFIF"), "image/jpeg"},
		{[]byte("plain text"), "text/plain"},
	}
	for _, tt := range tests {
		if got := upload.DetectType(tt.in); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
