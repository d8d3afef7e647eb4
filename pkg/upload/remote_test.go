package upload_test

import (
	"testing"

	"github.com/vango-dev/gigmarket/pkg/upload"
)

func TestS3Store_URLs(t *testing.T) {
	tests := []struct {
		name string
		cfg  upload.S3Config
		want string
	}{
		{"aws", upload.S3Config{Bucket: "imgs", Region: "eu-west-1"}, "https://imgs.s3.eu-west-1.amazonaws.com/avatars/a.png"},
		{"default region", upload.S3Config{Bucket: "imgs"}, "https://imgs.s3.us-east-1.amazonaws.com/avatars/a.png"},
		{"endpoint", upload.S3Config{Bucket: "imgs", Endpoint: "http://localhost:9000/"}, "http://localhost:9000/imgs/avatars/a.png"},
		{"public", upload.S3Config{Bucket: "imgs", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com/avatars/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := upload.NewS3Store(tt.cfg)
			if err != nil {
				t.Fatalf("NewS3Store: %v", err)
			}
			if got := store.URL("avatars/a.png"); got != tt.want {
				t.Errorf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestS3Store_RequiresBucket(t *testing.T) {
	if _, err := upload.NewS3Store(upload.S3Config{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestMinioStore_URLs(t *testing.T) {
	store, err := upload.NewMinioStore(upload.MinioConfig{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "imgs",
	})
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}
	if got := store.URL("avatars/a.png"); got != "http://localhost:9000/imgs/avatars/a.png" {
		t.Errorf("URL = %q", got)
	}

	secure, err := upload.NewMinioStore(upload.MinioConfig{Endpoint: "s3.example.com", Bucket: "b", UseSSL: true})
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}
	if got := secure.URL("k"); got != "https://s3.example.com/b/k" {
		t.Errorf("URL = %q", got)
	}
}

func TestMinioStore_RequiresEndpoint(t *testing.T) {
	if _, err := upload.NewMinioStore(upload.MinioConfig{Bucket: "b"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}
