package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/gigmarket/internal/config"
	"github.com/vango-dev/gigmarket/pkg/session"
	"github.com/vango-dev/gigmarket/pkg/upload"
)

// newSessionStore returns the Redis store when a URL is configured and the
// in-memory store otherwise.
func newSessionStore(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (session.Store, error) {
	if cfg.RedisURL == "" {
		logger.Warn("session.redisUrl not set, sessions are not resumable across restarts")
		return session.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return session.NewRedisStore(ctx, cfg.RedisURL)
}

// mediaPath is where the server exposes the disk upload directory when no
// public URL is configured.
const mediaPath = "/media"

// newUploadStore builds the image store for the configured backend.
func newUploadStore(ctx context.Context, cfg config.UploadConfig) (upload.Store, error) {
	switch cfg.Backend {
	case config.UploadS3:
		return upload.NewS3Store(upload.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Endpoint:        cfg.Endpoint,
			PublicURL:       cfg.PublicURL,
		})
	case config.UploadMinio:
		s, err := upload.NewMinioStore(upload.MinioConfig{
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			UseSSL:          cfg.UseSSL,
			PublicURL:       cfg.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case config.UploadDisk:
		base := cfg.PublicURL
		if base == "" {
			base = mediaPath
		}
		return upload.NewDiskStore(cfg.Dir, base)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}
