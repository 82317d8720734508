package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/metrics"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/getdoa/getdoa/internal/storage"
	"github.com/google/uuid"
)

const maxShareCardBytes = 8 << 20

// ShareImage is a stored share card and the allowance left after creating it.
type ShareImage struct {
	URL    string                `json:"url"`
	Key    string                `json:"key"`
	Limits domain.ImageLimitInfo `json:"limits"`
}

// ShareImageService renders and stores share cards under the daily quota.
type ShareImageService interface {
	Generate(ctx context.Context, userID uuid.UUID, params ShareCardParams) (*ShareImage, error)
}

// ShareImageStore is the persistence the share image service needs.
type ShareImageStore interface {
	QuotaStore
	ReserveImageGeneration(ctx context.Context, arg repository.ReserveImageGenerationParams) (repository.ImageGeneration, error)
	ReleaseImageGeneration(ctx context.Context, userID uuid.UUID, windowStart time.Time) error
}

type shareImageService struct {
	store    ShareImageStore
	objects  storage.Storage
	renderer ShareCardRenderer
	limiter  *domain.ImageLimiter
	logger   *slog.Logger
}

func NewShareImageService(store ShareImageStore, objects storage.Storage, renderer ShareCardRenderer, limiter *domain.ImageLimiter, logger *slog.Logger) ShareImageService {
	return &shareImageService{
		store:    store,
		objects:  objects,
		renderer: renderer,
		limiter:  limiter,
		logger:   logger,
	}
}

// Generate reserves one generation before rendering so concurrent requests
// cannot exceed the daily limit. The reservation is released if rendering or
// upload fails.
func (s *shareImageService) Generate(ctx context.Context, userID uuid.UUID, params ShareCardParams) (*ShareImage, error) {
	const op = "share_image.generate"

	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := s.limiter.CurrentTime()
	windowStart := s.limiter.Calendar.DayWindowStart(now)

	if s.limiter.DailyLimit <= 0 {
		metrics.QuotaDenials.WithLabelValues("share_image").Inc()
		return nil, domain.QuotaExceeded(op, domain.QuotaTypeShareImage, 0, s.limiter.DailyLimit)
	}

	row, err := s.store.ReserveImageGeneration(ctx, repository.ReserveImageGenerationParams{
		UserID:      userID,
		WindowStart: windowStart,
		GeneratedAt: now,
		DailyLimit:  int32(s.limiter.DailyLimit),
	})
	if errors.Is(err, sql.ErrNoRows) {
		metrics.QuotaDenials.WithLabelValues("share_image").Inc()
		s.logger.Info("Share image quota exceeded", "user_id", userID, "limit", s.limiter.DailyLimit)
		return nil, domain.QuotaExceeded(op, domain.QuotaTypeShareImage, s.limiter.DailyLimit, s.limiter.DailyLimit)
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to reserve share image")
	}

	image, err := s.renderAndStore(ctx, userID, params)
	if err != nil {
		if relErr := s.store.ReleaseImageGeneration(ctx, userID, windowStart); relErr != nil {
			s.logger.Error("failed to release share image reservation", "user_id", userID, "error", relErr)
		}
		return nil, domain.Internal(err, op, "failed to generate share image")
	}

	info, err := s.limiter.EvaluateAt(imageUsageFromRow(row), now)
	if err != nil {
		return nil, err
	}
	image.Limits = info

	metrics.ShareImagesGenerated.Inc()
	s.logger.Info("share image generated",
		"user_id", userID,
		"key", image.Key,
		"used_today", info.UsedToday,
	)
	return image, nil
}

func (s *shareImageService) renderAndStore(ctx context.Context, userID uuid.UUID, params ShareCardParams) (*ShareImage, error) {
	png, err := s.renderer.Render(params)
	if err != nil {
		return nil, err
	}

	key := storage.ShareCardKey(userID)
	err = s.objects.Put(ctx, key, bytes.NewReader(png), storage.PutOptions{
		ContentType: "image/png",
		MaxSize:     maxShareCardBytes,
		Public:      true,
	})
	if err != nil {
		return nil, err
	}

	url, err := s.objects.URL(ctx, key, 0)
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned share card", "key", key, "error", delErr)
		}
		return nil, err
	}
	return &ShareImage{URL: url, Key: key}, nil
}
