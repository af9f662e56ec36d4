package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/domain/media"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

// SignPlaybackUseCase issues short-lived signed playback/thumbnail tokens
// for an item. Tokens are cached in Redis for most of their lifetime and
// concurrent requests for the same token collapse into one signing call.
type SignPlaybackUseCase struct {
	mediaRepo media.Repository
	host      service.VideoHost
	cache     *redis.Client
	tokenTTL  time.Duration
	group     singleflight.Group
	logger    logger.Logger
}

func NewSignPlaybackUseCase(
	r media.Repository,
	host service.VideoHost,
	cache *redis.Client,
	tokenTTL time.Duration,
	log logger.Logger,
) *SignPlaybackUseCase {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &SignPlaybackUseCase{
		mediaRepo: r,
		host:      host,
		cache:     cache,
		tokenTTL:  tokenTTL,
		logger:    log,
	}
}

type SignPlaybackInput struct {
	OwnerID uuid.UUID
	MediaID uuid.UUID
	Kind    service.PlaybackTokenKind
}

type SignPlaybackOutput struct {
	PlaybackID string
	Token      string
}

func (uc *SignPlaybackUseCase) Execute(ctx context.Context, in SignPlaybackInput) (*SignPlaybackOutput, error) {
	item, err := uc.mediaRepo.FindByID(ctx, in.MediaID, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if !item.Playable() {
		return nil, apperror.NewInvalidInput("media item has no playback id yet", nil)
	}
	playbackID := *item.PlaybackID

	cacheKey := fmt.Sprintf("playback_token:%s:%s", playbackID, in.Kind)
	if uc.cache != nil {
		if token, err := uc.cache.Get(ctx, cacheKey).Result(); err == nil && token != "" {
			return &SignPlaybackOutput{PlaybackID: playbackID, Token: token}, nil
		}
	}

	v, err, _ := uc.group.Do(cacheKey, func() (any, error) {
		token, err := uc.host.SignPlaybackToken(playbackID, in.Kind, uc.tokenTTL)
		if err != nil {
			return nil, err
		}
		if uc.cache != nil {
			// Cache for less than the token's validity so a cached hit is
			// never already expired.
			cacheTTL := uc.tokenTTL - time.Hour
			if cacheTTL <= 0 {
				cacheTTL = uc.tokenTTL / 2
			}
			if err := uc.cache.Set(context.Background(), cacheKey, token, cacheTTL).Err(); err != nil {
				uc.logger.Warn("Failed to cache playback token", zap.Error(err))
			}
		}
		return token, nil
	})
	if err != nil {
		return nil, apperror.NewUpstream("video host", "failed to sign playback token", err)
	}

	return &SignPlaybackOutput{PlaybackID: playbackID, Token: v.(string)}, nil
}
