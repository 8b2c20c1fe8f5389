package token_repository_cached

import (
	"context"
	"errors"
	"log/slog"

	redis_cache "fediclock/internal/cache/redis"
	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/metrics"
	"fediclock/internal/model"
	token_repository "fediclock/internal/repository/token"
)

type TokenRepository struct {
	repo    token_repository.Repository
	cache   *redis_cache.TokenCache
	log     *logger.Logger
	metrics metrics.Provider
}

func NewTokenRepository(
	repo token_repository.Repository,
	cache *redis_cache.TokenCache,
	log *logger.Logger,
	metrics metrics.Provider,
) *TokenRepository {
	return &TokenRepository{
		repo:    repo,
		cache:   cache,
		log:     log,
		metrics: metrics,
	}
}

func (t *TokenRepository) GetByID(ctx context.Context, id int64) (*model.BotToken, error) {
	token, err := t.cache.GetToken(ctx, id)
	if err == nil {
		t.metrics.IncrementCacheHits()
		return token, nil
	}
	if !errors.Is(err, custom_errors.ErrCacheMiss) {
		t.log.Warn("Bot token cache read failed", slog.Int64("token_id", id), slog.String("error", err.Error()))
	}
	t.metrics.IncrementCacheMisses()

	token, err = t.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := t.cache.SetToken(ctx, token); err != nil {
		t.log.Warn("Failed to cache bot token", slog.Int64("token_id", id), slog.String("error", err.Error()))
	}
	return token, nil
}
