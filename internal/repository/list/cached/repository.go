package list_repository_cached

import (
	"context"
	"errors"
	"log/slog"

	redis_cache "fediclock/internal/cache/redis"
	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/metrics"
	"fediclock/internal/model"
	list_repository "fediclock/internal/repository/list"
)

// ListRepository is a read-through cache over the underlying repository.
// Cache failures are logged and fall back to the repository; they never
// fail a command evaluation.
type ListRepository struct {
	repo    list_repository.Repository
	cache   *redis_cache.ListCache
	log     *logger.Logger
	metrics metrics.Provider
}

func NewListRepository(
	repo list_repository.Repository,
	cache *redis_cache.ListCache,
	log *logger.Logger,
	metrics metrics.Provider,
) *ListRepository {
	return &ListRepository{
		repo:    repo,
		cache:   cache,
		log:     log,
		metrics: metrics,
	}
}

func (l *ListRepository) GetByID(ctx context.Context, id int64) (*model.List, error) {
	list, err := l.cache.GetList(ctx, id)
	if err == nil {
		l.metrics.IncrementCacheHits()
		return list, nil
	}
	if !errors.Is(err, custom_errors.ErrCacheMiss) {
		l.log.Warn("List cache read failed", slog.Int64("list_id", id), slog.String("error", err.Error()))
	}
	l.metrics.IncrementCacheMisses()

	list, err = l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := l.cache.SetList(ctx, list); err != nil {
		l.log.Warn("Failed to cache list", slog.Int64("list_id", id), slog.String("error", err.Error()))
	}
	return list, nil
}

func (l *ListRepository) GetItems(ctx context.Context, listID int64) ([]*model.ListItem, error) {
	items, err := l.cache.GetItems(ctx, listID)
	if err == nil {
		l.metrics.IncrementCacheHits()
		return items, nil
	}
	if !errors.Is(err, custom_errors.ErrCacheMiss) {
		l.log.Warn("List items cache read failed", slog.Int64("list_id", listID), slog.String("error", err.Error()))
	}
	l.metrics.IncrementCacheMisses()

	items, err = l.repo.GetItems(ctx, listID)
	if err != nil {
		return nil, err
	}

	if err := l.cache.SetItems(ctx, listID, items); err != nil {
		l.log.Warn("Failed to cache list items", slog.Int64("list_id", listID), slog.String("error", err.Error()))
	}
	return items, nil
}

// GetItem is not cached on its own key: static lookups share the items key
// populated by GetItems so a single list edit invalidates one entry.
func (l *ListRepository) GetItem(ctx context.Context, listID, itemID int64) (*model.ListItem, error) {
	items, err := l.cache.GetItems(ctx, listID)
	if err == nil {
		l.metrics.IncrementCacheHits()
		for _, item := range items {
			if item.ItemID == itemID {
				return item, nil
			}
		}
		return nil, custom_errors.ErrListItemNotFound
	}
	if !errors.Is(err, custom_errors.ErrCacheMiss) {
		l.log.Warn("List items cache read failed", slog.Int64("list_id", listID), slog.String("error", err.Error()))
	}
	l.metrics.IncrementCacheMisses()

	return l.repo.GetItem(ctx, listID, itemID)
}
