package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/model"
)

const (
	listCacheKeyPrefix      = "list:"
	listItemsCacheKeyPrefix = "list_items:"
	listCacheTTL            = 5 * time.Minute
)

// ListCache keeps lists and their items for the content providers. The TTL
// is short: list edits happen in the CRUD layer and must surface in posts
// within a few scheduler ticks.
type ListCache struct {
	client *Client
	log    *logger.Logger
}

func NewListCache(client *Client, log *logger.Logger) *ListCache {
	return &ListCache{
		client: client,
		log:    log,
	}
}

func (c *ListCache) GetList(ctx context.Context, listID int64) (*model.List, error) {
	var list model.List
	err := c.client.Get(ctx, c.listKey(listID), &list)
	if err != nil {
		if errors.Is(err, custom_errors.ErrCacheMiss) {
			return nil, custom_errors.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get list from cache: %w", err)
	}
	return &list, nil
}

func (c *ListCache) SetList(ctx context.Context, list *model.List) error {
	if list == nil {
		return fmt.Errorf("list cannot be nil")
	}
	if err := c.client.Set(ctx, c.listKey(list.ID), list, listCacheTTL); err != nil {
		return fmt.Errorf("failed to set list cache: %w", err)
	}
	c.log.Debug("List cached", slog.Int64("list_id", list.ID), slog.Duration("ttl", listCacheTTL))
	return nil
}

func (c *ListCache) GetItems(ctx context.Context, listID int64) ([]*model.ListItem, error) {
	var items []*model.ListItem
	err := c.client.Get(ctx, c.itemsKey(listID), &items)
	if err != nil {
		if errors.Is(err, custom_errors.ErrCacheMiss) {
			return nil, custom_errors.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get list items from cache: %w", err)
	}
	return items, nil
}

func (c *ListCache) SetItems(ctx context.Context, listID int64, items []*model.ListItem) error {
	if err := c.client.Set(ctx, c.itemsKey(listID), items, listCacheTTL); err != nil {
		return fmt.Errorf("failed to set list items cache: %w", err)
	}
	c.log.Debug("List items cached",
		slog.Int64("list_id", listID),
		slog.Int("count", len(items)),
		slog.Duration("ttl", listCacheTTL))
	return nil
}

func (c *ListCache) listKey(listID int64) string {
	return listCacheKeyPrefix + strconv.FormatInt(listID, 10)
}

func (c *ListCache) itemsKey(listID int64) string {
	return listItemsCacheKeyPrefix + strconv.FormatInt(listID, 10)
}
