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
	tokenCacheKeyPrefix = "bot_token:"
	tokenCacheTTL       = 10 * time.Minute
)

type TokenCache struct {
	client *Client
	log    *logger.Logger
}

func NewTokenCache(client *Client, log *logger.Logger) *TokenCache {
	return &TokenCache{
		client: client,
		log:    log,
	}
}

func (c *TokenCache) GetToken(ctx context.Context, tokenID int64) (*model.BotToken, error) {
	var token cachedToken
	err := c.client.Get(ctx, c.key(tokenID), &token)
	if err != nil {
		if errors.Is(err, custom_errors.ErrCacheMiss) {
			return nil, custom_errors.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get bot token from cache: %w", err)
	}
	return &model.BotToken{ID: token.ID, Token: token.Token, Description: token.Description}, nil
}

func (c *TokenCache) SetToken(ctx context.Context, token *model.BotToken) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}
	entry := cachedToken{ID: token.ID, Token: token.Token, Description: token.Description}
	if err := c.client.Set(ctx, c.key(token.ID), entry, tokenCacheTTL); err != nil {
		return fmt.Errorf("failed to set bot token cache: %w", err)
	}
	c.log.Debug("Bot token cached", slog.Int64("token_id", token.ID), slog.Duration("ttl", tokenCacheTTL))
	return nil
}

func (c *TokenCache) key(tokenID int64) string {
	return tokenCacheKeyPrefix + strconv.FormatInt(tokenID, 10)
}

// cachedToken exists because model.BotToken hides the credential from JSON
// marshalling; inside Redis the token value is the whole point.
type cachedToken struct {
	ID          int64   `json:"id"`
	Token       string  `json:"token"`
	Description *string `json:"description,omitempty"`
}
