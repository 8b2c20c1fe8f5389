package memory

import (
	"context"
	"log/slog"
	"sync"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/model"
)

type TokenRepository struct {
	log    *logger.Logger
	mu     sync.RWMutex
	tokens map[int64]*model.BotToken
	nextID int64
}

func NewTokenRepository(log *logger.Logger) *TokenRepository {
	return &TokenRepository{
		log:    log,
		tokens: make(map[int64]*model.BotToken),
		nextID: 1,
	}
}

func (t *TokenRepository) Add(token *model.BotToken) *model.BotToken {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *token
	if stored.ID == 0 {
		stored.ID = t.nextID
		t.nextID++
	} else if stored.ID >= t.nextID {
		t.nextID = stored.ID + 1
	}
	t.tokens[stored.ID] = &stored

	result := stored
	return &result
}

func (t *TokenRepository) GetByID(ctx context.Context, id int64) (*model.BotToken, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	token, exists := t.tokens[id]
	if !exists {
		t.log.Debug("Bot token not found by id", slog.Int64("id", id))
		return nil, custom_errors.ErrTokenNotFound
	}

	result := *token
	return &result, nil
}
