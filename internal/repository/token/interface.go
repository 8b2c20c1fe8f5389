package token_repository

import (
	"context"

	"fediclock/internal/model"
)

//go:generate mockery --name Repository --dir . --output ../../../mocks --outpkg mocks --with-expecter --filename TokenRepository.go
type Repository interface {
	GetByID(ctx context.Context, id int64) (*model.BotToken, error)
}
