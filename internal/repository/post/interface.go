package post_repository

import (
	"context"
	"time"

	"fediclock/internal/model"
)

//go:generate mockery --name Repository --dir . --output ../../../mocks --outpkg mocks --with-expecter --filename PostRepository.go
type Repository interface {
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	GetPublishable(ctx context.Context) ([]*model.Post, error)
	UpdateNextRun(ctx context.Context, id int64, nextRun *time.Time) error
	ClearNextRun(ctx context.Context) error
}
