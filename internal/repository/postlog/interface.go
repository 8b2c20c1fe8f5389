package postlog_repository

import (
	"context"
	"time"

	"fediclock/internal/model"
)

//go:generate mockery --name Repository --dir . --output ../../../mocks --outpkg mocks --with-expecter --filename PostLogRepository.go
type Repository interface {
	Append(ctx context.Context, postID int64, lastPosted time.Time) error
	GetByPost(ctx context.Context, postID int64) ([]*model.PostLog, error)
}
