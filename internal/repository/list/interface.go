package list_repository

import (
	"context"

	"fediclock/internal/model"
)

//go:generate mockery --name Repository --dir . --output ../../../mocks --outpkg mocks --with-expecter --filename ListRepository.go
type Repository interface {
	GetByID(ctx context.Context, id int64) (*model.List, error)
	GetItems(ctx context.Context, listID int64) ([]*model.ListItem, error)
	GetItem(ctx context.Context, listID, itemID int64) (*model.ListItem, error)
}
