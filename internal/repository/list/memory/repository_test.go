package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/model"
)

func seedRepo(t *testing.T) *ListRepository {
	t.Helper()
	repo := NewListRepository(logger.New("test"))
	repo.AddList(&model.List{ID: 1, Title: "phrases"})
	repo.AddItem(&model.ListItem{ListID: 1, ItemID: 10, Content: "first"})
	repo.AddItem(&model.ListItem{ListID: 1, ItemID: 20, Content: "second"})
	return repo
}

func TestListRepository_GetItems(t *testing.T) {
	repo := seedRepo(t)

	items, err := repo.GetItems(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(10), items[0].ItemID)
	assert.Equal(t, int64(20), items[1].ItemID)

	_, err = repo.GetItems(context.Background(), 99)
	assert.ErrorIs(t, err, custom_errors.ErrListNotFound)
}

func TestListRepository_GetItem(t *testing.T) {
	repo := seedRepo(t)

	item, err := repo.GetItem(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, "second", item.Content)

	_, err = repo.GetItem(context.Background(), 1, 30)
	assert.ErrorIs(t, err, custom_errors.ErrListItemNotFound)

	_, err = repo.GetItem(context.Background(), 99, 10)
	assert.ErrorIs(t, err, custom_errors.ErrListNotFound)
}
