package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/model"
)

type ListRepository struct {
	log    *logger.Logger
	mu     sync.RWMutex
	lists  map[int64]*model.List
	items  map[int64][]*model.ListItem
	nextID int64
}

func NewListRepository(log *logger.Logger) *ListRepository {
	return &ListRepository{
		log:   log,
		lists: make(map[int64]*model.List),
		items: make(map[int64][]*model.ListItem),

		nextID: 1,
	}
}

func (l *ListRepository) AddList(list *model.List) *model.List {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := *list
	if stored.ID == 0 {
		stored.ID = l.nextID
		l.nextID++
	} else if stored.ID >= l.nextID {
		l.nextID = stored.ID + 1
	}
	if !stored.CreatedAt.Valid {
		stored.CreatedAt = pgtype.Timestamp{Time: time.Now(), Valid: true}
	}
	l.lists[stored.ID] = &stored

	result := stored
	return &result
}

func (l *ListRepository) AddItem(item *model.ListItem) *model.ListItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := *item
	if !stored.DateAdded.Valid {
		stored.DateAdded = pgtype.Timestamp{Time: time.Now(), Valid: true}
	}
	l.items[stored.ListID] = append(l.items[stored.ListID], &stored)

	result := stored
	return &result
}

func (l *ListRepository) GetByID(ctx context.Context, id int64) (*model.List, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list, exists := l.lists[id]
	if !exists {
		l.log.Debug("List not found by id", slog.Int64("id", id))
		return nil, custom_errors.ErrListNotFound
	}

	result := *list
	return &result, nil
}

func (l *ListRepository) GetItems(ctx context.Context, listID int64) ([]*model.ListItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, exists := l.lists[listID]; !exists {
		l.log.Debug("List not found during GetItems", slog.Int64("list_id", listID))
		return nil, custom_errors.ErrListNotFound
	}

	var items []*model.ListItem
	for _, item := range l.items[listID] {
		result := *item
		items = append(items, &result)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items, nil
}

func (l *ListRepository) GetItem(ctx context.Context, listID, itemID int64) (*model.ListItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, exists := l.lists[listID]; !exists {
		l.log.Debug("List not found during GetItem", slog.Int64("list_id", listID))
		return nil, custom_errors.ErrListNotFound
	}

	for _, item := range l.items[listID] {
		if item.ItemID == itemID {
			result := *item
			return &result, nil
		}
	}

	l.log.Debug("List item not found",
		slog.Int64("list_id", listID),
		slog.Int64("item_id", itemID))
	return nil, custom_errors.ErrListItemNotFound
}
