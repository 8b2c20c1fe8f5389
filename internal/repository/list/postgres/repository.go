package list_repository_postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/metrics"
	"fediclock/internal/model"
	"fediclock/internal/repository/postgres/db"
)

type ListRepository struct {
	log     *logger.Logger
	db      db.PgDB
	metrics metrics.Provider
}

func NewListRepository(db db.PgDB, log *logger.Logger, metrics metrics.Provider) *ListRepository {
	return &ListRepository{db: db, log: log, metrics: metrics}
}

func (l *ListRepository) GetByID(ctx context.Context, id int64) (*model.List, error) {
	args := pgx.NamedArgs{"id": id}
	query := `SELECT id, title, created_at, updated_at FROM lists WHERE id = @id`

	list := &model.List{}
	err := l.db.QueryRow(ctx, query, args).Scan(
		&list.ID,
		&list.Title,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.log.Debug("List not found by id", slog.Int64("id", id))
			l.metrics.IncrementDatabaseQueries("list_get_by_id", false)
			return nil, custom_errors.ErrListNotFound
		}
		l.log.Error("Error getting list by id", slog.Int64("id", id), slog.String("error", err.Error()))
		l.metrics.IncrementDatabaseQueries("list_get_by_id", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	l.metrics.IncrementDatabaseQueries("list_get_by_id", true)
	return list, nil
}

func (l *ListRepository) GetItems(ctx context.Context, listID int64) ([]*model.ListItem, error) {
	args := pgx.NamedArgs{"list_id": listID}
	query := `SELECT id, list_id, item_id, content, date_added, date_last_used
				FROM list_items WHERE list_id = @list_id ORDER BY item_id`

	rows, err := l.db.Query(ctx, query, args)
	if err != nil {
		l.log.Error("Error getting list items", slog.Int64("list_id", listID), slog.String("error", err.Error()))
		l.metrics.IncrementDatabaseQueries("list_get_items", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	defer rows.Close()

	var items []*model.ListItem
	for rows.Next() {
		item := &model.ListItem{}
		err := rows.Scan(
			&item.ID,
			&item.ListID,
			&item.ItemID,
			&item.Content,
			&item.DateAdded,
			&item.DateLastUsed,
		)
		if err != nil {
			l.log.Error("Error scanning list item", slog.Int64("list_id", listID), slog.String("error", err.Error()))
			l.metrics.IncrementDatabaseQueries("list_get_items", false)
			return nil, custom_errors.ErrDatabaseScan
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		l.log.Error("Error iterating list items", slog.Int64("list_id", listID), slog.String("error", err.Error()))
		l.metrics.IncrementDatabaseQueries("list_get_items", false)
		return nil, custom_errors.ErrDatabaseQuery
	}

	l.metrics.IncrementDatabaseQueries("list_get_items", true)
	return items, nil
}

func (l *ListRepository) GetItem(ctx context.Context, listID, itemID int64) (*model.ListItem, error) {
	args := pgx.NamedArgs{"list_id": listID, "item_id": itemID}
	query := `SELECT id, list_id, item_id, content, date_added, date_last_used
				FROM list_items WHERE list_id = @list_id AND item_id = @item_id`

	item := &model.ListItem{}
	err := l.db.QueryRow(ctx, query, args).Scan(
		&item.ID,
		&item.ListID,
		&item.ItemID,
		&item.Content,
		&item.DateAdded,
		&item.DateLastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.log.Debug("List item not found",
				slog.Int64("list_id", listID),
				slog.Int64("item_id", itemID))
			l.metrics.IncrementDatabaseQueries("list_get_item", false)
			return nil, custom_errors.ErrListItemNotFound
		}
		l.log.Error("Error getting list item",
			slog.Int64("list_id", listID),
			slog.Int64("item_id", itemID),
			slog.String("error", err.Error()))
		l.metrics.IncrementDatabaseQueries("list_get_item", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	l.metrics.IncrementDatabaseQueries("list_get_item", true)
	return item, nil
}
