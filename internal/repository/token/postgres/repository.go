package token_repository_postgres

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

type TokenRepository struct {
	log     *logger.Logger
	db      db.PgDB
	metrics metrics.Provider
}

func NewTokenRepository(db db.PgDB, log *logger.Logger, metrics metrics.Provider) *TokenRepository {
	return &TokenRepository{db: db, log: log, metrics: metrics}
}

func (t *TokenRepository) GetByID(ctx context.Context, id int64) (*model.BotToken, error) {
	args := pgx.NamedArgs{"id": id}
	query := `SELECT id, token, description FROM bot_tokens WHERE id = @id`

	token := &model.BotToken{}
	err := t.db.QueryRow(ctx, query, args).Scan(
		&token.ID,
		&token.Token,
		&token.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			t.log.Debug("Bot token not found by id", slog.Int64("id", id))
			t.metrics.IncrementDatabaseQueries("token_get_by_id", false)
			return nil, custom_errors.ErrTokenNotFound
		}
		t.log.Error("Error getting bot token by id", slog.Int64("id", id), slog.String("error", err.Error()))
		t.metrics.IncrementDatabaseQueries("token_get_by_id", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	t.metrics.IncrementDatabaseQueries("token_get_by_id", true)
	return token, nil
}
