package post_repository_postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/metrics"
	"fediclock/internal/model"
	"fediclock/internal/repository/postgres/db"
)

type PostRepository struct {
	log     *logger.Logger
	db      db.PgDB
	metrics metrics.Provider
}

func NewPostRepository(db db.PgDB, log *logger.Logger, metrics metrics.Provider) *PostRepository {
	return &PostRepository{db: db, log: log, metrics: metrics}
}

const postColumns = `id, content, sensitive, spoiler_text, visibility,
			cron_schedule, next_run, published, bot_token_id, media_path, created_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	post := &model.Post{}
	var visibility string
	err := row.Scan(
		&post.ID,
		&post.Content,
		&post.Sensitive,
		&post.SpoilerText,
		&visibility,
		&post.CronSchedule,
		&post.NextRun,
		&post.Published,
		&post.BotTokenID,
		&post.MediaPath,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// A row with a visibility outside the known set must not reach the
	// remote API with that value.
	if err := post.Visibility.UnmarshalText([]byte(visibility)); err != nil {
		return nil, err
	}
	return post, nil
}

func (p *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	args := pgx.NamedArgs{"id": id}
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = @id`

	post, err := scanPost(p.db.QueryRow(ctx, query, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			p.log.Debug("Post not found by id", slog.Int64("id", id), slog.String("error", err.Error()))
			p.metrics.IncrementDatabaseQueries("post_get_by_id", false)
			return nil, custom_errors.ErrPostNotFound
		}
		p.log.Error("Error getting post by id", slog.Int64("id", id), slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_get_by_id", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	p.metrics.IncrementDatabaseQueries("post_get_by_id", true)
	return post, nil
}

func (p *PostRepository) GetPublishable(ctx context.Context) ([]*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE published = true ORDER BY id`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		p.log.Error("Error getting publishable posts", slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_get_publishable", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			p.log.Error("Error scanning post during GetPublishable", slog.String("error", err.Error()))
			p.metrics.IncrementDatabaseQueries("post_get_publishable", false)
			return nil, custom_errors.ErrDatabaseScan
		}
		posts = append(posts, post)
	}

	if err = rows.Err(); err != nil {
		p.log.Error("Error iterating rows during GetPublishable", slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_get_publishable", false)
		return nil, custom_errors.ErrDatabaseQuery
	}

	p.metrics.IncrementDatabaseQueries("post_get_publishable", true)
	return posts, nil
}

func (p *PostRepository) UpdateNextRun(ctx context.Context, id int64, nextRun *time.Time) error {
	next := pgtype.Timestamp{}
	if nextRun != nil {
		next = pgtype.Timestamp{Time: *nextRun, Valid: true}
	}

	args := pgx.NamedArgs{"id": id, "next_run": next}
	query := `UPDATE posts SET next_run = @next_run WHERE id = @id`

	tag, err := p.db.Exec(ctx, query, args)
	if err != nil {
		p.log.Error("Error updating post next_run", slog.Int64("id", id), slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_update_next_run", false)
		return custom_errors.ErrDatabaseQuery
	}
	if tag.RowsAffected() == 0 {
		p.log.Debug("Post not found during UpdateNextRun", slog.Int64("id", id))
		p.metrics.IncrementDatabaseQueries("post_update_next_run", false)
		return custom_errors.ErrPostNotFound
	}
	p.metrics.IncrementDatabaseQueries("post_update_next_run", true)
	return nil
}

func (p *PostRepository) ClearNextRun(ctx context.Context) error {
	query := `UPDATE posts SET next_run = NULL`

	if _, err := p.db.Exec(ctx, query); err != nil {
		p.log.Error("Error clearing next_run", slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_clear_next_run", false)
		return custom_errors.ErrDatabaseQuery
	}
	p.metrics.IncrementDatabaseQueries("post_clear_next_run", true)
	return nil
}
