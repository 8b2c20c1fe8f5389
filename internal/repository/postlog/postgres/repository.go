package postlog_repository_postgres

import (
	"context"
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

type PostLogRepository struct {
	log     *logger.Logger
	db      db.PgDB
	metrics metrics.Provider
}

func NewPostLogRepository(db db.PgDB, log *logger.Logger, metrics metrics.Provider) *PostLogRepository {
	return &PostLogRepository{db: db, log: log, metrics: metrics}
}

func (p *PostLogRepository) Append(ctx context.Context, postID int64, lastPosted time.Time) error {
	args := pgx.NamedArgs{
		"post_id":     postID,
		"last_posted": pgtype.Timestamp{Time: lastPosted, Valid: true},
	}
	query := `INSERT INTO post_log (post_id, last_posted) VALUES (@post_id, @last_posted)`

	if _, err := p.db.Exec(ctx, query, args); err != nil {
		p.log.Error("Error appending post log",
			slog.Int64("post_id", postID),
			slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_log_append", false)
		return custom_errors.ErrDatabaseQuery
	}
	p.metrics.IncrementDatabaseQueries("post_log_append", true)
	return nil
}

func (p *PostLogRepository) GetByPost(ctx context.Context, postID int64) ([]*model.PostLog, error) {
	args := pgx.NamedArgs{"post_id": postID}
	query := `SELECT id, post_id, last_posted FROM post_log
				WHERE post_id = @post_id ORDER BY last_posted DESC`

	rows, err := p.db.Query(ctx, query, args)
	if err != nil {
		p.log.Error("Error getting post log entries",
			slog.Int64("post_id", postID),
			slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_log_get_by_post", false)
		return nil, custom_errors.ErrDatabaseQuery
	}
	defer rows.Close()

	var entries []*model.PostLog
	for rows.Next() {
		entry := &model.PostLog{}
		if err := rows.Scan(&entry.ID, &entry.PostID, &entry.LastPosted); err != nil {
			p.log.Error("Error scanning post log entry",
				slog.Int64("post_id", postID),
				slog.String("error", err.Error()))
			p.metrics.IncrementDatabaseQueries("post_log_get_by_post", false)
			return nil, custom_errors.ErrDatabaseScan
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		p.log.Error("Error iterating post log entries",
			slog.Int64("post_id", postID),
			slog.String("error", err.Error()))
		p.metrics.IncrementDatabaseQueries("post_log_get_by_post", false)
		return nil, custom_errors.ErrDatabaseQuery
	}

	p.metrics.IncrementDatabaseQueries("post_log_get_by_post", true)
	return entries, nil
}
