package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"fediclock/internal/logger"
	"fediclock/internal/model"
)

type PostLogRepository struct {
	log     *logger.Logger
	mu      sync.RWMutex
	entries []*model.PostLog
	nextID  int64
}

func NewPostLogRepository(log *logger.Logger) *PostLogRepository {
	return &PostLogRepository{
		log:    log,
		nextID: 1,
	}
}

func (p *PostLogRepository) Append(ctx context.Context, postID int64, lastPosted time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, &model.PostLog{
		ID:         p.nextID,
		PostID:     postID,
		LastPosted: pgtype.Timestamp{Time: lastPosted, Valid: true},
	})
	p.nextID++
	return nil
}

func (p *PostLogRepository) GetByPost(ctx context.Context, postID int64) ([]*model.PostLog, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var entries []*model.PostLog
	for _, entry := range p.entries {
		if entry.PostID == postID {
			result := *entry
			entries = append(entries, &result)
		}
	}
	return entries, nil
}
