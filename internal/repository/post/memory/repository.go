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

type PostRepository struct {
	log    *logger.Logger
	mu     sync.RWMutex
	posts  map[int64]*model.Post
	nextID int64
}

func NewPostRepository(log *logger.Logger) *PostRepository {
	return &PostRepository{
		log:    log,
		posts:  make(map[int64]*model.Post),
		nextID: 1,
	}
}

// Add seeds a post, assigning an id when the post has none. Intended for
// tests and local runs.
func (p *PostRepository) Add(post *model.Post) *model.Post {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := *post
	if stored.ID == 0 {
		stored.ID = p.nextID
		p.nextID++
	} else if stored.ID >= p.nextID {
		p.nextID = stored.ID + 1
	}
	if !stored.CreatedAt.Valid {
		stored.CreatedAt = pgtype.Timestamp{Time: time.Now(), Valid: true}
	}
	p.posts[stored.ID] = &stored

	result := stored
	return &result
}

func (p *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	post, exists := p.posts[id]
	if !exists {
		p.log.Debug("Post not found by id", slog.Int64("id", id))
		return nil, custom_errors.ErrPostNotFound
	}

	result := *post
	return &result, nil
}

func (p *PostRepository) GetPublishable(ctx context.Context) ([]*model.Post, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var posts []*model.Post
	for _, post := range p.posts {
		if post.Published {
			result := *post
			posts = append(posts, &result)
		}
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (p *PostRepository) UpdateNextRun(ctx context.Context, id int64, nextRun *time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	post, exists := p.posts[id]
	if !exists {
		p.log.Debug("Post not found during UpdateNextRun", slog.Int64("id", id))
		return custom_errors.ErrPostNotFound
	}

	if nextRun == nil {
		post.NextRun = pgtype.Timestamp{}
	} else {
		post.NextRun = pgtype.Timestamp{Time: *nextRun, Valid: true}
	}
	return nil
}

func (p *PostRepository) ClearNextRun(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, post := range p.posts {
		post.NextRun = pgtype.Timestamp{}
	}
	return nil
}
