package scheduler_service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"fediclock/internal/config"
	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/mastodon"
	"fediclock/internal/metrics"
	"fediclock/internal/model"
	post_repository "fediclock/internal/repository/post"
	postlog_repository "fediclock/internal/repository/postlog"
	token_repository "fediclock/internal/repository/token"
	"fediclock/internal/schedule"
)

// StatusPoster dispatches a finalized status to the remote API.
type StatusPoster interface {
	PostStatus(ctx context.Context, token string, status mastodon.Status) error
}

// MediaUploader turns a local media path into a remote media handle, or
// the empty string when the upload failed and the post should go out
// text-only.
type MediaUploader interface {
	Upload(ctx context.Context, token, path string) string
}

// ContentRenderer resolves embedded commands in a post's content template.
type ContentRenderer interface {
	Render(ctx context.Context, content string) string
}

type Service struct {
	posts    post_repository.Repository
	tokens   token_repository.Repository
	postLog  postlog_repository.Repository
	renderer ContentRenderer
	uploader MediaUploader
	poster   StatusPoster
	cfg      config.Scheduler
	log      *logger.Logger
	metrics  metrics.Provider

	started atomic.Bool
}

func NewService(
	posts post_repository.Repository,
	tokens token_repository.Repository,
	postLog postlog_repository.Repository,
	renderer ContentRenderer,
	uploader MediaUploader,
	poster StatusPoster,
	cfg config.Scheduler,
	log *logger.Logger,
	metrics metrics.Provider,
) *Service {
	return &Service{
		posts:    posts,
		tokens:   tokens,
		postLog:  postLog,
		renderer: renderer,
		uploader: uploader,
		poster:   poster,
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
	}
}

// Start runs the scheduling loop until ctx is cancelled. A second
// concurrent Start returns ErrSchedulerAlreadyRunning. An in-flight post
// finishes its dispatch before the loop exits.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return custom_errors.ErrSchedulerAlreadyRunning
	}
	defer s.started.Store(false)

	s.log.Info("Scheduler started",
		slog.Duration("tick_interval", s.cfg.TickInterval),
		slog.Bool("quiet", s.cfg.Quiet))

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// tick runs one scan-and-dispatch cycle against the supplied clock
// reading. Posts are processed sequentially; one post's failure never
// reaches another post.
func (s *Service) tick(ctx context.Context, now time.Time) {
	s.metrics.IncrementSchedulerTicks()
	started := time.Now()
	defer func() {
		s.metrics.RecordTickDuration(time.Since(started))
	}()

	publishable, err := s.posts.GetPublishable(ctx)
	if err != nil {
		s.log.Error("Failed to load publishable posts", slog.String("error", err.Error()))
		return
	}
	s.log.Debug("Checking scheduled posts", slog.Int("count", len(publishable)))

	due := s.selectDue(ctx, publishable, now)
	s.metrics.SetDuePosts(len(due))

	// Cancellation exits only between posts. A post already picked up
	// runs on a detached context so an in-flight dispatch completes and
	// its next_run and post log writes land; the http client timeout
	// still bounds the request.
	dispatchCtx := context.WithoutCancel(ctx)
	for _, post := range due {
		if ctx.Err() != nil {
			return
		}
		outcome := s.processPost(dispatchCtx, post, now)
		s.metrics.IncrementDispatchOutcomes(string(outcome))
	}
}

// selectDue returns the due subset of publishable posts. A post with no
// next_run gets one computed and persisted instead; it becomes eligible on
// a later tick, never the tick that first scheduled it.
func (s *Service) selectDue(ctx context.Context, publishable []*model.Post, now time.Time) []*model.Post {
	var due []*model.Post
	for _, post := range publishable {
		if !post.NextRun.Valid {
			s.scheduleNextRun(ctx, post, now)
			continue
		}
		if !post.NextRun.Time.After(now) {
			s.log.Debug("Post is due",
				slog.Int64("post_id", post.ID),
				slog.Time("next_run", post.NextRun.Time))
			due = append(due, post)
		}
	}
	return due
}

// scheduleNextRun computes and persists next_run for a post that has none.
// An unparseable schedule disables the post until it is corrected
// externally.
func (s *Service) scheduleNextRun(ctx context.Context, post *model.Post, now time.Time) {
	next, err := schedule.Next(post.CronSchedule, now)
	if err != nil {
		s.log.Error("Post has invalid cron schedule",
			slog.Int64("post_id", post.ID),
			slog.String("cron_schedule", post.CronSchedule),
			slog.String("error", err.Error()))
		return
	}
	if err := s.posts.UpdateNextRun(ctx, post.ID, &next); err != nil {
		s.log.Error("Failed to persist next_run",
			slog.Int64("post_id", post.ID),
			slog.String("error", err.Error()))
		return
	}
	s.log.Debug("Post scheduled",
		slog.Int64("post_id", post.ID),
		slog.Time("next_run", next))
}
