package scheduler_service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fediclock/internal/config"
	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/mastodon"
	prometheus_metrics "fediclock/internal/metrics/prometheus"
	"fediclock/internal/model"
	post_memory "fediclock/internal/repository/post/memory"
	postlog_memory "fediclock/internal/repository/postlog/memory"
	token_memory "fediclock/internal/repository/token/memory"
)

type mockPoster struct {
	mock.Mock
}

func (m *mockPoster) PostStatus(ctx context.Context, token string, status mastodon.Status) error {
	args := m.Called(ctx, token, status)
	return args.Error(0)
}

type fakeUploader struct {
	mu      sync.Mutex
	mediaID string
	calls   []string
}

func (f *fakeUploader) Upload(ctx context.Context, token, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	return f.mediaID
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []string
}

func (f *fakeRenderer) Render(ctx context.Context, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, content)
	return content
}

type fixture struct {
	svc      *Service
	posts    *post_memory.PostRepository
	tokens   *token_memory.TokenRepository
	postLog  *postlog_memory.PostLogRepository
	poster   *mockPoster
	uploader *fakeUploader
	renderer *fakeRenderer
}

func newFixture(t *testing.T, cfg config.Scheduler) *fixture {
	t.Helper()
	log := logger.New("test")

	if cfg.TickInterval == 0 {
		cfg.TickInterval = 10 * time.Second
	}

	f := &fixture{
		posts:    post_memory.NewPostRepository(log),
		tokens:   token_memory.NewTokenRepository(log),
		postLog:  postlog_memory.NewPostLogRepository(log),
		poster:   &mockPoster{},
		uploader: &fakeUploader{},
		renderer: &fakeRenderer{},
	}
	f.svc = NewService(
		f.posts,
		f.tokens,
		f.postLog,
		f.renderer,
		f.uploader,
		f.poster,
		cfg,
		log,
		prometheus_metrics.NewPrometheusMetricsProvider(),
	)
	return f
}

func tokenID(id int64) *int64 { return &id }

func duePost(nextRun time.Time) *model.Post {
	return &model.Post{
		Content:      "scheduled content",
		Visibility:   model.VisibilityUnlisted,
		CronSchedule: "*/5 * * * *",
		NextRun:      pgtype.Timestamp{Time: nextRun, Valid: true},
		Published:    true,
		BotTokenID:   tokenID(1),
	}
}

func TestService_TickDispatchesDuePost(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
	post := f.posts.Add(duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	now := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	f.poster.On("PostStatus", mock.Anything, "tok1", mock.MatchedBy(func(s mastodon.Status) bool {
		return s.Status == "scheduled content" && s.Visibility == "unlisted" && s.MediaIDs == nil
	})).Return(nil).Once()

	f.svc.tick(context.Background(), now)

	f.poster.AssertExpectations(t)
	assert.Equal(t, []string{"scheduled content"}, f.renderer.rendered)

	updated, err := f.posts.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), updated.NextRun.Time)

	entries, err := f.postLog.GetByPost(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, now, entries[0].LastPosted.Time)
}

func TestService_UnpublishedPostNeverSelected(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})

	post := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	post.Published = false
	stored := f.posts.Add(post)

	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	f.poster.AssertNumberOfCalls(t, "PostStatus", 0)
	entries, err := f.postLog.GetByPost(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	updated, err := f.posts.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), updated.NextRun.Time)
}

func TestService_NullNextRunIsScheduledNotDispatched(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})

	post := duePost(time.Time{})
	post.NextRun = pgtype.Timestamp{}
	stored := f.posts.Add(post)

	firstTick := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	f.svc.tick(context.Background(), firstTick)

	// First tick only computes next_run; nothing is dispatched.
	f.poster.AssertNumberOfCalls(t, "PostStatus", 0)

	updated, err := f.posts.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	require.True(t, updated.NextRun.Valid)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), updated.NextRun.Time)

	// Once the computed instant elapses the post dispatches normally.
	f.poster.On("PostStatus", mock.Anything, "tok1", mock.Anything).Return(nil).Once()
	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 5, 1, 0, time.UTC))
	f.poster.AssertExpectations(t)
}

func TestService_InvalidScheduleIsSkipped(t *testing.T) {
	f := newFixture(t, config.Scheduler{})

	post := duePost(time.Time{})
	post.NextRun = pgtype.Timestamp{}
	post.CronSchedule = "not a schedule"
	stored := f.posts.Add(post)

	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

	f.poster.AssertNumberOfCalls(t, "PostStatus", 0)
	updated, err := f.posts.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.False(t, updated.NextRun.Valid)
}

func TestService_QuietMode(t *testing.T) {
	tests := []struct {
		name           string
		advanceOnQuiet bool
		wantNextRun    time.Time
		wantAdvanced   bool
	}{
		{
			name:           "advance on quiet",
			advanceOnQuiet: true,
			wantNextRun:    time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		},
		{
			name:           "hold next_run on quiet",
			advanceOnQuiet: false,
			wantNextRun:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.Scheduler{Quiet: true, AdvanceOnQuiet: tt.advanceOnQuiet})
			f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
			stored := f.posts.Add(duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

			now := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
			f.svc.tick(context.Background(), now)

			// Suppressed: no outbound call, but the occasion is recorded.
			f.poster.AssertNumberOfCalls(t, "PostStatus", 0)
			entries, err := f.postLog.GetByPost(context.Background(), stored.ID)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, now, entries[0].LastPosted.Time)

			updated, err := f.posts.GetByID(context.Background(), stored.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNextRun, updated.NextRun.Time)
		})
	}
}

func TestService_RejectionAdvancesWithoutPostLog(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
	stored := f.posts.Add(duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	f.poster.On("PostStatus", mock.Anything, "tok1", mock.Anything).
		Return(&custom_errors.RemoteRejectionError{StatusCode: 500}).Once()

	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

	f.poster.AssertExpectations(t)
	entries, err := f.postLog.GetByPost(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	updated, err := f.posts.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), updated.NextRun.Time)
}

func TestService_TransportErrorDoesNotBlockOtherPosts(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
	f.tokens.Add(&model.BotToken{ID: 2, Token: "tok2"})

	first := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	first.Content = "first"
	firstStored := f.posts.Add(first)

	second := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	second.Content = "second"
	second.BotTokenID = tokenID(2)
	secondStored := f.posts.Add(second)

	f.poster.On("PostStatus", mock.Anything, "tok1", mock.Anything).
		Return(errors.New("dial tcp: connection refused")).Once()
	f.poster.On("PostStatus", mock.Anything, "tok2", mock.Anything).
		Return(nil).Once()

	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

	f.poster.AssertExpectations(t)

	firstEntries, err := f.postLog.GetByPost(context.Background(), firstStored.ID)
	require.NoError(t, err)
	assert.Empty(t, firstEntries)

	secondEntries, err := f.postLog.GetByPost(context.Background(), secondStored.ID)
	require.NoError(t, err)
	assert.Len(t, secondEntries, 1)
}

func TestService_CancellationFinishesInFlightDispatch(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
	f.tokens.Add(&model.BotToken{ID: 2, Token: "tok2"})

	first := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	first.Content = "first"
	firstStored := f.posts.Add(first)

	second := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	second.Content = "second"
	second.BotTokenID = tokenID(2)
	secondStored := f.posts.Add(second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown arrives while the first dispatch is on the wire. The
	// request context must stay live so the dispatch can complete.
	f.poster.On("PostStatus", mock.Anything, "tok1", mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			callCtx := args.Get(0).(context.Context)
			assert.NoError(t, callCtx.Err())
		}).Return(nil).Once()

	f.svc.tick(ctx, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

	f.poster.AssertNumberOfCalls(t, "PostStatus", 1)

	// The first post finished completely: log entry written, schedule
	// advanced.
	entries, err := f.postLog.GetByPost(context.Background(), firstStored.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	updated, err := f.posts.GetByID(context.Background(), firstStored.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), updated.NextRun.Time)

	// The second post was never started and keeps its state.
	secondEntries, err := f.postLog.GetByPost(context.Background(), secondStored.ID)
	require.NoError(t, err)
	assert.Empty(t, secondEntries)

	updatedSecond, err := f.posts.GetByID(context.Background(), secondStored.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), updatedSecond.NextRun.Time)
}

func TestService_PanicBecomesFailedOutcome(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
	stored := f.posts.Add(duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	f.poster.On("PostStatus", mock.Anything, "tok1", mock.Anything).
		Run(func(mock.Arguments) { panic("dispatch exploded") }).
		Return(nil).Once()

	outcome := f.svc.processPost(context.Background(), stored, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, OutcomeFailed, outcome)

	// The post's state is untouched: no log entry, next_run as it was,
	// so it is re-evaluated next tick.
	entries, err := f.postLog.GetByPost(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	updated, err := f.posts.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), updated.NextRun.Time)
}

func TestService_PanicDoesNotBlockOtherPosts(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})
	f.tokens.Add(&model.BotToken{ID: 2, Token: "tok2"})

	first := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	first.Content = "first"
	f.posts.Add(first)

	second := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	second.Content = "second"
	second.BotTokenID = tokenID(2)
	secondStored := f.posts.Add(second)

	f.poster.On("PostStatus", mock.Anything, "tok1", mock.Anything).
		Run(func(mock.Arguments) { panic("dispatch exploded") }).
		Return(nil).Once()
	f.poster.On("PostStatus", mock.Anything, "tok2", mock.Anything).
		Return(nil).Once()

	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

	f.poster.AssertExpectations(t)

	secondEntries, err := f.postLog.GetByPost(context.Background(), secondStored.ID)
	require.NoError(t, err)
	assert.Len(t, secondEntries, 1)
}

func TestService_MissingCredential(t *testing.T) {
	tests := []struct {
		name       string
		botTokenID *int64
	}{
		{name: "no token id", botTokenID: nil},
		{name: "token lookup fails", botTokenID: tokenID(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.Scheduler{})

			post := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			post.BotTokenID = tt.botTokenID
			stored := f.posts.Add(post)

			f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

			f.poster.AssertNumberOfCalls(t, "PostStatus", 0)
			entries, err := f.postLog.GetByPost(context.Background(), stored.ID)
			require.NoError(t, err)
			assert.Empty(t, entries)

			// The schedule still advances so the post is not stuck.
			updated, err := f.posts.GetByID(context.Background(), stored.ID)
			require.NoError(t, err)
			assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), updated.NextRun.Time)
		})
	}
}

func TestService_MediaUpload(t *testing.T) {
	tests := []struct {
		name         string
		mediaID      string
		wantMediaIDs []string
	}{
		{name: "upload succeeds", mediaID: "m-1", wantMediaIDs: []string{"m-1"}},
		{name: "upload degrades to text-only", mediaID: "", wantMediaIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.Scheduler{})
			f.uploader.mediaID = tt.mediaID
			f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})

			mediaPath := "/var/media/cat.png"
			post := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			post.MediaPath = &mediaPath
			f.posts.Add(post)

			f.poster.On("PostStatus", mock.Anything, "tok1", mock.MatchedBy(func(s mastodon.Status) bool {
				return assert.ObjectsAreEqual(tt.wantMediaIDs, s.MediaIDs)
			})).Return(nil).Once()

			f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

			f.poster.AssertExpectations(t)
			assert.Equal(t, []string{mediaPath}, f.uploader.calls)
		})
	}
}

func TestService_SpoilerAndSensitiveMetadata(t *testing.T) {
	f := newFixture(t, config.Scheduler{})
	f.tokens.Add(&model.BotToken{ID: 1, Token: "tok1"})

	spoiler := "content warning"
	post := duePost(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	post.Sensitive = true
	post.SpoilerText = &spoiler
	f.posts.Add(post)

	f.poster.On("PostStatus", mock.Anything, "tok1", mock.MatchedBy(func(s mastodon.Status) bool {
		return s.Sensitive && s.SpoilerText == "content warning"
	})).Return(nil).Once()

	f.svc.tick(context.Background(), time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))
	f.poster.AssertExpectations(t)
}

func TestService_StartGuard(t *testing.T) {
	f := newFixture(t, config.Scheduler{TickInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan error, 1)
	go func() {
		started <- f.svc.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return f.svc.started.Load()
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.svc.Start(ctx), custom_errors.ErrSchedulerAlreadyRunning)

	cancel()
	require.NoError(t, <-started)
	assert.False(t, f.svc.started.Load())
}
