package post_repository_postgres

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	"fediclock/internal/model"
)

type recordingMetrics struct {
	mu      sync.Mutex
	queries map[string]bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{queries: make(map[string]bool)}
}

func (r *recordingMetrics) IncrementDatabaseQueries(queryType string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[queryType] = success
}

func (r *recordingMetrics) IncrementSchedulerTicks()                 {}
func (r *recordingMetrics) RecordTickDuration(time.Duration)         {}
func (r *recordingMetrics) SetDuePosts(int)                          {}
func (r *recordingMetrics) IncrementDispatchOutcomes(string)         {}
func (r *recordingMetrics) IncrementCommandEvaluations(string, bool) {}
func (r *recordingMetrics) IncrementMediaUploads(bool)               {}
func (r *recordingMetrics) IncrementCacheHits()                      {}
func (r *recordingMetrics) IncrementCacheMisses()                    {}
func (r *recordingMetrics) SetServiceHealth(bool)                    {}

type stubRow struct {
	values []any
	err    error
}

func (r *stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if r.values[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type stubDB struct {
	row     pgx.Row
	execTag pgconn.CommandTag
	execErr error
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.row
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.execTag, s.execErr
}

func postRow(visibility string) *stubRow {
	return &stubRow{values: []any{
		int64(7),
		"scheduled content",
		false,
		nil,
		visibility,
		"*/5 * * * *",
		pgtype.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true},
		true,
		nil,
		nil,
		pgtype.Timestamp{Time: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), Valid: true},
	}}
}

func TestPostRepository_GetByID(t *testing.T) {
	tests := []struct {
		name        string
		row         *stubRow
		wantErr     error
		wantSuccess bool
	}{
		{
			name:        "found",
			row:         postRow("public"),
			wantSuccess: true,
		},
		{
			name:    "not found",
			row:     &stubRow{err: pgx.ErrNoRows},
			wantErr: custom_errors.ErrPostNotFound,
		},
		{
			name:    "query failure",
			row:     &stubRow{err: errors.New("conn closed")},
			wantErr: custom_errors.ErrDatabaseQuery,
		},
		{
			// A stored visibility outside the known set must not pass
			// through to the remote API.
			name:    "unknown visibility rejected",
			row:     postRow("followers"),
			wantErr: custom_errors.ErrDatabaseQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newRecordingMetrics()
			repo := NewPostRepository(&stubDB{row: tt.row}, logger.New("test"), metrics)

			post, err := repo.GetByID(context.Background(), 7)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(7), post.ID)
				assert.Equal(t, "scheduled content", post.Content)
				assert.Equal(t, model.VisibilityPublic, post.Visibility)
			}
			assert.Equal(t, map[string]bool{"post_get_by_id": tt.wantSuccess}, metrics.queries)
		})
	}
}

func TestPostRepository_UpdateNextRun(t *testing.T) {
	tests := []struct {
		name        string
		tag         pgconn.CommandTag
		execErr     error
		wantErr     error
		wantSuccess bool
	}{
		{
			name:        "updated",
			tag:         pgconn.NewCommandTag("UPDATE 1"),
			wantSuccess: true,
		},
		{
			name:    "no such post",
			tag:     pgconn.NewCommandTag("UPDATE 0"),
			wantErr: custom_errors.ErrPostNotFound,
		},
		{
			name:    "exec failure",
			execErr: errors.New("conn closed"),
			wantErr: custom_errors.ErrDatabaseQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newRecordingMetrics()
			repo := NewPostRepository(&stubDB{execTag: tt.tag, execErr: tt.execErr}, logger.New("test"), metrics)

			next := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
			err := repo.UpdateNextRun(context.Background(), 7, &next)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, map[string]bool{"post_update_next_run": tt.wantSuccess}, metrics.queries)
		})
	}
}
