package scheduler_service

import (
	"context"
	"log/slog"
	"time"

	"fediclock/internal/custom_errors"
	"fediclock/internal/mastodon"
	"fediclock/internal/model"
	"fediclock/internal/schedule"
)

// Outcome is the terminal per-tick state of one due post. None of these
// are terminal for the post itself; it returns to scheduled for its next
// occurrence.
type Outcome string

const (
	OutcomePosted     Outcome = "posted"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeRejected   Outcome = "rejected"
	OutcomeFailed     Outcome = "failed"
)

// processPost runs the full per-post pipeline: credential resolution,
// command interpretation, media upload, dispatch, logging. It is the
// failure boundary for one post; a panic anywhere inside becomes
// OutcomeFailed and the post is re-evaluated next tick with its state
// untouched.
func (s *Service) processPost(ctx context.Context, post *model.Post, now time.Time) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Panic while processing post",
				slog.Int64("post_id", post.ID),
				slog.Any("panic", r))
			outcome = OutcomeFailed
		}
	}()

	token, err := s.resolveToken(ctx, post)
	if err != nil {
		s.log.Error("Dispatch rejected: no usable credential",
			slog.Int64("post_id", post.ID),
			slog.String("error", err.Error()))
		s.advanceNextRun(ctx, post, now)
		return OutcomeRejected
	}

	content := s.renderer.Render(ctx, post.Content)

	// Quiet mode is checked before media upload so no request reaches the
	// remote at all, yet the posting occasion is still recorded.
	if s.cfg.Quiet {
		s.log.Warn("Quiet mode enabled, status not posted", slog.Int64("post_id", post.ID))
		s.recordPostLog(ctx, post, now)
		if s.cfg.AdvanceOnQuiet {
			s.advanceNextRun(ctx, post, now)
		}
		return OutcomeSuppressed
	}

	var mediaIDs []string
	if post.MediaPath != nil && *post.MediaPath != "" {
		if mediaID := s.uploader.Upload(ctx, token, *post.MediaPath); mediaID != "" {
			mediaIDs = append(mediaIDs, mediaID)
		}
	}

	status := mastodon.Status{
		Status:     content,
		Sensitive:  post.Sensitive,
		Visibility: string(post.Visibility),
		MediaIDs:   mediaIDs,
	}
	if post.SpoilerText != nil {
		status.SpoilerText = *post.SpoilerText
	}

	if err := s.poster.PostStatus(ctx, token, status); err != nil {
		if statusCode, ok := custom_errors.IsRemoteRejection(err); ok {
			s.log.Error("Status rejected by remote",
				slog.Int64("post_id", post.ID),
				slog.Int("status_code", statusCode))
		} else {
			s.log.Error("Status dispatch failed",
				slog.Int64("post_id", post.ID),
				slog.String("error", err.Error()))
		}
		// The schedule still advances so a rejecting or unreachable
		// remote cannot pin this post to every tick.
		s.advanceNextRun(ctx, post, now)
		return OutcomeRejected
	}

	s.log.Info("Status posted",
		slog.Int64("post_id", post.ID),
		slog.Time("posted_at", now))
	s.advanceNextRun(ctx, post, now)
	s.recordPostLog(ctx, post, now)
	return OutcomePosted
}

func (s *Service) resolveToken(ctx context.Context, post *model.Post) (string, error) {
	if post.BotTokenID == nil {
		return "", custom_errors.ErrCredentialMissing
	}
	token, err := s.tokens.GetByID(ctx, *post.BotTokenID)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

// advanceNextRun recomputes next_run from the current tick's clock. A
// failure here is logged but does not change the post's outcome; the
// stale next_run simply makes the post due again next tick.
func (s *Service) advanceNextRun(ctx context.Context, post *model.Post, now time.Time) {
	next, err := schedule.Next(post.CronSchedule, now)
	if err != nil {
		s.log.Error("Failed to recompute next_run",
			slog.Int64("post_id", post.ID),
			slog.String("cron_schedule", post.CronSchedule),
			slog.String("error", err.Error()))
		return
	}
	if err := s.posts.UpdateNextRun(ctx, post.ID, &next); err != nil {
		s.log.Error("Failed to persist recomputed next_run",
			slog.Int64("post_id", post.ID),
			slog.String("error", err.Error()))
		return
	}
	s.log.Debug("Post next_run advanced",
		slog.Int64("post_id", post.ID),
		slog.Time("next_run", next))
}

func (s *Service) recordPostLog(ctx context.Context, post *model.Post, now time.Time) {
	if err := s.postLog.Append(ctx, post.ID, now); err != nil {
		s.log.Error("Failed to append post log",
			slog.Int64("post_id", post.ID),
			slog.String("error", err.Error()))
	}
}
