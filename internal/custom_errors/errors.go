package custom_errors

import (
	"errors"
	"fmt"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrListNotFound     = errors.New("list not found")
	ErrListEmpty        = errors.New("list has no items")
	ErrListItemNotFound = errors.New("list item not found")
	ErrTokenNotFound    = errors.New("bot token not found")

	ErrInvalidSchedule   = errors.New("invalid cron schedule")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrCredentialMissing = errors.New("bot credential missing")
	ErrMediaUnsupported  = errors.New("media rejected by remote")

	ErrDatabaseQuery = errors.New("database query error")
	ErrDatabaseScan  = errors.New("database scan error")
	ErrCacheMiss     = errors.New("cache miss")

	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

// RemoteRejectionError is returned when the posting or media API answers
// with a non-2xx status. The schedule still advances on this error so a
// rejecting remote cannot jam a post into retrying every tick.
type RemoteRejectionError struct {
	StatusCode int
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("remote rejected request with status %d", e.StatusCode)
}

// IsRemoteRejection reports whether err is a RemoteRejectionError and, if
// so, returns the remote status code.
func IsRemoteRejection(err error) (int, bool) {
	var rejection *RemoteRejectionError
	if errors.As(err, &rejection) {
		return rejection.StatusCode, true
	}
	return 0, false
}
