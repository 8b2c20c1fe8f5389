package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"fediclock/internal/logger"
	"fediclock/internal/mastodon"
	"fediclock/internal/metrics"
)

// Uploader pushes a post's local attachment to the remote media endpoint.
// Every failure degrades to "no media": the post still goes out text-only.
type Uploader struct {
	client  *mastodon.Client
	log     *logger.Logger
	metrics metrics.Provider
}

func NewUploader(client *mastodon.Client, log *logger.Logger, metrics metrics.Provider) *Uploader {
	return &Uploader{
		client:  client,
		log:     log,
		metrics: metrics,
	}
}

// Upload reads the file at path, sniffs its MIME type from the content and
// uploads it under the given credential. The returned handle is empty when
// anything failed; Upload never returns an error to its caller's pipeline.
func (u *Uploader) Upload(ctx context.Context, token, path string) string {
	file, err := os.Open(path)
	if err != nil {
		u.log.Warn("Failed to open media file", slog.String("path", path), slog.String("error", err.Error()))
		u.metrics.IncrementMediaUploads(false)
		return ""
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		u.log.Warn("Failed to detect media type", slog.String("path", path), slog.String("error", err.Error()))
		u.metrics.IncrementMediaUploads(false)
		return ""
	}

	// DetectReader consumed a prefix of the file; rewind before upload.
	if _, err := file.Seek(0, 0); err != nil {
		u.log.Warn("Failed to rewind media file", slog.String("path", path), slog.String("error", err.Error()))
		u.metrics.IncrementMediaUploads(false)
		return ""
	}

	mediaID, err := u.client.UploadMedia(ctx, token, filepath.Base(path), mtype.String(), file)
	if err != nil {
		u.log.Warn("Media upload failed, dispatching text-only",
			slog.String("path", path),
			slog.String("error", err.Error()))
		u.metrics.IncrementMediaUploads(false)
		return ""
	}

	u.log.Info("Media uploaded",
		slog.String("path", path),
		slog.String("media_id", mediaID),
		slog.String("mime_type", mtype.String()))
	u.metrics.IncrementMediaUploads(true)
	return mediaID
}
