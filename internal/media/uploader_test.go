package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fediclock/internal/config"
	"fediclock/internal/logger"
	"fediclock/internal/mastodon"
	prometheus_metrics "fediclock/internal/metrics/prometheus"
)

// pngHeader is enough of a real PNG for content-based MIME detection.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func writeTempPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attachment.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))
	return path
}

func newUploader(t *testing.T, handler http.Handler) *Uploader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.New("test")
	client := mastodon.NewClient(config.Mastodon{
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
	}, log)
	return NewUploader(client, log, prometheus_metrics.NewPrometheusMetricsProvider())
}

func TestUploader_Upload(t *testing.T) {
	var gotContentType string
	uploader := newUploader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		gotContentType = header.Header.Get("Content-Type")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m-77"}`))
	}))

	mediaID := uploader.Upload(context.Background(), "tok", writeTempPNG(t))
	assert.Equal(t, "m-77", mediaID)
	assert.Equal(t, "image/png", gotContentType)
}

func TestUploader_Upload_MissingFile(t *testing.T) {
	uploader := newUploader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when the file cannot be opened")
	}))

	mediaID := uploader.Upload(context.Background(), "tok", "/nonexistent/file.png")
	assert.Equal(t, "", mediaID)
}

func TestUploader_Upload_RemoteRejection(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{name: "validation rejection", statusCode: http.StatusUnprocessableEntity},
		{name: "server error", statusCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := newUploader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			mediaID := uploader.Upload(context.Background(), "tok", writeTempPNG(t))
			assert.Equal(t, "", mediaID)
		})
	}
}
