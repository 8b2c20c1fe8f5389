package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"fediclock/internal/config"
	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
)

// Client talks to the remote posting API. Every request carries a bearer
// credential chosen per post; the client itself holds no token.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.Mastodon, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		log:     log,
	}
}

// HTTPClient exposes the underlying timeout-bounded client so other
// outbound calls (the dynamic command) share the same transport limits.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

type Status struct {
	Status      string   `json:"status"`
	Sensitive   bool     `json:"sensitive"`
	SpoilerText string   `json:"spoiler_text"`
	Visibility  string   `json:"visibility"`
	MediaIDs    []string `json:"media_ids,omitempty"`
}

// PostStatus publishes a finalized status. Any 2xx response counts as
// posted; everything else is a RemoteRejectionError carrying the status.
func (c *Client) PostStatus(ctx context.Context, token string, status Status) error {
	body, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/statuses", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("Status rejected by remote", slog.Int("status_code", resp.StatusCode))
		return &custom_errors.RemoteRejectionError{StatusCode: resp.StatusCode}
	}

	c.log.Debug("Status accepted by remote", slog.Int("status_code", resp.StatusCode))
	return nil
}

type mediaResponse struct {
	ID string `json:"id"`
}

// UploadMedia sends one file as multipart form data to the media endpoint.
// 200 means processed, 202 means accepted pending processing; both return
// the media id. 422 is the remote's validation rejection for unsupported
// media.
func (c *Client) UploadMedia(ctx context.Context, token, filename, contentType string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copying media into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/media", &buf)
	if err != nil {
		return "", fmt.Errorf("building media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading media: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
	case http.StatusUnprocessableEntity:
		c.log.Warn("Media rejected by remote as unsupported", slog.String("file", filename))
		return "", fmt.Errorf("%w: %s", custom_errors.ErrMediaUnsupported, filename)
	default:
		c.log.Warn("Media upload failed",
			slog.String("file", filename),
			slog.Int("status_code", resp.StatusCode))
		return "", &custom_errors.RemoteRejectionError{StatusCode: resp.StatusCode}
	}

	var media mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return "", fmt.Errorf("decoding media response: %w", err)
	}
	if media.ID == "" {
		return "", fmt.Errorf("media response missing id field")
	}

	c.log.Debug("Media uploaded",
		slog.String("file", filename),
		slog.String("media_id", media.ID))
	return media.ID, nil
}
