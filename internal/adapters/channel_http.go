package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
	"feedstock/internal/shared"
	"feedstock/internal/types"
)

// ChannelHTTPAdapter publishes builds to a remote channel server over
// HTTP.  Uploads are retried with exponential backoff; authentication
// is basic auth with an API key.
type ChannelHTTPAdapter struct {
	Endpoint   string
	Channel    string
	Username   string
	APIKey     string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

const defaultChannelTimeout = 60 * time.Second
const defaultChannelRetries = 3
const defaultChannelRetryDelay = 200 * time.Millisecond
const maxChannelRetryDelay = 2 * time.Second

func NewChannelHTTPAdapter(endpoint string, channel string, username string, apiKey string, timeoutSec int, retries int, retryDelayMs int) ChannelHTTPAdapter {
	return ChannelHTTPAdapter{
		Endpoint:   endpoint,
		Channel:    channel,
		Username:   username,
		APIKey:     apiKey,
		Timeout:    normalizeChannelTimeout(timeoutSec),
		Retries:    normalizeChannelRetries(retries),
		RetryDelay: normalizeChannelRetryDelay(retryDelayMs),
	}
}

func (a ChannelHTTPAdapter) Upload(ctx context.Context, intent types.UploadIntent, artifactPath string) error {
	if err := a.checkTarget(); err != nil {
		return err
	}
	if strings.TrimSpace(intent.BuildID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build id is empty")
	}
	var lastErr error
	for attempt := 0; attempt < a.Retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retry, err := a.uploadOnce(ctx, intent, artifactPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == a.Retries-1 {
			return err
		}
		time.Sleep(a.retryDelay(attempt))
	}
	if lastErr == nil {
		lastErr = errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel upload failed")
	}
	return lastErr
}

func (a ChannelHTTPAdapter) uploadOnce(ctx context.Context, intent types.UploadIntent, artifactPath string) (bool, error) {
	file, err := os.Open(artifactPath)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("artifact not found").
			WithCause(err)
	}
	defer file.Close()

	uploadURL := fmt.Sprintf("%s/channels/%s/%s/%s",
		a.endpoint(),
		url.PathEscape(a.Channel),
		url.PathEscape(intent.Subdir),
		url.PathEscape(intent.BuildID+".tar.zst"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create channel request").
			WithCause(err)
	}
	req.Header.Set("Content-Type", "application/zstd")
	req.Header.Set("X-Build-Id", intent.BuildID)
	req.Header.Set("X-Build-Sha256", intent.SHA256)
	if intent.Label != "" {
		req.Header.Set("X-Build-Label", intent.Label)
	}
	a.applyBasicAuth(req)
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return true, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel upload failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	body, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(body))
	if resp.StatusCode == http.StatusConflict {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("build already exists")
	}
	retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	return retry, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("channel upload failed").
		WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, uploadURL, message))
}

func (a ChannelHTTPAdapter) Promote(ctx context.Context, buildID string, label string) error {
	if err := a.checkTarget(); err != nil {
		return err
	}
	if strings.TrimSpace(buildID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build id is empty")
	}
	if strings.TrimSpace(label) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("label is empty")
	}
	promoteURL := fmt.Sprintf("%s/channels/%s/labels/%s",
		a.endpoint(),
		url.PathEscape(a.Channel),
		url.PathEscape(label),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, promoteURL, strings.NewReader(buildID))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create channel request").
			WithCause(err)
	}
	req.Header.Set("Content-Type", "text/plain")
	a.applyBasicAuth(req)
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel promote failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("build not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel promote failed").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, promoteURL, string(body)))
	}
	return nil
}

func (a ChannelHTTPAdapter) ListBuilds(ctx context.Context) ([]types.BuildInfo, error) {
	if err := a.checkTarget(); err != nil {
		return nil, err
	}
	listURL := fmt.Sprintf("%s/channels/%s/builds", a.endpoint(), url.PathEscape(a.Channel))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create channel request").
			WithCause(err)
	}
	a.applyBasicAuth(req)
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel list builds failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel list builds failed").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, listURL, string(body)))
	}
	return decodeChannelBuilds(a.Channel, body)
}

func (a ChannelHTTPAdapter) DeleteBuild(ctx context.Context, buildID string) error {
	if err := a.checkTarget(); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(buildID)
	if trimmed == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build id is empty")
	}
	deleteURL := fmt.Sprintf("%s/channels/%s/builds/%s",
		a.endpoint(),
		url.PathEscape(a.Channel),
		url.PathEscape(trimmed),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create channel request").
			WithCause(err)
	}
	a.applyBasicAuth(req)
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel delete build failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel delete build failed").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, deleteURL, string(body)))
	}
	return nil
}

func (a ChannelHTTPAdapter) endpoint() string {
	return strings.TrimRight(strings.TrimSpace(a.Endpoint), "/")
}

func (a ChannelHTTPAdapter) checkTarget() error {
	if a.endpoint() == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel endpoint is empty")
	}
	if strings.TrimSpace(a.Channel) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel name is empty")
	}
	return nil
}

func (a ChannelHTTPAdapter) applyBasicAuth(req *http.Request) {
	if strings.TrimSpace(a.APIKey) == "" {
		return
	}
	user := strings.TrimSpace(a.Username)
	if user == "" {
		user = "api"
	}
	req.SetBasicAuth(user, a.APIKey)
}

func (a ChannelHTTPAdapter) retryDelay(attempt int) time.Duration {
	delay := a.RetryDelay * time.Duration(1<<attempt)
	if delay > maxChannelRetryDelay {
		delay = maxChannelRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func normalizeChannelTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultChannelTimeout
	}
	return timeout
}

func normalizeChannelRetries(value int) int {
	if value <= 0 {
		return defaultChannelRetries
	}
	return value
}

func normalizeChannelRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultChannelRetryDelay
	}
	return delay
}

func decodeChannelBuilds(channel string, body []byte) ([]types.BuildInfo, error) {
	var payload []struct {
		BuildID   string `json:"build_id"`
		Label     string `json:"label"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid channel build listing").
			WithCause(err)
	}
	var builds []types.BuildInfo
	for _, entry := range payload {
		if strings.TrimSpace(entry.BuildID) == "" {
			continue
		}
		build := types.BuildInfo{
			Channel: channel,
			BuildID: entry.BuildID,
			Label:   entry.Label,
			Prefix:  buildPrefix(entry.BuildID),
		}
		if entry.CreatedAt != "" {
			if stamp, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
				build.CreatedAt = stamp.UTC()
			}
		}
		builds = append(builds, build)
	}
	return builds, nil
}

var _ ports.ChannelPort = ChannelHTTPAdapter{}
