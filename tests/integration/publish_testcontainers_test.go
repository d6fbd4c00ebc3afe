//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"feedstock/internal/adapters"
	"feedstock/internal/app"
	"feedstock/tests/testutil"
)

type channelRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
}

// TestE2EChannelPublishWithTestcontainers runs the full index, build,
// publish flow against containerized mock servers: one serving channel
// repodata and a pip simple index, one recording channel uploads.
func TestE2EChannelPublishWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers e2e in short mode")
	}

	ctx := t.Context()
	channelEndpoint, channelCleanup := startChannelMock(ctx, t)
	t.Cleanup(channelCleanup)
	repodataEndpoint, repodataCleanup := startRepodataServer(ctx, t)
	t.Cleanup(repodataCleanup)

	root := testutil.RepoRoot(t)
	outputDir := t.TempDir()
	indexPath := filepath.Join(outputDir, "channel-index.yaml")

	service := app.NewService()
	indexResult, err := service.Index(ctx, app.IndexRequest{
		Output:           indexPath,
		Endpoints:        []string{repodataEndpoint},
		Subdirs:          []string{"noarch"},
		PipIndex:         repodataEndpoint,
		PipPackages:      []string{"pytest", "coverage"},
		Workers:          2,
		HTTPTimeoutSec:   10,
		HTTPRetries:      1,
		HTTPRetryDelayMs: 100,
	})
	require.NoError(t, err)
	require.Greater(t, indexResult.PackageCount, 0)
	require.Equal(t, 2, indexResult.PipCount)

	buildResult, err := service.Build(ctx, app.BuildRequest{
		RecipePath:   filepath.Join(root, "fixtures/recipe-sample.yaml"),
		Variants:     []string{filepath.Join(root, "fixtures/variants/py310.yaml")},
		ChannelIndex: indexPath,
		OutputDir:    outputDir,
	})
	require.NoError(t, err)
	require.NotEmpty(t, buildResult.ArtifactPath)

	_, err = service.Publish(ctx, app.PublishRequest{
		OutputDir:           outputDir,
		ChannelBackend:      "http",
		ChannelEndpoint:     channelEndpoint,
		ChannelAPIKey:       "secret",
		ChannelTimeoutSec:   60,
		ChannelRetries:      3,
		ChannelRetryDelayMs: 200,
	})
	require.NoError(t, err)

	intent, err := adapters.NewOutputReaderAdapter().ReadUploadIntent(filepath.Join(outputDir, "upload.intent"))
	require.NoError(t, err)

	requests, err := fetchChannelRequests(channelEndpoint)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	for _, req := range requests {
		require.Equal(t, "PUT", req.Method)
		require.Equal(t, "api", req.User)
		require.Equal(t, "secret", req.Pass)
	}
	require.Equal(t, fmt.Sprintf("/channels/internal/noarch/%s.tar.zst", intent.BuildID), requests[0].Path)
	require.Equal(t, "/channels/internal/labels/main", requests[1].Path)
}

func startChannelMock(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"python", "-c", channelMockScript},
		WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return endpoint, cleanup
}

func startRepodataServer(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8081/tcp"},
		Cmd:          []string{"python", "-c", repodataServerScript},
		WaitingFor:   wait.ForListeningPort("8081/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8081/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return endpoint, cleanup
}

func fetchChannelRequests(endpoint string) ([]channelRequest, error) {
	resp, err := http.Get(endpoint + "/requests")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var requests []channelRequest
	if err := json.NewDecoder(resp.Body).Decode(&requests); err != nil {
		return nil, err
	}
	return requests, nil
}

const channelMockScript = `
import base64
import json
from http.server import BaseHTTPRequestHandler, ThreadingHTTPServer

requests = []

def parse_basic_auth(header_value):
    if not header_value:
        return "", ""
    if not header_value.startswith("Basic "):
        return "", ""
    try:
        raw = header_value.split(" ", 1)[1]
        decoded = base64.b64decode(raw).decode("utf-8")
        user, _, password = decoded.partition(":")
        return user, password
    except Exception:
        return "", ""

class Handler(BaseHTTPRequestHandler):
    def do_PUT(self):
        length = int(self.headers.get("Content-Length", "0"))
        if length > 0:
            _ = self.rfile.read(length)
        user, password = parse_basic_auth(self.headers.get("Authorization", ""))
        requests.append(
            {"method": "PUT", "path": self.path, "user": user, "pass": password}
        )
        self.send_response(201)
        self.end_headers()

    def do_GET(self):
        if self.path == "/requests":
            self.send_response(200)
            self.send_header("Content-Type", "application/json")
            self.end_headers()
            self.wfile.write(json.dumps(requests).encode("utf-8"))
            return
        self.send_response(404)
        self.end_headers()

    def log_message(self, format, *args):
        return

def main():
    server = ThreadingHTTPServer(("0.0.0.0", 8080), Handler)
    server.serve_forever()

if __name__ == "__main__":
    main()
`

const repodataServerScript = `
import json
from http.server import BaseHTTPRequestHandler, ThreadingHTTPServer

repodata = {
    "packages": {
        "python-3.10.8-0.tar.bz2": {"name": "python", "version": "3.10.8"},
        "setuptools-65.5.0-0.tar.bz2": {"name": "setuptools", "version": "65.5.0"},
        "numpy-1.19.5-0.tar.bz2": {"name": "numpy", "version": "1.19.5"},
        "numpy-1.21.6-0.tar.bz2": {"name": "numpy", "version": "1.21.6"},
        "matplotlib-3.5.3-0.tar.bz2": {"name": "matplotlib", "version": "3.5.3"},
        "six-1.16.0-0.tar.bz2": {"name": "six", "version": "1.16.0"},
    }
}

simple_pages = {
    "/simple/": '<a href="pytest/">pytest</a><a href="coverage/">coverage</a>',
    "/simple/pytest/": '<a href="pytest-7.4.0.tar.gz">pytest-7.4.0.tar.gz</a>',
    "/simple/coverage/": '<a href="coverage-6.5.0.tar.gz">coverage-6.5.0.tar.gz</a>',
}

class Handler(BaseHTTPRequestHandler):
    def do_GET(self):
        if self.path == "/noarch/repodata.json":
            body = json.dumps(repodata).encode("utf-8")
            self.send_response(200)
            self.send_header("Content-Type", "application/json")
            self.end_headers()
            self.wfile.write(body)
            return
        if self.path in simple_pages:
            self.send_response(200)
            self.send_header("Content-Type", "text/html")
            self.end_headers()
            self.wfile.write(simple_pages[self.path].encode("utf-8"))
            return
        self.send_response(404)
        self.end_headers()

    def log_message(self, format, *args):
        return

def main():
    server = ThreadingHTTPServer(("0.0.0.0", 8081), Handler)
    server.serve_forever()

if __name__ == "__main__":
    main()
`
