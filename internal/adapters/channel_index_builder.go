package adapters

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	"gopkg.in/yaml.v3"

	"feedstock/internal/ports"
	"feedstock/internal/shared"
	"feedstock/internal/types"
)

// ChannelIndexBuilderAdapter fetches repodata from channel endpoints and
// local channel directories, optionally augmented with pip versions from
// a simple index, and merges everything into one channel index file.
type ChannelIndexBuilderAdapter struct{}

type ChannelIndexWriterAdapter struct{}

const defaultIndexFetchWorkers = 4
const defaultHTTPTimeout = 60 * time.Second
const defaultHTTPRetries = 3
const defaultHTTPRetryDelay = 200 * time.Millisecond
const maxHTTPRetryDelay = 2 * time.Second

type httpRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

func normalizeHTTPConfig(timeoutSec int, retries int, delayMs int) httpRetryConfig {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	retryCount := retries
	if retryCount <= 0 {
		retryCount = defaultHTTPRetries
	}
	baseDelay := time.Duration(delayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultHTTPRetryDelay
	}
	return httpRetryConfig{
		timeout:   timeout,
		retries:   retryCount,
		baseDelay: baseDelay,
	}
}

func NewChannelIndexBuilderAdapter() ChannelIndexBuilderAdapter {
	return ChannelIndexBuilderAdapter{}
}

func NewChannelIndexWriterAdapter() ChannelIndexWriterAdapter {
	return ChannelIndexWriterAdapter{}
}

func (a ChannelIndexBuilderAdapter) Build(ctx context.Context, request ports.ChannelIndexBuildRequest) (types.ChannelIndexFile, error) {
	subdirs := normalizeSubdirs(request.Subdirs)
	if len(request.Endpoints) == 0 && len(request.LocalDirs) == 0 {
		return types.ChannelIndexFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel endpoints or local dirs are required")
	}
	httpCfg := normalizeHTTPConfig(request.HTTPTimeoutSec, request.HTTPRetries, request.HTTPRetryDelayMs)
	packages, err := buildPackageIndex(ctx, request, subdirs, httpCfg)
	if err != nil {
		return types.ChannelIndexFile{}, err
	}
	index := types.ChannelIndexFile{
		Subdirs:  subdirs,
		Packages: packages,
	}
	if strings.TrimSpace(request.PipIndex) != "" {
		pip, err := buildPipIndex(ctx, request.PipIndex, request.User, request.APIKey, request.PipPackages, request.Workers, httpCfg)
		if err != nil {
			return types.ChannelIndexFile{}, err
		}
		index.Pip = pip
	}
	return index, nil
}

func (a ChannelIndexWriterAdapter) Write(path string, index types.ChannelIndexFile) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output path is required")
	}
	data, err := yaml.Marshal(index)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal channel index").
			WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create channel index directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write channel index").
			WithCause(err)
	}
	return nil
}

type repodataSource struct {
	endpoint string
	subdir   string
	local    bool
}

func buildPackageIndex(ctx context.Context, request ports.ChannelIndexBuildRequest, subdirs []string, httpCfg httpRetryConfig) (map[string][]types.PackageRecord, error) {
	var sources []repodataSource
	for _, endpoint := range request.Endpoints {
		endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
		if endpoint == "" {
			continue
		}
		for _, subdir := range subdirs {
			sources = append(sources, repodataSource{endpoint: endpoint, subdir: subdir})
		}
	}
	for _, dir := range request.LocalDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		for _, subdir := range subdirs {
			sources = append(sources, repodataSource{endpoint: dir, subdir: subdir, local: true})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	merged := map[string][]types.PackageRecord{}
	var mu sync.Mutex
	var errMu sync.Mutex
	var firstErr error
	workerCount := request.Workers
	if workerCount <= 0 {
		workerCount = defaultIndexFetchWorkers
	}
	if len(sources) < workerCount {
		workerCount = len(sources)
	}
	sem := make(chan struct{}, workerCount)
	var wg sync.WaitGroup
	for _, source := range sources {
		source := source
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			records, err := fetchRepodata(ctx, source, request.User, request.APIKey, httpCfg)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				errMu.Unlock()
				return
			}
			mu.Lock()
			for name, list := range records {
				merged[name] = append(merged[name], list...)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	for name := range merged {
		merged[name] = dedupeRecords(merged[name])
	}
	return merged, nil
}

func fetchRepodata(ctx context.Context, source repodataSource, user string, apiKey string, httpCfg httpRetryConfig) (map[string][]types.PackageRecord, error) {
	if source.local {
		path := filepath.Join(source.endpoint, source.subdir, "repodata.json")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return map[string][]types.PackageRecord{}, nil
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read local repodata").
				WithCause(err)
		}
		return parseRepodata(data, source.subdir)
	}

	gzURL := fmt.Sprintf("%s/%s/repodata.json.gz", source.endpoint, source.subdir)
	data, notFound, err := fetchRepodataPayload(ctx, gzURL, user, apiKey, httpCfg)
	if err != nil {
		return nil, err
	}
	if notFound {
		plainURL := fmt.Sprintf("%s/%s/repodata.json", source.endpoint, source.subdir)
		data, notFound, err = fetchRepodataPayload(ctx, plainURL, user, apiKey, httpCfg)
		if err != nil {
			return nil, err
		}
		if notFound {
			return map[string][]types.PackageRecord{}, nil
		}
	}
	return parseRepodata(data, source.subdir)
}

func fetchRepodataPayload(ctx context.Context, url string, user string, apiKey string, httpCfg httpRetryConfig) ([]byte, bool, error) {
	resp, err := doRequest(ctx, url, user, apiKey, httpCfg)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch repodata").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	var reader io.Reader = resp.Body
	if strings.HasSuffix(url, ".gz") || strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read gzipped repodata").
				WithCause(err)
		}
		defer gz.Close()
		reader = gz
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read repodata").
			WithCause(err)
	}
	return data, false, nil
}

type repodataEntry struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber int      `json:"build_number"`
	Depends     []string `json:"depends"`
	SHA256      string   `json:"sha256"`
	Subdir      string   `json:"subdir"`
}

func parseRepodata(data []byte, subdir string) (map[string][]types.PackageRecord, error) {
	var payload struct {
		Packages      map[string]repodataEntry `json:"packages"`
		PackagesConda map[string]repodataEntry `json:"packages.conda"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid repodata format").
			WithCause(err)
	}
	records := map[string][]types.PackageRecord{}
	collect := func(entries map[string]repodataEntry) {
		for _, entry := range entries {
			if entry.Name == "" || entry.Version == "" {
				continue
			}
			recordSubdir := entry.Subdir
			if recordSubdir == "" {
				recordSubdir = subdir
			}
			name := shared.NormalizePackageName(entry.Name)
			records[name] = append(records[name], types.PackageRecord{
				Version:     entry.Version,
				BuildNumber: entry.BuildNumber,
				BuildString: entry.Build,
				Depends:     entry.Depends,
				Subdir:      recordSubdir,
				SHA256:      entry.SHA256,
			})
		}
	}
	collect(payload.Packages)
	collect(payload.PackagesConda)
	return records, nil
}

func dedupeRecords(records []types.PackageRecord) []types.PackageRecord {
	seen := map[string]struct{}{}
	out := make([]types.PackageRecord, 0, len(records))
	for _, record := range records {
		key := fmt.Sprintf("%s|%d|%s|%s", record.Version, record.BuildNumber, record.BuildString, record.Subdir)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return pep440Less(out[i].Version, out[j].Version)
		}
		if out[i].BuildNumber != out[j].BuildNumber {
			return out[i].BuildNumber < out[j].BuildNumber
		}
		return out[i].Subdir < out[j].Subdir
	})
	return out
}

func pep440Less(left string, right string) bool {
	vl, err := pep440.Parse(left)
	if err != nil {
		return left < right
	}
	vr, err := pep440.Parse(right)
	if err != nil {
		return left < right
	}
	return vl.Compare(vr) < 0
}

func normalizeSubdirs(values []string) []string {
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		out = []string{"noarch"}
	}
	return uniqueStrings(out)
}

func buildPipIndex(ctx context.Context, base string, user string, apiKey string, packages []string, workerCount int, httpCfg httpRetryConfig) (map[string][]string, error) {
	simpleBase := normalizePipSimpleIndex(base)
	names := uniqueStrings(normalizePipNames(packages))
	if len(names) == 0 {
		list, err := fetchPipPackageNames(ctx, simpleBase, user, apiKey, httpCfg)
		if err != nil {
			return nil, err
		}
		names = list
	}
	index := map[string][]string{}
	if len(names) == 0 {
		return index, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if workerCount <= 0 {
		workerCount = 8
	}
	if len(names) < workerCount {
		workerCount = len(names)
	}
	type pipResult struct {
		name     string
		versions []string
		err      error
	}
	tasks := make(chan string)
	results := make(chan pipResult, len(names))
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range tasks {
				if ctx.Err() != nil {
					results <- pipResult{name: name, versions: nil, err: ctx.Err()}
					continue
				}
				versions, err := fetchPipPackageVersions(ctx, simpleBase, name, user, apiKey, httpCfg)
				results <- pipResult{name: name, versions: versions, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		tasks <- name
	}
	close(tasks)

	var firstErr error
	for result := range results {
		if result.err != nil && firstErr == nil {
			firstErr = result.err
			cancel()
		}
		if result.err == nil && len(result.versions) > 0 {
			index[result.name] = result.versions
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return index, nil
}

func fetchPipPackageNames(ctx context.Context, simpleBase string, user string, apiKey string, httpCfg httpRetryConfig) ([]string, error) {
	resp, err := doRequest(ctx, simpleBase, user, apiKey, httpCfg)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch pip index").
			WithCause(shared.HTTPStatusError(resp.StatusCode, simpleBase))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read pip index").
			WithCause(err)
	}
	names := parsePipSimpleNames(string(body))
	if len(names) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pip index returned no packages")
	}
	return names, nil
}

func fetchPipPackageVersions(ctx context.Context, simpleBase string, name string, user string, apiKey string, httpCfg httpRetryConfig) ([]string, error) {
	url := strings.TrimRight(simpleBase, "/") + "/" + name + "/"
	resp, err := doRequest(ctx, url, user, apiKey, httpCfg)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch pip package").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read pip package index").
			WithCause(err)
	}
	versions := parsePipVersionsFromSimple(string(body))
	return sortPep440Versions(versions), nil
}

func normalizePipSimpleIndex(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(trimmed, "/simple") {
		return trimmed + "/"
	}
	return trimmed + "/simple/"
}

func parsePipSimpleNames(content string) []string {
	re := regexp.MustCompile(`(?is)<a[^>]*>([^<]+)</a>`)
	matches := re.FindAllStringSubmatch(content, -1)
	var names []string
	for _, match := range matches {
		name := strings.TrimSpace(match[1])
		if name == "" {
			continue
		}
		names = append(names, shared.NormalizePackageName(name))
	}
	return uniqueStrings(names)
}

func parsePipVersionsFromSimple(content string) []string {
	re := regexp.MustCompile(`href=["']([^"']+)["']`)
	matches := re.FindAllStringSubmatch(content, -1)
	versions := map[string]struct{}{}
	for _, match := range matches {
		raw := strings.Split(match[1], "#")[0]
		raw = strings.Split(raw, "?")[0]
		filename := filepath.Base(raw)
		version := parsePipVersionFromFilename(filename)
		if version == "" {
			continue
		}
		if _, err := pep440.Parse(version); err != nil {
			continue
		}
		versions[version] = struct{}{}
	}
	return mapKeys(versions)
}

func parsePipVersionFromFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}
	wheel := regexp.MustCompile(`^(.+?)-([0-9][^-]*)(?:-[^-]+)?-[^-]+-[^-]+-[^-]+\.whl$`)
	if match := wheel.FindStringSubmatch(filename); len(match) == 3 {
		return match[2]
	}
	sdist := regexp.MustCompile(`^(.+?)-([0-9][^-]*)\.(?:tar\.gz|zip|tar\.bz2|tar\.xz|tgz)$`)
	if match := sdist.FindStringSubmatch(filename); len(match) == 3 {
		return match[2]
	}
	return ""
}

func normalizePipNames(values []string) []string {
	var out []string
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		out = append(out, shared.NormalizePackageName(name))
	}
	return out
}

func sortPep440Versions(versions []string) []string {
	sort.Slice(versions, func(i, j int) bool {
		return pep440Less(versions[i], versions[j])
	})
	return versions
}

func mapKeys(values map[string]struct{}) []string {
	out := make([]string, 0, len(values))
	for key := range values {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func doRequest(ctx context.Context, url string, user string, apiKey string, cfg httpRetryConfig) (*http.Response, error) {
	client := &http.Client{Timeout: cfg.timeout}
	var lastErr error
	for attempt := 0; attempt < cfg.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(ctx.Err())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create request").
				WithCause(err)
		}
		if strings.TrimSpace(apiKey) != "" {
			authUser := strings.TrimSpace(user)
			if authUser == "" {
				authUser = "api"
			}
			req.SetBasicAuth(authUser, apiKey)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("request canceled").
					WithCause(ctx.Err())
			}
			lastErr = err
			if attempt < cfg.retries-1 {
				time.Sleep(indexRetryDelay(attempt, cfg))
				continue
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request failed").
				WithCause(err)
		}
		if (resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests) && attempt < cfg.retries-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			time.Sleep(indexRetryDelay(attempt, cfg))
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("request failed")
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("request failed").
		WithCause(lastErr)
}

func indexRetryDelay(attempt int, cfg httpRetryConfig) time.Duration {
	delay := cfg.baseDelay * time.Duration(1<<attempt)
	if delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

var _ ports.ChannelIndexBuilderPort = ChannelIndexBuilderAdapter{}
var _ ports.ChannelIndexWriterPort = ChannelIndexWriterAdapter{}
