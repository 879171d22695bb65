package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/interfaces"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics
const maxErrorBody = 4 * 1024

// HTTPReleaseFetcher implements gateways.ReleaseFeed against a GitHub-style
// "latest release" endpoint. It does not retry on its own; retries come from
// the http.Client it is given.
type HTTPReleaseFetcher struct {
	client    *http.Client
	endpoint  string
	token     string
	userAgent string
	logger    interfaces.Logger
}

// ReleaseFetcherConfig holds configuration for the fetcher
type ReleaseFetcherConfig struct {
	Endpoint  string
	Token     string
	UserAgent string
	Timeout   time.Duration
	// Client overrides the default HTTP client (e.g. a retrying client)
	Client *http.Client
}

// NewHTTPReleaseFetcher creates a new release fetcher
func NewHTTPReleaseFetcher(config ReleaseFetcherConfig, logger interfaces.Logger) *HTTPReleaseFetcher {
	client := config.Client
	if client == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = entities.DefaultFeedTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = entities.DefaultUserAgent
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &HTTPReleaseFetcher{
		client:    client,
		endpoint:  config.Endpoint,
		token:     config.Token,
		userAgent: userAgent,
		logger:    logger,
	}
}

// releaseDescriptor is the JSON body returned by the feed
type releaseDescriptor struct {
	TagName string       `json:"tag_name"`
	Assets  []assetEntry `json:"assets"`
}

type assetEntry struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// FetchLatestRelease retrieves and decodes the latest release descriptor
func (f *HTTPReleaseFetcher) FetchLatestRelease(ctx context.Context) (*entities.Release, error) {
	resp, err := f.get(ctx, f.endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, &entities.FetchError{Op: "release", URL: f.endpoint, Err: err}
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if err := f.checkResponse(resp); err != nil {
		return nil, &entities.FetchError{Op: "release", URL: f.endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	var desc releaseDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, &entities.FetchError{
			Op:        "release",
			URL:       f.endpoint,
			Malformed: true,
			Err:       fmt.Errorf("failed to decode release descriptor: %w", err),
		}
	}

	release := &entities.Release{
		Tag:    desc.TagName,
		Assets: make([]*entities.Artifact, 0, len(desc.Assets)),
	}
	for i, a := range desc.Assets {
		if a.Name == "" || a.BrowserDownloadURL == "" {
			f.logger.Warn("dropping incomplete asset from release",
				interfaces.F("index", i),
				interfaces.F("name", a.Name),
				interfaces.F("url", a.BrowserDownloadURL),
			)
			continue
		}
		if err := validateAsset(a); err != nil {
			return nil, &entities.FetchError{
				Op:        "release",
				URL:       f.endpoint,
				Malformed: true,
				Err:       fmt.Errorf("asset %d: %w", i, err),
			}
		}
		release.Assets = append(release.Assets, &entities.Artifact{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			State:       entities.StateRemote,
		})
	}

	return release, nil
}

// DownloadArtifact opens the body of an artifact download
func (f *HTTPReleaseFetcher) DownloadArtifact(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, url, "application/octet-stream")
	if err != nil {
		return nil, &entities.FetchError{Op: "download", URL: url, Err: err}
	}

	if err := f.checkResponse(resp); err != nil {
		//nolint:errcheck,gosec // G104: Best effort close on error response
		resp.Body.Close()
		return nil, &entities.FetchError{Op: "download", URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	return resp.Body, nil
}

func (f *HTTPReleaseFetcher) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", f.userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	return f.client.Do(req)
}

// checkResponse turns a non-2xx response into an error carrying the body
func (f *HTTPReleaseFetcher) checkResponse(resp *http.Response) error {
	f.warnRateLimit(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return fmt.Errorf("unexpected status %s: %s", resp.Status, string(body))
}

// warnRateLimit logs when the GitHub API rate limit is close to exhausted
func (f *HTTPReleaseFetcher) warnRateLimit(resp *http.Response) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}

	n, err := strconv.Atoi(remaining)
	if err != nil || n > 10 {
		return
	}

	fields := []interfaces.Field{interfaces.F("remaining", n)}
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		fields = append(fields, interfaces.F("resets_at", time.Unix(reset, 0).UTC().Format(time.RFC3339)))
	}
	f.logger.Warn("release feed rate limit low", fields...)
}

// validateAsset rejects names that would escape the bucket directory
func validateAsset(a assetEntry) error {
	if a.Name == "." || a.Name == ".." || filepath.Base(a.Name) != a.Name {
		return fmt.Errorf("asset name %q is not a plain filename", a.Name)
	}
	return nil
}
