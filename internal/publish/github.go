package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/shippo/internal/logger"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 5 * time.Minute

	apiVersionHeader = "2022-11-28"
	acceptHeader     = "application/vnd.github+json"
)

var (
	// ErrMissingToken means no API token was supplied.
	ErrMissingToken = errors.New("github token is not set")
	// ErrUnexpectedStatus wraps non-success API responses.
	ErrUnexpectedStatus = errors.New("unexpected github response status")
	// errNotGitHubURL means the repository URL has no recognizable owner/repo.
	errNotGitHubURL = errors.New("repository URL is not a recognizable github URL")
)

// ReleaseInput describes the release to create.
type ReleaseInput struct {
	Owner      string
	Repo       string
	TagName    string
	Name       string
	Body       string
	Draft      bool
	Prerelease bool
}

// Release is the subset of the created release the pipeline needs.
type Release struct {
	ID        int64  `json:"id"`
	UploadURL string `json:"upload_url"`
	HTMLURL   string `json:"html_url"`
}

// GitHub publishes releases through the GitHub REST API.
type GitHub struct {
	baseURL string
	token   string
	client  *http.Client
}

// GitHubOption customizes a GitHub client.
type GitHubOption func(*GitHub)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) GitHubOption {
	return func(g *GitHub) {
		g.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) GitHubOption {
	return func(g *GitHub) {
		g.client = client
	}
}

// NewGitHub returns a client authenticated with the given token.
func NewGitHub(token string, opts ...GitHubOption) *GitHub {
	github := &GitHub{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(github)
	}

	return github
}

// CreateRelease creates a release for an existing or new tag.
func (g *GitHub) CreateRelease(ctx context.Context, input ReleaseInput) (*Release, error) {
	if g.token == "" {
		return nil, ErrMissingToken
	}

	payload, err := json.Marshal(map[string]any{
		"tag_name":   input.TagName,
		"name":       input.Name,
		"body":       input.Body,
		"draft":      input.Draft,
		"prerelease": input.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal release request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", g.baseURL, input.Owner, input.Repo)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build release request: %w", err)
	}

	g.setHeaders(request)
	request.Header.Set("Content-Type", acceptHeader)

	response, err := g.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusCreated {
		return nil, statusError("create release", response)
	}

	var release Release
	if err := json.NewDecoder(response.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release response: %w", err)
	}

	logger.InfoKV(ctx, "GitHub release created",
		"tag", input.TagName,
		"url", release.HTMLURL,
		"draft", input.Draft)

	return &release, nil
}

// UploadAsset attaches one file to a release through its upload URL.
// The hypermedia template suffix of upload_url is stripped before use.
func (g *GitHub) UploadAsset(ctx context.Context, uploadURL, filePath string) error {
	if g.token == "" {
		return ErrMissingToken
	}

	endpoint, _, _ := strings.Cut(uploadURL, "{")
	endpoint += "?name=" + url.QueryEscape(filepath.Base(filePath))

	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("open asset %s: %w", filePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat asset %s: %w", filePath, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}

	g.setHeaders(request)
	request.Header.Set("Content-Type", "application/octet-stream")
	request.ContentLength = info.Size()

	response, err := g.client.Do(request)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(filePath), err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusCreated {
		return statusError(fmt.Sprintf("upload %s", filepath.Base(filePath)), response)
	}

	logger.DebugKV(ctx, "Release asset uploaded",
		"name", filepath.Base(filePath),
		"bytes", info.Size())

	return nil
}

// setHeaders applies the common GitHub REST headers.
func (g *GitHub) setHeaders(request *http.Request) {
	request.Header.Set("Authorization", "Bearer "+g.token)
	request.Header.Set("Accept", acceptHeader)
	request.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
}

// statusError turns a non-success response into an error carrying a
// truncated body snippet for diagnosis.
func statusError(operation string, response *http.Response) error {
	const snippetLimit = 512

	snippet, _ := io.ReadAll(io.LimitReader(response.Body, snippetLimit))

	return fmt.Errorf("%s: %w %d: %s",
		operation, ErrUnexpectedStatus, response.StatusCode,
		strings.TrimSpace(string(snippet)))
}

// ParseRepoURL extracts the owner and repository from a GitHub remote URL,
// accepting both https and ssh forms.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(repoURL), ".git")

	switch {
	case strings.HasPrefix(trimmed, "git@"):
		// git@github.com:owner/repo
		_, path, found := strings.Cut(trimmed, ":")
		if !found {
			return "", "", fmt.Errorf("%w: %s", errNotGitHubURL, repoURL)
		}

		trimmed = path
	case strings.Contains(trimmed, "://"):
		parsed, parseErr := url.Parse(trimmed)
		if parseErr != nil {
			return "", "", fmt.Errorf("parse repository URL: %w", parseErr)
		}

		trimmed = strings.TrimPrefix(parsed.Path, "/")
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", errNotGitHubURL, repoURL)
	}

	return parts[0], parts[1], nil
}
