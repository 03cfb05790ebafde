package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const defaultBaseURL = "https://api.github.com"

// TokenEnv is read for an optional API token to lift the anonymous rate limit.
const TokenEnv = "GITHUB_TOKEN"

// Client fetches release information from GitHub.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client. Pass an empty string to use the default GitHub API base URL.
// Pass a custom URL for testing.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      os.Getenv(TokenEnv),
		httpClient: http.DefaultClient,
	}
}

// LatestVersion returns the latest release version for the given repo (owner/name).
// The leading "v" is stripped from the tag name; URL templates carry it
// themselves where a project uses it.
func (c *Client) LatestVersion(ctx context.Context, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("repo %q has no published release on GitHub", repo)
	case http.StatusForbidden, http.StatusTooManyRequests:
		return "", fmt.Errorf("GitHub API rate limited for %q, set %s to increase the limit", repo, TokenEnv)
	default:
		return "", fmt.Errorf("unexpected GitHub API status %d for %q", resp.StatusCode, repo)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("decode GitHub response: %w", err)
	}

	version := strings.TrimPrefix(release.TagName, "v")
	if version == "" {
		return "", fmt.Errorf("empty tag_name in GitHub response for %q", repo)
	}
	return version, nil
}
