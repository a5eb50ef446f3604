// Package github retrieves issue metadata from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/codeprompt/internal/types"
)

const (
	defaultAPITimeout         = 30 * time.Second
	defaultAPIBaseURL         = "https://api.github.com"
	defaultUserAgent          = "codeprompt-issue-fetcher"
	headerUserAgent           = "User-Agent"
	headerAuthorization       = "Authorization"
	headerAccept              = "Accept"
	headerGitHubAPIVersion    = "X-GitHub-Api-Version"
	acceptGitHubJSON          = "application/vnd.github+json"
	githubAPIVersionValue     = "2022-11-28"
	authorizationBearerPrefix = "Bearer "
	authorizationTokenPrefix  = "token "
	errorBodyLimit            = 8 * 1024

	// TokenEnvironmentVariable names the variable holding an optional API token.
	TokenEnvironmentVariable = "GITHUB_TOKEN"

	errorUnexpectedStatusFormat = "%w: status %d for %s: %s"
	errorDecodeIssueFormat      = "decoding issue %d: %w"
)

var (
	errMissingOwner      = errors.New("repository owner is required")
	errMissingRepository = errors.New("repository name is required")
	errInvalidNumber     = errors.New("issue number must be positive")

	// ErrUnexpectedStatus reports a non-200 response from the API.
	ErrUnexpectedStatus = errors.New("unexpected GitHub response")
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Client fetches issues from the GitHub REST API.
type Client struct {
	client                   httpClient
	apiBase                  string
	userAgent                string
	authorizationHeaderValue string
}

// NewClient creates a Client. A nil client uses an http.Client with a default timeout.
func NewClient(client httpClient) Client {
	if client == nil {
		client = &http.Client{Timeout: defaultAPITimeout}
	}
	return Client{
		client:    client,
		apiBase:   defaultAPIBaseURL,
		userAgent: defaultUserAgent,
	}
}

func (issueClient Client) WithAPIBase(base string) Client {
	if base == "" {
		return issueClient
	}
	issueClient.apiBase = strings.TrimRight(base, "/")
	return issueClient
}

// WithAuthorizationToken authenticates API calls. An empty token leaves calls anonymous.
func (issueClient Client) WithAuthorizationToken(token string) Client {
	issueClient.authorizationHeaderValue = formatAuthorizationHeaderValue(token)
	return issueClient
}

// FetchIssue retrieves issue number of owner/repository.
func (issueClient Client) FetchIssue(ctx context.Context, owner string, repository string, number int) (types.Issue, error) {
	if owner == "" {
		return types.Issue{}, errMissingOwner
	}
	if repository == "" {
		return types.Issue{}, errMissingRepository
	}
	if number <= 0 {
		return types.Issue{}, errInvalidNumber
	}

	issueURL := issueClient.apiBase + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repository) + "/issues/" + strconv.Itoa(number)
	request, requestErr := issueClient.buildRequest(ctx, issueURL)
	if requestErr != nil {
		return types.Issue{}, requestErr
	}
	response, responseErr := issueClient.client.Do(request)
	if responseErr != nil {
		return types.Issue{}, responseErr
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
		return types.Issue{}, fmt.Errorf(errorUnexpectedStatusFormat, ErrUnexpectedStatus, response.StatusCode, issueURL, strings.TrimSpace(string(body)))
	}

	var issue types.Issue
	if decodeErr := json.NewDecoder(response.Body).Decode(&issue); decodeErr != nil {
		return types.Issue{}, fmt.Errorf(errorDecodeIssueFormat, number, decodeErr)
	}
	return issue, nil
}

func (issueClient Client) buildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if requestErr != nil {
		return nil, requestErr
	}
	if issueClient.userAgent != "" {
		request.Header.Set(headerUserAgent, issueClient.userAgent)
	}
	if issueClient.authorizationHeaderValue != "" {
		request.Header.Set(headerAuthorization, issueClient.authorizationHeaderValue)
	}
	request.Header.Set(headerAccept, acceptGitHubJSON)
	request.Header.Set(headerGitHubAPIVersion, githubAPIVersionValue)
	return request, nil
}

func formatAuthorizationHeaderValue(rawToken string) string {
	trimmed := strings.TrimSpace(rawToken)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, strings.ToLower(authorizationBearerPrefix)) || strings.HasPrefix(lower, strings.ToLower(authorizationTokenPrefix)) {
		return trimmed
	}
	if strings.Contains(trimmed, ".") {
		return authorizationBearerPrefix + trimmed
	}
	return authorizationTokenPrefix + trimmed
}
