// Package github lists the operator's repositories through the GitHub REST
// API and caches the result on disk so the picker page does not burn API
// quota on every load.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

// Repository is one deployable repository as the console needs it: the
// short name keys the deployment directory, the full name keys the clone
// URL.
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

const defaultBaseURL = "https://api.github.com"

// Client fetches the authenticated user's repositories. Calls run through
// a circuit breaker so a flapping GitHub API degrades the picker to the
// cached list instead of hanging every page load.
type Client struct {
	http    *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[[]Repository]
}

// TokenFunc supplies the current personal access token. Reading it per
// request means a rotated token takes effect without rebuilding the
// client.
type TokenFunc func() string

type tokenSource struct {
	token TokenFunc
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	// The short expiry stops oauth2's ReuseTokenSource from caching the
	// token past a rotation.
	return &oauth2.Token{
		AccessToken: t.token(),
		Expiry:      time.Now().Add(time.Minute),
	}, nil
}

// NewClient builds a Client authenticating with the supplied token.
func NewClient(token TokenFunc) *Client {
	httpClient := oauth2.NewClient(context.Background(), tokenSource{token: token})
	httpClient.Timeout = 30 * time.Second

	return &Client{
		http:    httpClient,
		baseURL: defaultBaseURL,
		breaker: gobreaker.NewCircuitBreaker[[]Repository](gobreaker.Settings{
			Name:    "github-api",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// ListRepositories returns every non-empty repository the token can see,
// following pagination.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	return c.breaker.Execute(func() ([]Repository, error) {
		return c.listAll(ctx)
	})
}

func (c *Client) listAll(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}
		repos = append(repos, batch...)
		if len(batch) < perPage {
			return repos, nil
		}
	}
}

const perPage = 100

func (c *Client) listPage(ctx context.Context, page int) ([]Repository, error) {
	url := fmt.Sprintf("%s/user/repos?per_page=%d&page=%d", c.baseURL, perPage, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list repositories: github returned %s", resp.Status)
	}

	var batch []struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Size     int    `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode repository list: %w", err)
	}

	repos := make([]Repository, 0, len(batch))
	for _, r := range batch {
		// Empty repositories have nothing to clone or deploy.
		if r.Size == 0 {
			continue
		}
		repos = append(repos, Repository{Name: r.Name, FullName: r.FullName})
	}
	return repos, nil
}
