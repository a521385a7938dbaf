package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(func() string { return "test-token" })
	c.baseURL = srv.URL
	return c
}

func TestListRepositoriesFiltersEmptyAndPaginates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("page") {
		case "1":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[`)
			for i := 0; i < 100; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"name":"repo%d","full_name":"op/repo%d","size":1}`, i, i)
			}
			fmt.Fprint(w, `]`)
		case "2":
			fmt.Fprint(w, `[
				{"name":"tail","full_name":"op/tail","size":42},
				{"name":"empty","full_name":"op/empty","size":0}
			]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	c := newTestClient(t, handler)
	repos, err := c.ListRepositories(context.Background())
	require.NoError(t, err)

	assert.Len(t, repos, 101, "empty repository must be filtered out")
	assert.Equal(t, Repository{Name: "tail", FullName: "op/tail"}, repos[100])
}

func TestListRepositoriesSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))

	_, err := c.ListRepositories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	for i := 0; i < 3; i++ {
		_, err := c.ListRepositories(context.Background())
		require.Error(t, err)
	}

	_, err := c.ListRepositories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
