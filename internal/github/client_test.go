package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gh "github.com/dsaleh/dot/internal/github"
)

func TestLatestVersion(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tag_name": "v1.2.3"}`))
	}))
	defer srv.Close()

	client := gh.NewClient(srv.URL)
	version, err := client.LatestVersion(context.Background(), "owner/repo")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "/repos/owner/repo/releases/latest", path)
}

func TestLatestVersion_untaggedPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name": "14.1.0"}`))
	}))
	defer srv.Close()

	version, err := gh.NewClient(srv.URL).LatestVersion(context.Background(), "BurntSushi/ripgrep")
	require.NoError(t, err)
	assert.Equal(t, "14.1.0", version)
}

func TestLatestVersion_token(t *testing.T) {
	t.Setenv(gh.TokenEnv, "secret")

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"tag_name": "v0.1.0"}`))
	}))
	defer srv.Close()

	_, err := gh.NewClient(srv.URL).LatestVersion(context.Background(), "owner/repo")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
}

func TestLatestVersion_errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, ""},
		{"rate limited", http.StatusForbidden, ""},
		{"server error", http.StatusBadGateway, ""},
		{"empty tag", http.StatusOK, `{"tag_name": ""}`},
		{"bad json", http.StatusOK, `{`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := gh.NewClient(srv.URL).LatestVersion(context.Background(), "owner/repo")
			assert.Error(t, err)
		})
	}
}
