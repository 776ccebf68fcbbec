package publish

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestRedditClient(srv *httptest.Server) *RedditClient {
	return &RedditClient{
		authBase:     srv.URL,
		apiBase:      srv.URL,
		clientID:     "id",
		clientSecret: "secret",
		username:     "poster",
		password:     "hunter2",
		userAgent:    "pod2social-test/1.0",
		httpClient:   srv.Client(),
		limiter:      rate.NewLimiter(rate.Inf, 1),
	}
}

func TestPublishPostSubmitsToEachGroup(t *testing.T) {
	var submitted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/access_token":
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "id", user)
			assert.Equal(t, "secret", pass)
			fmt.Fprint(w, `{"access_token": "tok"}`)
		case "/api/submit":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.NoError(t, r.ParseForm())
			sr := r.PostFormValue("sr")
			assert.Equal(t, "self", r.PostFormValue("kind"))
			submitted = append(submitted, sr)
			fmt.Fprintf(w, `{"json": {"errors": [], "data": {"url": "https://reddit.com/r/%s/comments/abc"}}}`, sr)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestRedditClient(srv)
	urls, err := c.PublishPost(context.Background(), "Episode 12", "Body [LINK]", []string{"r/techpodcasts", "r/podcasts"})
	require.NoError(t, err)

	assert.Equal(t, []string{"techpodcasts", "podcasts"}, submitted)
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "r/techpodcasts")
}

func TestPublishPostSucceedsIfOneGroupAccepts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			fmt.Fprint(w, `{"access_token": "tok"}`)
			return
		}
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("sr") == "banned" {
			fmt.Fprint(w, `{"json": {"errors": [["SUBREDDIT_NOTALLOWED", "not allowed", "sr"]]}}`)
			return
		}
		fmt.Fprint(w, `{"json": {"errors": [], "data": {"url": "https://reddit.com/r/ok/comments/abc"}}}`)
	}))
	defer srv.Close()

	c := newTestRedditClient(srv)
	urls, err := c.PublishPost(context.Background(), "Title", "Body", []string{"r/banned", "r/ok"})
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestPublishPostFailsWhenAllGroupsReject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			fmt.Fprint(w, `{"access_token": "tok"}`)
			return
		}
		fmt.Fprint(w, `{"json": {"errors": [["SUBREDDIT_NOTALLOWED", "not allowed", "sr"]]}}`)
	}))
	defer srv.Close()

	c := newTestRedditClient(srv)
	_, err := c.PublishPost(context.Background(), "Title", "Body", []string{"r/one", "r/two"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPublishPostTokenFailureIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "ratelimited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestRedditClient(srv)
	_, err := c.PublishPost(context.Background(), "Title", "Body", []string{"r/ok"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv2.Close()

	c = newTestRedditClient(srv2)
	_, err = c.PublishPost(context.Background(), "Title", "Body", []string{"r/ok"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPublishPostUnconfiguredIsPermanent(t *testing.T) {
	c := &RedditClient{httpClient: &http.Client{Timeout: time.Second}, limiter: rate.NewLimiter(rate.Inf, 1)}
	_, err := c.PublishPost(context.Background(), "Title", "Body", []string{"r/ok"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.True(t, strings.Contains(err.Error(), "not configured"))
}
