package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"
)

func newTestXClient(apiBase string) *XClient {
	return &XClient{
		apiBase:    apiBase,
		uploadBase: apiBase,
		token:      "test-token",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

func TestPublishThreadChainsReplies(t *testing.T) {
	var requests []tweetRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		fmt.Fprintf(w, `{"data":{"id":"id-%d"}}`, len(requests))
	}))
	defer srv.Close()

	client := newTestXClient(srv.URL)
	url, err := client.PublishThread(context.Background(), []string{"one", "two", "three"}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://twitter.com/i/web/status/id-1", url)

	require.Len(t, requests, 3)
	assert.Nil(t, requests[0].Reply)
	require.NotNil(t, requests[1].Reply)
	assert.Equal(t, "id-1", requests[1].Reply.InReplyToTweetID)
	require.NotNil(t, requests[2].Reply)
	assert.Equal(t, "id-2", requests[2].Reply.InReplyToTweetID)
}

func TestPublishThreadRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestXClient(srv.URL)
	_, err := client.PublishThread(context.Background(), []string{"one"}, "")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestPublishThreadAuthFailureIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestXClient(srv.URL)
	_, err := client.PublishThread(context.Background(), []string{"one"}, "")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPublishThreadEmptyIsPermanent(t *testing.T) {
	client := newTestXClient("http://unused.invalid")
	_, err := client.PublishThread(context.Background(), nil, "")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPublishThreadTruncatedTailStillSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"data":{"id":"head"}}`)
	}))
	defer srv.Close()

	client := newTestXClient(srv.URL)
	url, err := client.PublishThread(context.Background(), []string{"head", "tail"}, "")
	require.NoError(t, err, "a posted head must not be retried as a duplicate thread")
	assert.Equal(t, "https://twitter.com/i/web/status/head", url)
}
