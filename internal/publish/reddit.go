package publish

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRedditAuthBase = "https://www.reddit.com"
	defaultRedditAPIBase  = "https://oauth.reddit.com"
)

// RedditClient submits self posts using the script-app password grant.
type RedditClient struct {
	authBase     string
	apiBase      string
	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

func NewRedditClient() *RedditClient {
	ua := os.Getenv("REDDIT_USER_AGENT")
	if ua == "" {
		ua = "pod2social/1.0"
	}
	return &RedditClient{
		authBase:     defaultRedditAuthBase,
		apiBase:      defaultRedditAPIBase,
		clientID:     os.Getenv("REDDIT_CLIENT_ID"),
		clientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		username:     os.Getenv("REDDIT_USERNAME"),
		password:     os.Getenv("REDDIT_PASSWORD"),
		userAgent:    ua,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Configured reports whether credentials are present.
func (c *RedditClient) Configured() bool {
	return c.clientID != "" && c.clientSecret != "" && c.username != "" && c.password != ""
}

// PublishPost submits the post to each group. Succeeds if at least one
// submission went through; fails with the last error if none did.
func (c *RedditClient) PublishPost(ctx context.Context, title, body string, groups []string) ([]string, error) {
	if !c.Configured() {
		return nil, Permanentf("reddit credentials not configured")
	}
	if len(groups) == 0 {
		return nil, Permanentf("no target groups")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var urls []string
	var lastErr error
	for _, group := range groups {
		permalink, err := c.submit(ctx, token, group, title, body)
		if err != nil {
			log.Printf("RedditClient: failed to post to %s: %v", group, err)
			lastErr = err
			continue
		}
		urls = append(urls, permalink)
	}

	if len(urls) == 0 {
		return nil, lastErr
	}
	return urls, nil
}

func (c *RedditClient) accessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", Permanentf("failed to build token request: %v", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil || out.AccessToken == "" {
		return "", Permanentf("unexpected token response: %s", string(respBody))
	}
	return out.AccessToken, nil
}

func (c *RedditClient) submit(ctx context.Context, token, group, title, body string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", Transientf("rate limiter interrupted: %v", err)
	}

	form := url.Values{}
	form.Set("sr", strings.TrimPrefix(group, "r/"))
	form.Set("kind", "self")
	form.Set("title", title)
	form.Set("text", body)
	form.Set("api_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return "", Permanentf("failed to build submit request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var out struct {
		JSON struct {
			Errors [][]interface{} `json:"errors"`
			Data   struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", Transientf("unexpected submit response: %s", string(respBody))
	}
	if len(out.JSON.Errors) > 0 {
		return "", Permanentf("submit rejected: %v", out.JSON.Errors)
	}
	if out.JSON.Data.URL == "" {
		return "", Transientf("submit response missing url: %s", string(respBody))
	}
	return out.JSON.Data.URL, nil
}
