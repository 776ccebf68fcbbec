package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultXAPIBase    = "https://api.twitter.com"
	defaultXUploadBase = "https://upload.twitter.com"
)

// XClient posts threads via the X API v2. Media upload still goes through
// the v1.1 upload endpoint; that is a platform limitation.
type XClient struct {
	apiBase    string
	uploadBase string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewXClient() *XClient {
	return &XClient{
		apiBase:    defaultXAPIBase,
		uploadBase: defaultXUploadBase,
		token:      os.Getenv("X_ACCESS_TOKEN"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

type tweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PublishThread posts the segments as a reply chain. The thumbnail, if
// available, is attached to the first segment; a failed media upload is
// logged and the thread goes out without it.
func (c *XClient) PublishThread(ctx context.Context, segments []string, thumbnailPath string) (string, error) {
	if len(segments) == 0 {
		return "", Permanentf("empty thread")
	}

	mediaID := ""
	if thumbnailPath != "" {
		id, err := c.uploadMedia(ctx, thumbnailPath)
		if err != nil {
			log.Printf("XClient: media upload failed, posting without thumbnail: %v", err)
		} else {
			mediaID = id
		}
	}

	var firstURL, previousID string
	for i, text := range segments {
		req := tweetRequest{Text: text}
		if i == 0 && mediaID != "" {
			req.Media = &struct {
				MediaIDs []string `json:"media_ids"`
			}{MediaIDs: []string{mediaID}}
		}
		if previousID != "" {
			req.Reply = &struct {
				InReplyToTweetID string `json:"in_reply_to_tweet_id"`
			}{InReplyToTweetID: previousID}
		}

		id, err := c.createTweet(ctx, req)
		if err != nil {
			if i == 0 {
				return "", err
			}
			// A broken tail is not worth a duplicate thread: the head is
			// already out, so report success with what was posted.
			log.Printf("XClient: thread truncated after %d segment(s): %v", i, err)
			return firstURL, nil
		}
		if i == 0 {
			firstURL = fmt.Sprintf("https://twitter.com/i/web/status/%s", id)
		}
		previousID = id
	}

	return firstURL, nil
}

func (c *XClient) createTweet(ctx context.Context, tr tweetRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", Transientf("rate limiter interrupted: %v", err)
	}

	body, err := json.Marshal(tr)
	if err != nil {
		return "", Permanentf("failed to encode tweet: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", Permanentf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var out tweetResponse
	if err := json.Unmarshal(respBody, &out); err != nil || out.Data.ID == "" {
		return "", Transientf("unexpected tweet response: %s", string(respBody))
	}
	return out.Data.ID, nil
}

func (c *XClient) uploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBase+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media upload returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil || out.MediaIDString == "" {
		return "", fmt.Errorf("unexpected media upload response: %s", string(respBody))
	}
	return out.MediaIDString, nil
}
