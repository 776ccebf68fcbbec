package publish

import "context"

// PrimaryPublisher places a thread of short text segments on the primary
// platform, attaching the thumbnail to the first segment. Returns the URL of
// the first segment. Errors are *TransientError or *PermanentError.
type PrimaryPublisher interface {
	PublishThread(ctx context.Context, segments []string, thumbnailPath string) (string, error)
}

// SecondaryPublisher submits a title/body post to each target group. Returns
// the permalinks of successful submissions.
type SecondaryPublisher interface {
	PublishPost(ctx context.Context, title, body string, groups []string) ([]string, error)
}
