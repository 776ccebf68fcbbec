package generate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxTweets    = 25
	maxTweetLen  = 280
	maxTitleLen  = 300
	// X wraps every URL to a fixed-length t.co link.
	linkLength = 23
)

// ValidateContent enforces the content schema strictly. Model output that
// does not fit is rejected as a GenerationError, never coerced.
func ValidateContent(c *Content) error {
	if len(c.Tweets) == 0 {
		return &GenerationError{Reason: "no tweets generated"}
	}
	if len(c.Tweets) > maxTweets {
		return &GenerationError{Reason: fmt.Sprintf("%d tweets exceeds the maximum of %d", len(c.Tweets), maxTweets)}
	}
	for i, tweet := range c.Tweets {
		if strings.TrimSpace(tweet) == "" {
			return &GenerationError{Reason: fmt.Sprintf("tweet %d is empty", i+1)}
		}
		if n := tweetLength(tweet); n > maxTweetLen {
			return &GenerationError{Reason: fmt.Sprintf("tweet %d is %d characters, over the %d limit", i+1, n, maxTweetLen)}
		}
	}

	if strings.TrimSpace(c.RedditTitle) == "" {
		return &GenerationError{Reason: "reddit title is empty"}
	}
	if utf8.RuneCountInString(c.RedditTitle) > maxTitleLen {
		return &GenerationError{Reason: "reddit title is over the length limit"}
	}
	if strings.TrimSpace(c.RedditBody) == "" {
		return &GenerationError{Reason: "reddit body is empty"}
	}
	return nil
}

// tweetLength counts characters the way the platform does: the [LINK]
// placeholder becomes a fixed-length shortened URL.
func tweetLength(tweet string) int {
	n := utf8.RuneCountInString(tweet)
	if strings.Contains(tweet, "[LINK]") {
		n = n - len("[LINK]") + linkLength
	}
	return n
}
