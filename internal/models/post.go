package models

import "time"

// Post states. A post carries both platforms on one row; POSTING_* are
// short-lived claim states that guard against overlapping dispatcher runs.
const (
	StatePendingReview    = "PENDING_REVIEW"
	StateApproved         = "APPROVED"
	StateRejected         = "REJECTED"
	StatePostingPrimary   = "POSTING_PRIMARY"
	StatePrimaryPosted    = "PRIMARY_POSTED"
	StatePostingSecondary = "POSTING_SECONDARY"
	StatePosted           = "POSTED"
	StatePartiallyPosted  = "PARTIALLY_POSTED"
	StateFailed           = "FAILED"
)

type Post struct {
	ID                   int64      `db:"id"`
	VideoID              string     `db:"video_id"`
	Tweets               string     `db:"tweets"` // JSON array of thread segments
	RedditTitle          string     `db:"reddit_title"`
	RedditBody           string     `db:"reddit_body"`
	SuggestedGroups      string     `db:"suggested_groups"` // JSON array of subreddit names
	State                string     `db:"state"`
	ScheduledPrimary     *time.Time `db:"scheduled_primary"`
	ScheduledSecondary   *time.Time `db:"scheduled_secondary"`
	NextAttemptPrimary   *time.Time `db:"next_attempt_primary"`
	NextAttemptSecondary *time.Time `db:"next_attempt_secondary"`
	ApprovedAt           *time.Time `db:"approved_at"`
	PostedAtPrimary      *time.Time `db:"posted_at_primary"`
	PostedAtSecondary    *time.Time `db:"posted_at_secondary"`
	AttemptsPrimary      int        `db:"attempts_primary"`
	AttemptsSecondary    int        `db:"attempts_secondary"`
	LastError            *string    `db:"last_error"`
	PrimaryURL           *string    `db:"primary_url"`
	SecondaryURLs        *string    `db:"secondary_urls"`
	CreatedAt            time.Time  `db:"created_at"`
}

// Terminal reports whether the post can no longer change state.
func (p *Post) Terminal() bool {
	switch p.State {
	case StateRejected, StatePosted, StatePartiallyPosted, StateFailed:
		return true
	}
	return false
}
