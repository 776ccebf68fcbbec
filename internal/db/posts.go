package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"pod2social/internal/models"
)

// scheduleLockKey serializes window-scheduler passes across concurrent
// invocations via a Postgres advisory lock.
const scheduleLockKey = 874221

func CreatePost(videoID, tweetsJSON, redditTitle, redditBody, groupsJSON string, autoApprove bool) (models.Post, error) {
	state := models.StatePendingReview
	var approvedAt *time.Time
	if autoApprove {
		state = models.StateApproved
		now := time.Now().UTC()
		approvedAt = &now
	}

	post := models.Post{}
	err := DB.Get(&post, `
		INSERT INTO posts (video_id, tweets, reddit_title, reddit_body, suggested_groups, state, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		videoID, tweetsJSON, redditTitle, redditBody, groupsJSON, state, approvedAt)
	return post, err
}

func GetPostByID(id int64) (models.Post, error) {
	post := models.Post{}
	err := DB.Get(&post, "SELECT * FROM posts WHERE id = $1", id)
	return post, err
}

func GetPostByVideoID(videoID string) (models.Post, error) {
	post := models.Post{}
	err := DB.Get(&post, "SELECT * FROM posts WHERE video_id = $1", videoID)
	return post, err
}

// PostDetail is a post joined with the owning episode, for review and
// dispatch output.
type PostDetail struct {
	models.Post
	EpisodeTitle  string  `db:"episode_title"`
	ChannelName   string  `db:"channel_name"`
	ThumbnailPath *string `db:"thumbnail_path"`
}

func GetPendingPosts() ([]PostDetail, error) {
	var posts []PostDetail
	err := DB.Select(&posts, `
		SELECT p.*, e.title AS episode_title, e.channel_name, e.thumbnail_path
		FROM posts p
		JOIN episodes e ON p.video_id = e.video_id
		WHERE p.state = $1
		ORDER BY p.created_at ASC`,
		models.StatePendingReview)
	return posts, err
}

// UpdatePostState transitions a post from one state to another. Returns the
// number of rows changed; 0 means the post was not in the expected state.
func UpdatePostState(id int64, from, to string) (int64, error) {
	res, err := DB.Exec("UPDATE posts SET state = $1 WHERE id = $2 AND state = $3", to, id, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func ApprovePost(id int64, at time.Time) (int64, error) {
	res, err := DB.Exec(`
		UPDATE posts SET state = $1, approved_at = $2
		WHERE id = $3 AND state = $4`,
		models.StateApproved, at, id, models.StatePendingReview)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func RejectPost(id int64) (int64, error) {
	return UpdatePostState(id, models.StatePendingReview, models.StateRejected)
}

// --- Window scheduler queries (run inside a serialized transaction) ---

// WithScheduleLock runs fn inside a transaction holding the scheduler
// advisory lock, so concurrent scheduling passes cannot double-book windows.
func WithScheduleLock(fn func(tx *sqlx.Tx) error) error {
	tx, err := DB.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("SELECT pg_advisory_xact_lock($1)", scheduleLockKey); err != nil {
		tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetUnscheduledApprovedTx returns approved posts with no schedule yet,
// oldest approval first.
func GetUnscheduledApprovedTx(tx *sqlx.Tx) ([]models.Post, error) {
	var posts []models.Post
	err := tx.Select(&posts, `
		SELECT * FROM posts
		WHERE state = $1 AND scheduled_primary IS NULL
		ORDER BY approved_at ASC`,
		models.StateApproved)
	return posts, err
}

// ClaimedSlotsTx returns every primary schedule time already assigned within
// the horizon, regardless of post state.
func ClaimedSlotsTx(tx *sqlx.Tx, from, to time.Time) ([]time.Time, error) {
	var slots []time.Time
	err := tx.Select(&slots, `
		SELECT scheduled_primary FROM posts
		WHERE scheduled_primary IS NOT NULL
		  AND scheduled_primary >= $1 AND scheduled_primary < $2`,
		from, to)
	return slots, err
}

func AssignScheduleTx(tx *sqlx.Tx, id int64, primary, secondary time.Time) (int64, error) {
	res, err := tx.Exec(`
		UPDATE posts
		SET scheduled_primary = $1, scheduled_secondary = $2,
		    next_attempt_primary = $1, next_attempt_secondary = $2
		WHERE id = $3 AND state = $4 AND scheduled_primary IS NULL`,
		primary, secondary, id, models.StateApproved)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Dispatcher queries ---

func GetDuePrimary(now time.Time) ([]PostDetail, error) {
	var posts []PostDetail
	err := DB.Select(&posts, `
		SELECT p.*, e.title AS episode_title, e.channel_name, e.thumbnail_path
		FROM posts p
		JOIN episodes e ON p.video_id = e.video_id
		WHERE p.state = $1
		  AND p.posted_at_primary IS NULL
		  AND p.scheduled_primary IS NOT NULL AND p.scheduled_primary <= $2
		  AND p.next_attempt_primary <= $2
		ORDER BY p.scheduled_primary ASC`,
		models.StateApproved, now)
	return posts, err
}

func GetDueSecondary(now time.Time) ([]PostDetail, error) {
	var posts []PostDetail
	err := DB.Select(&posts, `
		SELECT p.*, e.title AS episode_title, e.channel_name, e.thumbnail_path
		FROM posts p
		JOIN episodes e ON p.video_id = e.video_id
		WHERE p.state = $1
		  AND p.posted_at_secondary IS NULL
		  AND p.scheduled_secondary IS NOT NULL AND p.scheduled_secondary <= $2
		  AND p.next_attempt_secondary <= $2
		ORDER BY p.scheduled_secondary ASC`,
		models.StatePrimaryPosted, now)
	return posts, err
}

// ClaimPrimary atomically takes ownership of a post's primary publish
// attempt. False means another invocation got there first or the post moved
// on.
func ClaimPrimary(id int64) (bool, error) {
	res, err := DB.Exec(`
		UPDATE posts SET state = $1
		WHERE id = $2 AND state = $3 AND posted_at_primary IS NULL`,
		models.StatePostingPrimary, id, models.StateApproved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func ReleasePrimaryClaim(id int64) error {
	_, err := UpdatePostState(id, models.StatePostingPrimary, models.StateApproved)
	return err
}

func MarkPrimaryPosted(id int64, url string, at time.Time) error {
	_, err := DB.Exec(`
		UPDATE posts
		SET state = $1, posted_at_primary = $2, primary_url = $3, last_error = NULL
		WHERE id = $4 AND state = $5`,
		models.StatePrimaryPosted, at, url, id, models.StatePostingPrimary)
	return err
}

// DeferPrimary records a transient primary failure and re-queues the post
// for a later attempt.
func DeferPrimary(id int64, nextAttempt time.Time, errMsg string) error {
	_, err := DB.Exec(`
		UPDATE posts
		SET state = $1, attempts_primary = attempts_primary + 1,
		    next_attempt_primary = $2, last_error = $3
		WHERE id = $4 AND state = $5`,
		models.StateApproved, nextAttempt, errMsg, id, models.StatePostingPrimary)
	return err
}

// FailPrimary dead-letters the whole post: without a primary the secondary is
// never attempted.
func FailPrimary(id int64, errMsg string) error {
	_, err := DB.Exec(`
		UPDATE posts
		SET state = $1, attempts_primary = attempts_primary + 1, last_error = $2
		WHERE id = $3 AND state = $4`,
		models.StateFailed, errMsg, id, models.StatePostingPrimary)
	return err
}

func ClaimSecondary(id int64) (bool, error) {
	res, err := DB.Exec(`
		UPDATE posts SET state = $1
		WHERE id = $2 AND state = $3 AND posted_at_secondary IS NULL`,
		models.StatePostingSecondary, id, models.StatePrimaryPosted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func ReleaseSecondaryClaim(id int64) error {
	_, err := UpdatePostState(id, models.StatePostingSecondary, models.StatePrimaryPosted)
	return err
}

func MarkPosted(id int64, urls string, at time.Time) error {
	_, err := DB.Exec(`
		UPDATE posts
		SET state = $1, posted_at_secondary = $2, secondary_urls = $3, last_error = NULL
		WHERE id = $4 AND state = $5`,
		models.StatePosted, at, urls, id, models.StatePostingSecondary)
	return err
}

func DeferSecondary(id int64, nextAttempt time.Time, errMsg string) error {
	_, err := DB.Exec(`
		UPDATE posts
		SET state = $1, attempts_secondary = attempts_secondary + 1,
		    next_attempt_secondary = $2, last_error = $3
		WHERE id = $4 AND state = $5`,
		models.StatePrimaryPosted, nextAttempt, errMsg, id, models.StatePostingSecondary)
	return err
}

// FailSecondary settles the post as partially posted: the primary deliverable
// is already out and is not undone.
func FailSecondary(id int64, errMsg string) error {
	_, err := DB.Exec(`
		UPDATE posts
		SET state = $1, attempts_secondary = attempts_secondary + 1, last_error = $2
		WHERE id = $3 AND state = $4`,
		models.StatePartiallyPosted, errMsg, id, models.StatePostingSecondary)
	return err
}

// --- Status queries ---

type StateCount struct {
	State string `db:"state"`
	Count int    `db:"count"`
}

func CountPostsByState() ([]StateCount, error) {
	var counts []StateCount
	err := DB.Select(&counts, `
		SELECT state, COUNT(*) AS count FROM posts
		GROUP BY state ORDER BY state`)
	return counts, err
}

func CountPostsCreatedSince(since time.Time) (int, error) {
	var count int
	err := DB.Get(&count, "SELECT COUNT(*) FROM posts WHERE created_at >= $1", since)
	return count, err
}
