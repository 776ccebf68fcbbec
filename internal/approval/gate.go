package approval

import (
	"errors"
	"fmt"
	"time"

	"pod2social/internal/db"
)

// ErrInvalidTransition is returned when a decision is applied to a post that
// is not pending review (already decided or terminal).
var ErrInvalidTransition = errors.New("post is not pending review")

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionSkip    Decision = "skip"
)

// Decide applies a review decision to a post. Approve and reject require the
// post to be in PENDING_REVIEW; skip leaves it there for a later pass.
func Decide(postID int64, decision Decision) error {
	switch decision {
	case DecisionApprove:
		n, err := db.ApprovePost(postID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to approve post %d: %w", postID, err)
		}
		if n == 0 {
			return fmt.Errorf("approve post %d: %w", postID, ErrInvalidTransition)
		}
		return nil
	case DecisionReject:
		n, err := db.RejectPost(postID)
		if err != nil {
			return fmt.Errorf("failed to reject post %d: %w", postID, err)
		}
		if n == 0 {
			return fmt.Errorf("reject post %d: %w", postID, ErrInvalidTransition)
		}
		return nil
	case DecisionSkip:
		return nil
	default:
		return fmt.Errorf("unknown decision %q", decision)
	}
}
