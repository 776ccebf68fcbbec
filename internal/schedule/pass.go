package schedule

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"pod2social/internal/db"
)

// Pass assigns schedule times to every approved post that has none yet,
// oldest approval first. Already-scheduled posts are untouched, so re-running
// the pass is idempotent. The whole pass runs under the scheduler advisory
// lock so concurrent passes cannot double-book a window.
func Pass(p *Planner, now time.Time) error {
	return db.WithScheduleLock(func(tx *sqlx.Tx) error {
		posts, err := db.GetUnscheduledApprovedTx(tx)
		if err != nil {
			return fmt.Errorf("failed to load unscheduled posts: %w", err)
		}
		if len(posts) == 0 {
			return nil
		}

		from, to := p.Horizon(now)
		slots, err := db.ClaimedSlotsTx(tx, from, to)
		if err != nil {
			return fmt.Errorf("failed to load claimed slots: %w", err)
		}
		claimed := make(map[string]bool, len(slots))
		for _, s := range slots {
			claimed[p.SlotKey(s)] = true
		}

		for i, post := range posts {
			slot, err := p.Next(now, claimed)
			if errors.Is(err, ErrExhausted) {
				// Later candidates cannot do better; leave the rest
				// unscheduled for a future pass.
				log.Printf("Scheduler: no free window within horizon, %d post(s) left unscheduled", len(posts)-i)
				break
			}
			if err != nil {
				return err
			}

			n, err := db.AssignScheduleTx(tx, post.ID, slot.UTC(), p.Secondary(slot).UTC())
			if err != nil {
				return fmt.Errorf("failed to assign schedule to post %d: %w", post.ID, err)
			}
			if n == 0 {
				continue
			}
			claimed[p.SlotKey(slot)] = true
			log.Printf("Scheduler: post %d (%s) scheduled for %s", post.ID, post.VideoID, p.SlotKey(slot))
		}
		return nil
	})
}
