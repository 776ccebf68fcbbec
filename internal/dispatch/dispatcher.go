package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"pod2social/internal/config"
	"pod2social/internal/db"
	"pod2social/internal/publish"
)

// Notifier surfaces dead-lettered posts for operator attention.
type Notifier interface {
	NotifyDeadLetter(episodeTitle, platform, errMsg string)
}

// Dispatcher claims due posts and publishes them in dependency order:
// primary first, secondary only after a successful primary. It is built for
// repeated short-lived invocations; overlapping runs are safe because every
// mutation is an atomic claim on the post row.
type Dispatcher struct {
	primary   publish.PrimaryPublisher
	secondary publish.SecondaryPublisher
	groups    map[string][]config.Group
	sched     config.Schedule
	notifier  Notifier
	dryRun    bool

	now func() time.Time
}

func New(primary publish.PrimaryPublisher, secondary publish.SecondaryPublisher, cfg *config.Config, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		primary:   primary,
		secondary: secondary,
		groups:    cfg.Groups,
		sched:     cfg.Schedule,
		notifier:  notifier,
		dryRun:    cfg.DryRun,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one dispatch pass: at most one attempt per due post per
// platform. Publish errors are isolated per post; only query failures abort
// the pass.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.runPrimary(ctx); err != nil {
		return err
	}
	return d.runSecondary(ctx)
}

func (d *Dispatcher) runPrimary(ctx context.Context) error {
	due, err := db.GetDuePrimary(d.now())
	if err != nil {
		return fmt.Errorf("failed to load due primary posts: %w", err)
	}

	for _, post := range due {
		claimed, err := db.ClaimPrimary(post.ID)
		if err != nil {
			log.Printf("Dispatcher: failed to claim post %d: %v", post.ID, err)
			continue
		}
		if !claimed {
			// Another invocation got there first.
			continue
		}
		d.attemptPrimary(ctx, post)
	}
	return nil
}

func (d *Dispatcher) attemptPrimary(ctx context.Context, post db.PostDetail) {
	segments, err := decodeSegments(post.Tweets)
	if err != nil {
		log.Printf("Dispatcher: post %d has malformed thread content: %v", post.ID, err)
		d.settlePrimary(post, publish.Permanentf("malformed thread content: %v", err))
		return
	}
	segments = substituteLink(segments, post.VideoID)

	if d.dryRun {
		log.Printf("Dispatcher: [DRY_RUN] would post %d-segment thread for %q", len(segments), post.EpisodeTitle)
		if err := db.ReleasePrimaryClaim(post.ID); err != nil {
			log.Printf("Dispatcher: failed to release claim on post %d: %v", post.ID, err)
		}
		return
	}

	thumbnail := ""
	if post.ThumbnailPath != nil {
		thumbnail = *post.ThumbnailPath
	}

	url, err := d.primary.PublishThread(ctx, segments, thumbnail)
	if err != nil {
		d.settlePrimary(post, err)
		return
	}

	if err := db.MarkPrimaryPosted(post.ID, url, d.now()); err != nil {
		log.Printf("Dispatcher: failed to record primary success for post %d: %v", post.ID, err)
		return
	}
	log.Printf("Dispatcher: posted thread for %q: %s", post.EpisodeTitle, url)
}

// settlePrimary routes a primary failure through the retry policy.
func (d *Dispatcher) settlePrimary(post db.PostDetail, pubErr error) {
	attempt := post.AttemptsPrimary + 1
	if publish.IsTransient(pubErr) && attempt < d.sched.MaxAttempts {
		next := d.now().Add(Backoff(d.sched.BackoffBase(), attempt))
		if err := db.DeferPrimary(post.ID, next, pubErr.Error()); err != nil {
			log.Printf("Dispatcher: failed to defer post %d: %v", post.ID, err)
			return
		}
		log.Printf("Dispatcher: transient primary failure for post %d (attempt %d/%d), retrying at %s: %v",
			post.ID, attempt, d.sched.MaxAttempts, next.Format(time.RFC3339), pubErr)
		return
	}

	if err := db.FailPrimary(post.ID, pubErr.Error()); err != nil {
		log.Printf("Dispatcher: failed to dead-letter post %d: %v", post.ID, err)
		return
	}
	log.Printf("Dispatcher: post %d dead-lettered after primary failure: %v", post.ID, pubErr)
	if d.notifier != nil {
		d.notifier.NotifyDeadLetter(post.EpisodeTitle, "primary", pubErr.Error())
	}
}

func (d *Dispatcher) runSecondary(ctx context.Context) error {
	due, err := db.GetDueSecondary(d.now())
	if err != nil {
		return fmt.Errorf("failed to load due secondary posts: %w", err)
	}

	for _, post := range due {
		claimed, err := db.ClaimSecondary(post.ID)
		if err != nil {
			log.Printf("Dispatcher: failed to claim post %d: %v", post.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		d.attemptSecondary(ctx, post)
	}
	return nil
}

func (d *Dispatcher) attemptSecondary(ctx context.Context, post db.PostDetail) {
	suggested, err := decodeSegments(post.SuggestedGroups)
	if err != nil {
		log.Printf("Dispatcher: post %d has malformed group list: %v", post.ID, err)
		d.settleSecondary(post, publish.Permanentf("malformed group list: %v", err))
		return
	}

	groups := publish.FilterGroups(suggested, d.groups, d.sched.MaxGroups)
	if len(groups) == 0 {
		// No allowed target: nothing to deliver, and the primary is already
		// out. Settle as fully posted with an empty target list.
		log.Printf("Dispatcher: post %d has no allowed groups, skipping secondary", post.ID)
		if err := db.MarkPosted(post.ID, "", d.now()); err != nil {
			log.Printf("Dispatcher: failed to record empty secondary for post %d: %v", post.ID, err)
		}
		return
	}

	if d.dryRun {
		log.Printf("Dispatcher: [DRY_RUN] would post %q to %s", post.RedditTitle, strings.Join(groups, ", "))
		if err := db.ReleaseSecondaryClaim(post.ID); err != nil {
			log.Printf("Dispatcher: failed to release claim on post %d: %v", post.ID, err)
		}
		return
	}

	urls, err := d.secondary.PublishPost(ctx, post.RedditTitle, post.RedditBody, groups)
	if err != nil {
		d.settleSecondary(post, err)
		return
	}

	if err := db.MarkPosted(post.ID, strings.Join(urls, ","), d.now()); err != nil {
		log.Printf("Dispatcher: failed to record secondary success for post %d: %v", post.ID, err)
		return
	}
	log.Printf("Dispatcher: posted %q to %d group(s)", post.RedditTitle, len(urls))
}

// settleSecondary routes a secondary failure through the retry policy. A
// permanently failed secondary settles as PARTIALLY_POSTED: the primary
// deliverable is not undone.
func (d *Dispatcher) settleSecondary(post db.PostDetail, pubErr error) {
	attempt := post.AttemptsSecondary + 1
	if publish.IsTransient(pubErr) && attempt < d.sched.MaxAttempts {
		next := d.now().Add(Backoff(d.sched.BackoffBase(), attempt))
		if err := db.DeferSecondary(post.ID, next, pubErr.Error()); err != nil {
			log.Printf("Dispatcher: failed to defer post %d: %v", post.ID, err)
			return
		}
		log.Printf("Dispatcher: transient secondary failure for post %d (attempt %d/%d), retrying at %s: %v",
			post.ID, attempt, d.sched.MaxAttempts, next.Format(time.RFC3339), pubErr)
		return
	}

	if err := db.FailSecondary(post.ID, pubErr.Error()); err != nil {
		log.Printf("Dispatcher: failed to settle post %d: %v", post.ID, err)
		return
	}
	log.Printf("Dispatcher: post %d settled as partially posted: %v", post.ID, pubErr)
	if d.notifier != nil {
		d.notifier.NotifyDeadLetter(post.EpisodeTitle, "secondary", pubErr.Error())
	}
}

func decodeSegments(raw string) ([]string, error) {
	var segments []string
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// substituteLink replaces the [LINK] placeholder with the episode URL.
func substituteLink(segments []string, videoID string) []string {
	url := "https://youtu.be/" + videoID
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = strings.ReplaceAll(s, "[LINK]", url)
	}
	return out
}
