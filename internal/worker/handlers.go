package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"pod2social/internal/config"
	"pod2social/internal/db"
	"pod2social/internal/dispatch"
	"pod2social/internal/generate"
	"pod2social/internal/models"
	"pod2social/internal/schedule"
	"pod2social/internal/thumbnail"
	"pod2social/internal/youtube"
	"pod2social/pkg/tasks"
)

// Seams for tests.
var (
	checkChannel      = youtube.CheckChannel
	fetchMetadata     = youtube.FetchMetadata
	fetchTranscript   = youtube.FetchTranscript
	readTranscript    = youtube.ReadTranscript
	downloadThumbnail = thumbnail.Download
)

type TaskHandler struct {
	asynqClient tasks.TaskEnqueuer
	cfg         *config.Config
	generator   generate.Generator
	planner     *schedule.Planner
	dispatcher  *dispatch.Dispatcher
}

func NewTaskHandler(client tasks.TaskEnqueuer, cfg *config.Config, generator generate.Generator, planner *schedule.Planner, dispatcher *dispatch.Dispatcher) *TaskHandler {
	return &TaskHandler{
		asynqClient: client,
		cfg:         cfg,
		generator:   generator,
		planner:     planner,
		dispatcher:  dispatcher,
	}
}

// HandleCheckAllChannelsTask fans out one check task per configured channel.
func (h *TaskHandler) HandleCheckAllChannelsTask(ctx context.Context, t *asynq.Task) error {
	log.Printf("Checking %d channel(s)...", len(h.cfg.Channels))

	for _, channel := range h.cfg.Channels {
		task, err := tasks.NewCheckChannelTask(channel)
		if err != nil {
			log.Printf("failed to create check task for channel %s: %v", channel.Name, err)
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("failed to enqueue check task for channel %s: %v", channel.Name, err)
			continue
		}
	}

	log.Println("Finished enqueueing channel checks.")
	return nil
}

// HandleCheckChannelTask lists a channel's recent videos and enqueues a
// processing task for each one not seen before. Re-discovery of a known
// video is a no-op, so re-polling is idempotent.
func (h *TaskHandler) HandleCheckChannelTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.CheckChannelTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	log.Printf("Checking channel: %s", p.Channel.Name)

	candidates, err := checkChannel(p.Channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to check channel %s: %w", p.Channel.Name, err)
	}

	queued := 0
	for _, candidate := range candidates {
		// Already discovered on an earlier run?
		_, err := db.GetEpisodeByVideoID(candidate.VideoID)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("failed to look up episode %s: %v", candidate.VideoID, err)
			continue
		}

		task, err := tasks.NewProcessEpisodeTask(candidate.VideoID, candidate.Title, p.Channel)
		if err != nil {
			log.Printf("failed to create process task for %s: %v", candidate.VideoID, err)
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("failed to enqueue process task for %s: %v", candidate.VideoID, err)
			continue
		}
		queued++
	}

	log.Printf("Channel %s: %d new video(s) queued", p.Channel.Name, queued)
	return nil
}

// HandleProcessEpisodeTask turns one new video into an episode record plus a
// post bundle. The episode row is only written after generation succeeds, so
// a generation failure leaves the video eligible for the next discovery run.
func (h *TaskHandler) HandleProcessEpisodeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ProcessEpisodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	log.Printf("Processing episode: %s (%s)", p.Title, p.VideoID)

	// A concurrent run may have finished this video already.
	if _, err := db.GetEpisodeByVideoID(p.VideoID); err == nil {
		log.Printf("Episode %s already processed, skipping", p.VideoID)
		return nil
	}

	meta, err := fetchMetadata(p.VideoID)
	if err != nil {
		return fmt.Errorf("failed to fetch metadata for %s: %w", p.VideoID, err)
	}
	title := meta.Title
	if title == "" {
		title = p.Title
	}

	transcriptPath, err := fetchTranscript(p.VideoID)
	if err != nil {
		log.Printf("transcript fetch failed for %s: %v", p.VideoID, err)
	}
	transcript := ""
	if transcriptPath != "" {
		transcript, err = readTranscript(transcriptPath)
		if err != nil {
			log.Printf("failed to read transcript for %s: %v", p.VideoID, err)
			transcript = ""
		}
	}
	if transcript == "" {
		log.Printf("No transcript for %s, falling back to description", p.VideoID)
		transcript = meta.Description
	}
	if transcript == "" {
		log.Printf("No content available for %s, skipping", p.VideoID)
		return nil
	}

	thumbPath := downloadThumbnail(p.VideoID, title)

	content, err := h.generator.Generate(ctx, generate.EpisodeInfo{
		ChannelName: p.Channel.Name,
		Title:       title,
		TopicTags:   p.Channel.TopicTags,
	}, transcript)
	if err != nil {
		// Returned to asynq for retry with backoff; the episode row does
		// not exist yet, so the next discovery run also picks it up.
		return fmt.Errorf("failed to generate content for %s: %w", p.VideoID, err)
	}

	publishedAt := time.Now().UTC()
	if meta.Timestamp > 0 {
		publishedAt = time.Unix(int64(meta.Timestamp), 0).UTC()
	}

	episode := models.Episode{
		VideoID:     p.VideoID,
		ChannelID:   channelIdentifier(p.Channel),
		ChannelName: p.Channel.Name,
		Title:       title,
		PublishedAt: publishedAt,
	}
	if transcriptPath != "" {
		episode.TranscriptPath = &transcriptPath
	}
	if thumbPath != "" {
		episode.ThumbnailPath = &thumbPath
	}
	if _, err := db.CreateEpisode(episode); err != nil {
		return fmt.Errorf("failed to create episode %s: %w", p.VideoID, err)
	}

	tweetsJSON, err := json.Marshal(content.Tweets)
	if err != nil {
		return fmt.Errorf("failed to encode tweets: %w", err)
	}
	groupsJSON, err := json.Marshal(content.SuggestedGroups)
	if err != nil {
		return fmt.Errorf("failed to encode groups: %w", err)
	}

	post, err := db.CreatePost(p.VideoID, string(tweetsJSON), content.RedditTitle, content.RedditBody, string(groupsJSON), h.cfg.AutoApprove)
	if err != nil {
		return fmt.Errorf("failed to create post for %s: %w", p.VideoID, err)
	}

	log.Printf("Episode %s processed, post %d created in state %s", p.VideoID, post.ID, post.State)
	return nil
}

// HandleDispatchTask runs one scheduling pass followed by one dispatch pass.
func (h *TaskHandler) HandleDispatchTask(ctx context.Context, t *asynq.Task) error {
	if err := schedule.Pass(h.planner, time.Now().UTC()); err != nil {
		return fmt.Errorf("scheduling pass failed: %w", err)
	}
	return h.dispatcher.Run(ctx)
}

func channelIdentifier(channel config.Channel) string {
	if channel.ID != "" {
		return channel.ID
	}
	return channel.PlaylistID
}
