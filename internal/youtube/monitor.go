package youtube

import (
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"pod2social/internal/config"
)

var execCommand = exec.Command

// recencyWindow is how far back a video may have been published and still
// count as new. 25 hours instead of 24 buffers timezone edge cases around a
// daily discovery cadence.
const recencyWindow = 25 * time.Hour

// Candidate is a newly published video before deduplication.
type Candidate struct {
	VideoID     string
	Title       string
	PublishedAt time.Time
}

type flatPlaylistEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	UploadDate string  `json:"upload_date"`
	Timestamp  float64 `json:"timestamp"`
}

// CheckChannel lists recent videos for one configured channel via yt-dlp.
// An explicit playlist_id (podcast tab) takes precedence over the channel's
// uploads feed, and the optional keyword filter drops non-episode uploads.
func CheckChannel(channel config.Channel, now time.Time) ([]Candidate, error) {
	url, err := sourceURL(channel)
	if err != nil {
		return nil, err
	}

	cmd := execCommand("yt-dlp",
		"--flat-playlist",
		"--playlist-end", "25",
		"-j",
		url,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to execute yt-dlp: %w, output: %s", err, string(output))
	}

	cutoff := now.Add(-recencyWindow)
	keywords := lowered(channel.CheckKeywords)

	var candidates []Candidate
	// The output is a stream of JSON objects, one per line.
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}
		var entry flatPlaylistEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Printf("youtube: failed to unmarshal playlist entry: %v", err)
			continue
		}
		if entry.ID == "" {
			continue
		}

		published, ok := entryTime(entry)
		if !ok || published.Before(cutoff) {
			continue
		}
		if len(keywords) > 0 && !matchesKeywords(entry.Title, keywords) {
			continue
		}

		candidates = append(candidates, Candidate{
			VideoID:     entry.ID,
			Title:       entry.Title,
			PublishedAt: published,
		})
	}
	return candidates, nil
}

func sourceURL(channel config.Channel) (string, error) {
	if channel.PlaylistID != "" {
		return "https://www.youtube.com/playlist?list=" + channel.PlaylistID, nil
	}
	if channel.ID != "" {
		return "https://www.youtube.com/channel/" + channel.ID, nil
	}
	return "", fmt.Errorf("channel %q needs either playlist_id or id", channel.Name)
}

func entryTime(entry flatPlaylistEntry) (time.Time, bool) {
	if entry.Timestamp > 0 {
		return time.Unix(int64(entry.Timestamp), 0).UTC(), true
	}
	if entry.UploadDate != "" {
		// Date-only granularity; treat the upload as end-of-day so a video
		// published late in the day is not cut off prematurely.
		t, err := time.Parse("20060102", entry.UploadDate)
		if err == nil {
			return t.Add(24*time.Hour - time.Second), true
		}
	}
	return time.Time{}, false
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}

func matchesKeywords(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
