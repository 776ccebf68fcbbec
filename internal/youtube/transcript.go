package youtube

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const transcriptDir = "output/transcripts"

// VideoMeta is the per-video metadata fetched before generation.
type VideoMeta struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Timestamp   float64 `json:"timestamp"`
}

// FetchMetadata returns the full metadata for a single video.
func FetchMetadata(videoID string) (VideoMeta, error) {
	cmd := execCommand("yt-dlp",
		"--skip-download",
		"-J",
		"https://www.youtube.com/watch?v="+videoID,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return VideoMeta{}, fmt.Errorf("failed to execute yt-dlp: %w, output: %s", err, string(output))
	}

	// Sometimes yt-dlp prints warnings before the JSON.
	jsonStart := strings.Index(string(output), "{")
	if jsonStart == -1 {
		return VideoMeta{}, fmt.Errorf("no JSON in yt-dlp output: %s", string(output))
	}

	var meta VideoMeta
	if err := json.Unmarshal(output[jsonStart:], &meta); err != nil {
		return VideoMeta{}, fmt.Errorf("failed to unmarshal video metadata: %w", err)
	}
	return meta, nil
}

// FetchTranscript downloads the video's (auto-generated) English subtitles
// and returns the local file path, which is stored on the episode as an
// opaque reference. Returns "" if no transcript is available.
func FetchTranscript(videoID string) (string, error) {
	if err := os.MkdirAll(transcriptDir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Join(transcriptDir, videoID)
	existing := base + ".en.vtt"
	if _, err := os.Stat(existing); err == nil {
		return existing, nil
	}

	cmd := execCommand("yt-dlp",
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", "en",
		"--sub-format", "vtt",
		"-o", base,
		"https://www.youtube.com/watch?v="+videoID,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to execute yt-dlp: %w, output: %s", err, string(output))
	}

	if _, err := os.Stat(existing); err != nil {
		// Subtitles disabled for this video.
		return "", nil
	}
	return existing, nil
}

// ReadTranscript loads a transcript file and strips WebVTT timing noise down
// to plain text.
func ReadTranscript(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "WEBVTT" ||
			strings.Contains(line, "-->") ||
			strings.HasPrefix(line, "Kind:") ||
			strings.HasPrefix(line, "Language:") {
			continue
		}
		line = stripVTTTags(line)
		// Auto-generated captions repeat each cue; drop consecutive dupes.
		if line == "" || line == last {
			continue
		}
		b.WriteString(line)
		b.WriteString(" ")
		last = line
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

func stripVTTTags(line string) string {
	for {
		start := strings.Index(line, "<")
		if start == -1 {
			return strings.TrimSpace(line)
		}
		end := strings.Index(line[start:], ">")
		if end == -1 {
			return strings.TrimSpace(line)
		}
		line = line[:start] + line[start+end+1:]
	}
}
