package thumbnail

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const outputDir = "output/thumbnails"

// baseURL is a variable so tests can point the fetcher at a local server.
var baseURL = "https://img.youtube.com"

// YouTube returns a small placeholder for missing resolutions; real
// thumbnails are always larger than this.
const minThumbnailBytes = 5_000

// Ordered highest to lowest quality.
var qualities = []string{
	"maxresdefault",
	"sddefault",
	"hqdefault",
	"mqdefault",
	"default",
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

var unsafeChars = regexp.MustCompile(`[^\w\s-]`)
var whitespace = regexp.MustCompile(`\s+`)

// Download fetches the highest-resolution thumbnail available for a video
// from the public CDN and returns the local file path. Idempotent: an
// existing file is reused. Returns "" if no thumbnail could be fetched; the
// post then goes out without one.
func Download(videoID, title string) string {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Printf("thumbnail: failed to create output dir: %v", err)
		return ""
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.jpg", videoID, sanitize(title)))
	if _, err := os.Stat(path); err == nil {
		return path
	}

	for _, quality := range qualities {
		url := fmt.Sprintf("%s/vi/%s/%s.jpg", baseURL, videoID, quality)
		if fetchTo(url, path) {
			log.Printf("thumbnail: saved %s for %s", quality, videoID)
			return path
		}
	}

	log.Printf("thumbnail: could not download thumbnail for %s", videoID)
	return ""
}

func fetchTo(url, path string) bool {
	resp, err := httpClient.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil || len(data) < minThumbnailBytes {
		return false
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("thumbnail: failed to write %s: %v", path, err)
		return false
	}
	return true
}

func sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "-")
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
