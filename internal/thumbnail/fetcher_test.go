package thumbnail

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	original := baseURL
	baseURL = srv.URL
	t.Cleanup(func() {
		baseURL = original
		srv.Close()
	})

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestDownloadFallsThroughQualityLadder(t *testing.T) {
	var requested []string
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if strings.Contains(r.URL.Path, "maxresdefault") {
			http.NotFound(w, r)
			return
		}
		if strings.Contains(r.URL.Path, "sddefault") {
			// Placeholder image, too small to be real.
			w.Write(make([]byte, 100))
			return
		}
		w.Write(make([]byte, 8_000))
	})

	path := Download("video1", "Episode 12: deep dive!")
	require.NotEmpty(t, path)
	assert.Contains(t, path, "video1_")
	assert.NotContains(t, filepath.Base(path), "!")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 8_000, info.Size())
	assert.Len(t, requested, 3, "stops at the first real thumbnail")
}

func TestDownloadIsIdempotent(t *testing.T) {
	hits := 0
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(make([]byte, 8_000))
	})

	first := Download("video2", "Title")
	second := Download("video2", "Title")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits, "existing file must not be re-downloaded")
}

func TestDownloadGivesUpGracefully(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	assert.Empty(t, Download("video3", "Title"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Episode-12-deep-dive", sanitize("Episode 12: deep dive!"))
	long := strings.Repeat("a", 200)
	assert.Len(t, sanitize(long), 80)
}
