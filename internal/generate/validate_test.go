package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validContent() *Content {
	return &Content{
		Tweets:          []string{"Hook tweet", "Detail tweet", "Listen here [LINK]"},
		RedditTitle:     "We talked about scheduling engines",
		RedditBody:      "Full episode discussion.\n\n[LINK]",
		SuggestedGroups: []string{"r/techpodcasts"},
	}
}

func TestValidateContentAccepts(t *testing.T) {
	assert.NoError(t, ValidateContent(validContent()))
}

func TestValidateContentRejectsEmptyThread(t *testing.T) {
	c := validContent()
	c.Tweets = nil

	var genErr *GenerationError
	assert.ErrorAs(t, ValidateContent(c), &genErr)
}

func TestValidateContentRejectsBlankTweet(t *testing.T) {
	c := validContent()
	c.Tweets[1] = "   "
	assert.Error(t, ValidateContent(c))
}

func TestValidateContentRejectsOverlongTweet(t *testing.T) {
	c := validContent()
	c.Tweets[0] = strings.Repeat("x", 281)
	assert.Error(t, ValidateContent(c))
}

func TestValidateContentCountsLinkAsShortenedURL(t *testing.T) {
	// 250 chars + [LINK] counted as 23 = 273, under the limit even though
	// the raw string is under it too; 260 chars + [LINK] = 283, over.
	c := validContent()
	c.Tweets[0] = strings.Repeat("x", 250) + "[LINK]"
	assert.NoError(t, ValidateContent(c))

	c.Tweets[0] = strings.Repeat("x", 260) + "[LINK]"
	assert.Error(t, ValidateContent(c))
}

func TestValidateContentRejectsTooManyTweets(t *testing.T) {
	c := validContent()
	c.Tweets = make([]string, 26)
	for i := range c.Tweets {
		c.Tweets[i] = "tweet"
	}
	assert.Error(t, ValidateContent(c))
}

func TestValidateContentRejectsMissingRedditFields(t *testing.T) {
	c := validContent()
	c.RedditTitle = ""
	assert.Error(t, ValidateContent(c))

	c = validContent()
	c.RedditBody = "  "
	assert.Error(t, ValidateContent(c))
}

func TestChunkTranscript(t *testing.T) {
	assert.Nil(t, chunkTranscript("", 100))

	chunks := chunkTranscript("short transcript", 100)
	assert.Equal(t, []string{"short transcript"}, chunks)

	long := strings.Repeat("word ", 100)
	chunks = chunkTranscript(long, 100)
	assert.Greater(t, len(chunks), 1)
	var total int
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
		total += len(c)
	}
	assert.Equal(t, len(strings.TrimSpace(long)), total)
}
