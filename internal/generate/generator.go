package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GenerationError means the model output did not match the expected shape.
// The episode is left unprocessed and picked up again on the next discovery
// run.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return "content generation failed: " + e.Reason
}

// EpisodeInfo is the input to content generation.
type EpisodeInfo struct {
	ChannelName string
	Title       string
	TopicTags   []string
}

// Content is the validated post bundle for both platforms.
type Content struct {
	Tweets          []string
	RedditTitle     string
	RedditBody      string
	SuggestedGroups []string
}

// Generator produces a post bundle from an episode transcript.
type Generator interface {
	Generate(ctx context.Context, ep EpisodeInfo, transcript string) (*Content, error)
}

const summarizePrompt = `You are a podcast editor. Summarize this episode of "%s" titled "%s".
Output as JSON only, no other text:
{
  "overview": "2-3 sentence episode overview",
  "key_points": ["5-8 key takeaways"],
  "quotes": ["up to 3 short memorable quotes"]
}

Transcript:
%s`

const threadPrompt = `You are a social media editor for the podcast "%s". Turn this episode summary into an engaging X thread about "%s".
Rules:
1. 3 to 6 tweets, each at most 260 characters
2. First tweet hooks the reader, no hashtag spam
3. Exactly one tweet contains the placeholder [LINK] for the episode link
Output as JSON only, no other text:
{"tweets": ["..."]}

Summary:
%s`

const redditPrompt = `You are a community manager for the podcast "%s". Turn this episode summary into a Reddit text post about "%s".
The episode covers these topics: %s.
Rules:
1. Conversational title, no clickbait
2. Body of 2-4 short paragraphs ending with the placeholder [LINK]
3. Suggest up to 5 relevant subreddits
Output as JSON only, no other text:
{"title": "...", "body": "...", "suggested_subreddits": ["..."]}

Summary:
%s`

// chunkSize keeps one transcript chunk comfortably inside the model context.
// Speech runs ~800 chars/min, so a 40k chunk is about 50 minutes of audio.
const chunkSize = 40_000

// OpenAIGenerator implements Generator with a summarize-then-write pipeline:
// long transcripts are summarized chunk by chunk, then the final summary
// drives both platform outputs.
type OpenAIGenerator struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewOpenAIGenerator() *OpenAIGenerator {
	client := openai.NewClient(option.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
	return &OpenAIGenerator{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, ep EpisodeInfo, transcript string) (*Content, error) {
	summary, err := g.summarize(ctx, ep, transcript)
	if err != nil {
		return nil, err
	}

	tweets, err := g.generateThread(ctx, ep, summary)
	if err != nil {
		return nil, err
	}

	title, body, groups, err := g.generateRedditPost(ctx, ep, summary)
	if err != nil {
		return nil, err
	}

	content := &Content{
		Tweets:          tweets,
		RedditTitle:     title,
		RedditBody:      body,
		SuggestedGroups: groups,
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	return content, nil
}

type episodeSummary struct {
	Overview  string   `json:"overview"`
	KeyPoints []string `json:"key_points"`
	Quotes    []string `json:"quotes"`
}

func (g *OpenAIGenerator) summarize(ctx context.Context, ep EpisodeInfo, transcript string) (string, error) {
	// Long episodes are summarized chunk by chunk; each pass sees the
	// summary so far, so later chunks are understood in context.
	var rendered string
	for _, chunk := range chunkTranscript(transcript, chunkSize) {
		input := chunk
		if rendered != "" {
			input = "Summary of the episode so far:\n" + rendered + "\n\nTranscript continues:\n" + chunk
		}
		raw, err := g.call(ctx, fmt.Sprintf(summarizePrompt, ep.ChannelName, ep.Title, input))
		if err != nil {
			return "", err
		}
		var s episodeSummary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return "", &GenerationError{Reason: fmt.Sprintf("summary is not valid JSON: %v", err)}
		}
		if s.Overview == "" || len(s.KeyPoints) == 0 {
			return "", &GenerationError{Reason: "summary is missing overview or key points"}
		}
		rendered = renderSummary(s)
	}
	if rendered == "" {
		return "", &GenerationError{Reason: "empty transcript"}
	}
	return rendered, nil
}

func renderSummary(s episodeSummary) string {
	var b strings.Builder
	b.WriteString(s.Overview)
	b.WriteString("\n\nKey points:\n")
	for _, p := range s.KeyPoints {
		b.WriteString("- " + p + "\n")
	}
	for _, q := range s.Quotes {
		b.WriteString("Quote: " + q + "\n")
	}
	return b.String()
}

func (g *OpenAIGenerator) generateThread(ctx context.Context, ep EpisodeInfo, summary string) ([]string, error) {
	raw, err := g.call(ctx, fmt.Sprintf(threadPrompt, ep.ChannelName, ep.Title, summary))
	if err != nil {
		return nil, err
	}
	var out struct {
		Tweets []string `json:"tweets"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &GenerationError{Reason: fmt.Sprintf("thread is not valid JSON: %v", err)}
	}
	return out.Tweets, nil
}

func (g *OpenAIGenerator) generateRedditPost(ctx context.Context, ep EpisodeInfo, summary string) (string, string, []string, error) {
	raw, err := g.call(ctx, fmt.Sprintf(redditPrompt, ep.ChannelName, ep.Title, strings.Join(ep.TopicTags, ", "), summary))
	if err != nil {
		return "", "", nil, err
	}
	var out struct {
		Title               string   `json:"title"`
		Body                string   `json:"body"`
		SuggestedSubreddits []string `json:"suggested_subreddits"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", "", nil, &GenerationError{Reason: fmt.Sprintf("reddit post is not valid JSON: %v", err)}
	}
	return out.Title, out.Body, out.SuggestedSubreddits, nil
}

func (g *OpenAIGenerator) call(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Reason: "no response from model"}
	}
	return cleanJSONResponse(resp.Choices[0].Message.Content), nil
}

// cleanJSONResponse strips markdown code fences the model sometimes wraps
// around its JSON output.
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func chunkTranscript(transcript string, size int) []string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}
	var chunks []string
	for len(transcript) > size {
		cut := strings.LastIndex(transcript[:size], " ")
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, transcript[:cut])
		transcript = transcript[cut:]
	}
	return append(chunks, transcript)
}
