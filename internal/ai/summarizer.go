// Package ai wraps the OpenAI chat completion API behind a small
// summarization interface so callers never touch SDK types directly.
package ai

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the completion API answered without any
// candidate messages.
var ErrNoChoices = errors.New("ai: completion returned no choices")

// systemPrompt frames the task for the model. Transcripts are informal group
// chat, so the summary should read the same way.
const systemPrompt = "You are summarizing last 50 messages in group chat. " +
	"Be not too verbose and use informal language"

// Summarizer condenses a chat transcript into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// completionAPI is the slice of the OpenAI client used here; tests install a
// fake.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAISummarizer implements Summarizer on top of the OpenAI API.
type OpenAISummarizer struct {
	client completionAPI
	model  string
}

// NewOpenAISummarizer builds a summarizer for the given API key. Model may be
// empty, in which case a small default is used.
func NewOpenAISummarizer(apiKey, model string) *OpenAISummarizer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAISummarizer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Summarize sends the transcript with the summarization system prompt and
// returns the model's answer verbatim.
func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("openai completion failed")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
