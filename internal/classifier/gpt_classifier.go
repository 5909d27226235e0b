package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GPTTagger asks a chat model to choose one of the known intent tags and
// falls back to another Tagger when the answer is unusable.
type GPTTagger struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	tags        []string
	fallback    Tagger
	logger      *zap.Logger
}

func NewGPTTagger(client *openai.Client, model string, maxTokens int, temperature float64, tags []string, fallback Tagger, logger *zap.Logger) *GPTTagger {
	return &GPTTagger{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		tags:        tags,
		fallback:    fallback,
		logger:      logger,
	}
}

func (t *GPTTagger) Tag(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Classify the user's message into exactly one of these intent tags:
%s

Reply with the tag only, nothing else.

Message: %s`, strings.Join(t.tags, "\n"), text)

	resp, err := t.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: t.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   t.maxTokens,
			Temperature: float32(t.temperature),
		},
	)
	if err != nil {
		t.logger.Error("Failed to get GPT response", zap.Error(err))
		return t.fallbackTag(ctx, text, err)
	}
	if len(resp.Choices) == 0 {
		t.logger.Error("GPT response has no choices")
		return t.fallbackTag(ctx, text, errors.New("empty completion"))
	}

	answer := resp.Choices[0].Message.Content
	tag, ok := t.match(answer)
	if !ok {
		t.logger.Warn("GPT answered with an unknown tag", zap.String("response", answer))
		return t.fallbackTag(ctx, text, fmt.Errorf("unknown tag %q", answer))
	}
	return tag, nil
}

func (t *GPTTagger) match(answer string) (string, bool) {
	answer = strings.Trim(strings.TrimSpace(answer), "\"'`.")
	for _, tag := range t.tags {
		if strings.EqualFold(tag, answer) {
			return tag, true
		}
	}
	return "", false
}

func (t *GPTTagger) fallbackTag(ctx context.Context, text string, cause error) (string, error) {
	if t.fallback == nil {
		return "", fmt.Errorf("gpt tagging failed: %w", cause)
	}
	return t.fallback.Tag(ctx, text)
}
