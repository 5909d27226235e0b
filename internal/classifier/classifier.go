package classifier

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/xaenox/intent-bot/internal/metrics"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

// DefaultFallbackResponse is returned when the predicted tag has no intent.
const DefaultFallbackResponse = "I'm not sure how to respond to that."

type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Tagger predicts a single intent tag for raw text.
type Tagger interface {
	Tag(ctx context.Context, text string) (string, error)
}

// Vector is a sparse feature vector keyed by vocabulary index.
type Vector map[int]float64

type Vectorizer interface {
	Transform(text string) (Vector, error)
}

type Predictor interface {
	Predict(x Vector) (string, error)
}

// Pipeline chains a vectorizer and a predictor into a Tagger.
type Pipeline struct {
	Vectorizer Vectorizer
	Predictor  Predictor
}

func (p Pipeline) Tag(_ context.Context, text string) (string, error) {
	x, err := p.Vectorizer.Transform(text)
	if err != nil {
		return "", fmt.Errorf("transform input: %w", err)
	}
	tag, err := p.Predictor.Predict(x)
	if err != nil {
		return "", fmt.Errorf("predict tag: %w", err)
	}
	return tag, nil
}

type Option func(*IntentClassifier)

// WithFallback overrides the response used for unknown tags.
func WithFallback(response string) Option {
	return func(c *IntentClassifier) {
		if response != "" {
			c.fallback = response
		}
	}
}

// WithRand makes response selection use r instead of the global source.
func WithRand(r *rand.Rand) Option {
	return func(c *IntentClassifier) {
		c.rng = r
	}
}

// IntentClassifier maps text to a templated response through a tag
// prediction and the intent table. It is immutable after construction.
type IntentClassifier struct {
	tagger   Tagger
	intents  []models.Intent
	fallback string
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewIntentClassifier(tagger Tagger, intents []models.Intent, logger *zap.Logger, opts ...Option) *IntentClassifier {
	c := &IntentClassifier{
		tagger:   tagger,
		intents:  intents,
		fallback: DefaultFallbackResponse,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromArtifact builds a classifier that predicts with the artifact's own
// vectorizer and linear model.
func FromArtifact(a *Artifact, logger *zap.Logger, opts ...Option) *IntentClassifier {
	return NewIntentClassifier(a.Pipeline(), a.Intents, logger, opts...)
}

func (c *IntentClassifier) Classify(ctx context.Context, text string) (string, error) {
	tag, err := c.Tag(ctx, text)
	if err != nil {
		return "", err
	}
	return c.Respond(tag), nil
}

func (c *IntentClassifier) Tag(ctx context.Context, text string) (string, error) {
	tag, err := c.tagger.Tag(ctx, text)
	if err != nil {
		return "", err
	}
	metrics.IntentsTotal.WithLabelValues(tag).Inc()
	c.logger.Debug("Predicted intent", zap.String("tag", tag))
	return tag, nil
}

// Respond picks a random response of the first intent tagged tag.
func (c *IntentClassifier) Respond(tag string) string {
	for _, intent := range c.intents {
		if intent.Tag != tag {
			continue
		}
		if len(intent.Responses) == 0 {
			break
		}
		return intent.Responses[c.intN(len(intent.Responses))]
	}
	return c.fallback
}

// Tags lists the intent tags in table order.
func (c *IntentClassifier) Tags() []string {
	tags := make([]string, 0, len(c.intents))
	for _, intent := range c.intents {
		tags = append(tags, intent.Tag)
	}
	return tags
}

func (c *IntentClassifier) intN(n int) int {
	if c.rng == nil {
		return rand.IntN(n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}
