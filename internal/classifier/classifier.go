// Package classifier assigns a category to submission text with a single
// zero-temperature completion call.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/JaimeStill/bugcrowd-triage/internal/categories"
)

// FallbackReasoning is recorded when the completion call or its parsing fails.
const FallbackReasoning = "An error occurred during classification. Please check application logs."

// Result is a classification outcome. Category is always a member of the
// configured set.
type Result struct {
	Category  categories.Category
	Reasoning string
}

// Classifier wraps the completion client and the category set it maps into.
type Classifier struct {
	client    anthropic.Client
	model     anthropic.Model
	prompt    string
	maxTokens int64
	delay     time.Duration
	set       *categories.Set
	logger    *slog.Logger
}

// New creates a Classifier. Request options are appended after the API key,
// so callers can redirect the base URL or adjust retries.
func New(cfg *Config, set *categories.Set, logger *slog.Logger, opts ...option.RequestOption) *Classifier {
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	return &Classifier{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		prompt:    cfg.Prompt,
		maxTokens: int64(cfg.MaxTokens),
		delay:     cfg.DelayDuration(),
		set:       set,
		logger:    logger.With("system", "classifier"),
	}
}

// Classify returns the category for text. It never fails: any transport,
// response or parsing problem yields the default category.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	fallback := Result{Category: c.set.Default(), Reasoning: FallbackReasoning}

	if err := c.wait(ctx); err != nil {
		c.logger.WarnContext(ctx, "classification cancelled", "error", err)
		return fallback
	}

	c.logger.InfoContext(ctx, "classifying submission text")

	content, err := c.complete(ctx, text)
	if err != nil {
		c.logger.ErrorContext(ctx, "classification request failed", "error", err)
		return fallback
	}

	result, ok := Parse(c.set, content)
	if !ok {
		c.logger.ErrorContext(ctx, "classification response has no category line", "response", content)
		return fallback
	}

	c.logger.InfoContext(ctx, "submission classified", "category", result.Category.String())
	return result
}

func (c *Classifier) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Classifier) complete(ctx context.Context, text string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: c.prompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Parse splits content on its last newline into a label and an explanation.
// An unrecognized label maps to the default category with the explanation
// kept. ok is false when content has no newline to split on.
func Parse(set *categories.Set, content string) (Result, bool) {
	idx := strings.LastIndex(content, "\n")
	if idx < 0 {
		return Result{}, false
	}

	label := content[:idx]
	explanation := strings.TrimSpace(content[idx+1:])

	category, ok := set.Parse(label)
	if !ok {
		return Result{Category: set.Default(), Reasoning: explanation}, true
	}
	return Result{Category: category, Reasoning: explanation}, true
}
