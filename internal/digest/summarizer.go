package digest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultModel   = "claude-3-5-haiku-20241022"
	maxRetries     = 3
	initialBackoff = 1 * time.Second
)

// ErrAPIKeyRequired is returned when an API key is needed but not provided.
var ErrAPIKeyRequired = errors.New("API key required")

// Summarizer condenses a closed issue's title/body/close-reason into a
// short paragraph when they exceed the planner's per-issue byte budget,
// so a handful of verbose closures don't crowd out the recently-closed
// table (spec §4.3).
type Summarizer struct {
	client         anthropic.Client
	model          anthropic.Model
	tmpl           *template.Template
	maxRetries     int
	initialBackoff time.Duration
}

// NewSummarizer creates a Summarizer. ANTHROPIC_API_KEY takes precedence
// over an explicit apiKey, mirroring the teacher's Haiku client.
func NewSummarizer(apiKey string) (*Summarizer, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY environment variable or provide via config", ErrAPIKeyRequired)
	}

	tmpl, err := template.New("digest-summary").Parse(summaryPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing summary template: %w", err)
	}

	return &Summarizer{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          defaultModel,
		tmpl:           tmpl,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// Summarize compresses title/body/closeReason into a short paragraph. The
// caller decides when this is worth the API round-trip (i.e. the
// combined text exceeds the planner's per-issue byte budget).
func (s *Summarizer) Summarize(ctx context.Context, title, body, closeReason string) (string, error) {
	var b strings.Builder
	if err := s.tmpl.Execute(&b, struct{ Title, Body, CloseReason string }{title, body, closeReason}); err != nil {
		return "", fmt.Errorf("rendering summary prompt: %w", err)
	}
	return s.callWithRetry(ctx, b.String())
}

func (s *Summarizer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	params := anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := s.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) > 0 && message.Content[0].Type == "text" {
				return message.Content[0].Text, nil
			}
			return "", fmt.Errorf("unexpected response format")
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}
	return "", fmt.Errorf("failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

const summaryPromptTemplate = `Summarize this closed issue for inclusion in a planning report. The
output MUST be significantly shorter than the input while preserving the
concrete outcome and any decisions that affect future work.

**Title:** {{.Title}}

**Body:**
{{.Body}}

**Close reason:**
{{.CloseReason}}

Reply with one short paragraph. No headings, no bullet points.`
