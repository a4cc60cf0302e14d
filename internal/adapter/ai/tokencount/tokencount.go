// Package tokencount budgets prompt sizes for OpenAI-compatible chat models.
//
// Counts come from tiktoken-go. When no encoding can be loaded the counter
// falls back to an estimate of four bytes per token.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

const (
	// per-message framing used by chat completion APIs
	tokensPerMessage = 4
	replyPriming     = 3
	bytesPerToken    = 4
)

// Counter is safe for concurrent use.
type Counter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter returns a counter for model. Unknown models use cl100k_base.
func NewCounter(model string) *Counter {
	return &Counter{model: normalizeModelName(model)}
}

func (c *Counter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err != nil {
			slog.Warn("token encoding unavailable, estimating", slog.String("model", c.model), slog.Any("error", err))
			return
		}
		c.enc = enc
	})
	return c.enc
}

// normalizeModelName strips provider prefixes and maps families tiktoken does
// not know to gpt-4.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.HasPrefix(model, "gpt-4o"):
		return "gpt-4o"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + bytesPerToken - 1) / bytesPerToken
}

// ChatTokens counts a system+user prompt including message framing.
func (c *Counter) ChatTokens(systemPrompt, userPrompt string) int {
	return 2*tokensPerMessage + c.Count(systemPrompt) + c.Count(userPrompt) + replyPriming
}

// Truncate returns the longest prefix of text that fits in maxTokens.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.Count(text) <= maxTokens {
		return text
	}
	if enc := c.encoding(); enc != nil {
		ids := enc.Encode(text, nil, nil)
		return strings.ToValidUTF8(enc.Decode(ids[:maxTokens]), "")
	}
	cut := maxTokens * bytesPerToken
	if cut > len(text) {
		cut = len(text)
	}
	return strings.ToValidUTF8(text[:cut], "")
}
