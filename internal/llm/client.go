// Package llm asks a large language model for building facts the map data
// is missing. Each vendor is a Provider; the Facade picks one, builds the
// prompt and normalises the reply into a model.LLMQueryResult.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Chat roles understood by every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrNotConfigured is returned when no provider has credentials.
var ErrNotConfigured = errors.New("no LLM providers configured")

// Message is one turn of a chat prompt.
type Message struct {
	Role    string
	Content string
}

// Provider is the interface every LLM vendor implements. Keep it small: one
// text-in, text-out call plus identification for call accounting.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	ProviderName() string
	ModelName() string
}

// ProviderError wraps a transport, auth or empty-reply failure of one provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("LLM provider %s failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// splitSystem separates system turns from the conversation; Anthropic and
// Gemini take the system prompt as a separate request field.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
