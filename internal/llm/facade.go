package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

// CallRecorder persists one row per provider call for cost monitoring.
type CallRecorder interface {
	Create(ctx context.Context, call *model.LLMCall) error
}

// Facade hides prompt construction and response parsing behind a single
// query method. It is built once at startup and shared by reference.
type Facade struct {
	providers       map[string]Provider
	order           []string
	defaultProvider string
	timeout         time.Duration
	recorder        CallRecorder
	logger          *zap.Logger
}

// NewFacade creates a facade over providers, tried in the given order after
// the default. An empty defaultProvider selects the first provider.
// recorder may be nil.
func NewFacade(providers []Provider, defaultProvider string, recorder CallRecorder, logger *zap.Logger) (*Facade, error) {
	if len(providers) == 0 {
		return nil, ErrNotConfigured
	}

	f := &Facade{
		providers: make(map[string]Provider, len(providers)),
		recorder:  recorder,
		logger:    logger,
	}
	for _, p := range providers {
		name := p.ProviderName()
		if _, dup := f.providers[name]; dup {
			return nil, fmt.Errorf("duplicate LLM provider %q", name)
		}
		f.providers[name] = p
		f.order = append(f.order, name)
	}

	defaultProvider = strings.ToLower(defaultProvider)
	if defaultProvider == "" {
		defaultProvider = f.order[0]
	}
	if _, ok := f.providers[defaultProvider]; !ok {
		return nil, fmt.Errorf("default LLM provider %q is not configured", defaultProvider)
	}
	f.defaultProvider = defaultProvider

	return f, nil
}

// Build creates the providers that have credentials, in cfg.ProviderOrder.
// It returns ErrNotConfigured when none has.
func Build(ctx context.Context, cfg config.LLMConfig, recorder CallRecorder, logger *zap.Logger) (*Facade, error) {
	var providers []Provider
	for _, name := range cfg.ProviderOrder {
		switch strings.ToLower(name) {
		case "openai":
			if cfg.OpenAI.APIKey != "" {
				providers = append(providers, NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL))
			}
		case "anthropic":
			if cfg.Anthropic.APIKey != "" {
				providers = append(providers, NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.WebSearch))
			}
		case "gemini":
			if cfg.Gemini.APIKey != "" {
				g, err := NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
				if err != nil {
					logger.Warn("skipping gemini provider", zap.Error(err))
					continue
				}
				providers = append(providers, g)
			}
		default:
			logger.Warn("unknown LLM provider in provider_order", zap.String("provider", name))
		}
	}

	if len(providers) == 0 {
		return nil, ErrNotConfigured
	}

	// A default without credentials falls back to the first configured one.
	def := strings.ToLower(cfg.DefaultProvider)
	found := false
	for _, p := range providers {
		if p.ProviderName() == def {
			found = true
		}
	}
	if !found {
		if def != "" {
			logger.Warn("default LLM provider is not configured", zap.String("provider", def))
		}
		def = ""
	}

	f, err := NewFacade(providers, def, recorder, logger)
	if err != nil {
		return nil, err
	}
	f.timeout = cfg.Timeout
	return f, nil
}

// AvailableProviders returns the configured provider names in fallback order.
func (f *Facade) AvailableProviders() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

func (f *Facade) DefaultProvider() string { return f.defaultProvider }

// QueryBuildingInfo asks for year, architect and history of the building at
// address. providerName selects a provider; unknown or empty names use the
// default. If the selected provider fails, the others are tried in order.
// A nil result with a nil error means the model gave no usable answer.
func (f *Facade) QueryBuildingInfo(ctx context.Context, address, photoContext, providerName string) (*model.LLMQueryResult, error) {
	messages := buildPrompt(address, photoContext)

	var lastErr error
	for i, name := range f.attemptOrder(providerName) {
		p := f.providers[name]

		f.logger.Info("querying LLM provider",
			zap.String("provider", name),
			zap.String("address", address),
			zap.Bool("has_photo_context", photoContext != ""),
		)

		raw, err := f.generate(ctx, p, address, messages)
		if err == nil {
			result := parseResponse(raw)
			if result == nil {
				f.logger.Warn("LLM response was not a JSON object",
					zap.String("provider", name),
					zap.String("response", truncate(raw, 200)),
				)
			}
			return result, nil
		}

		lastErr = &ProviderError{Provider: name, Err: err}
		if errors.Is(err, context.Canceled) {
			break
		}
		if i < len(f.order)-1 {
			f.logger.Warn("LLM provider failed, trying next", zap.String("provider", name), zap.Error(err))
		}
	}

	return nil, lastErr
}

func (f *Facade) attemptOrder(providerName string) []string {
	selected := f.defaultProvider
	if providerName != "" {
		normalized := strings.ToLower(providerName)
		if _, ok := f.providers[normalized]; ok {
			selected = normalized
		} else {
			f.logger.Warn("requested LLM provider is not configured, using default",
				zap.String("requested", providerName),
				zap.String("default", f.defaultProvider),
			)
		}
	}

	order := []string{selected}
	for _, name := range f.order {
		if name != selected {
			order = append(order, name)
		}
	}
	return order
}

func (f *Facade) generate(ctx context.Context, p Provider, address string, messages []Message) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := p.Generate(ctx, messages)
	f.recordCall(ctx, p, address, err, time.Since(start).Milliseconds())
	return raw, err
}

func (f *Facade) recordCall(ctx context.Context, p Provider, address string, callErr error, durationMs int64) {
	if f.recorder == nil {
		return
	}
	call := &model.LLMCall{
		AddressHint: address,
		Provider:    p.ProviderName(),
		Model:       p.ModelName(),
		Success:     callErr == nil,
		DurationMs:  &durationMs,
	}
	// The request context may already be past its deadline.
	if err := f.recorder.Create(context.WithoutCancel(ctx), call); err != nil {
		f.logger.Error("recording LLM call", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
