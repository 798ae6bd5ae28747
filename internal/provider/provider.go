// Package provider adapts the hosted model endpoint behind a narrow
// completion contract.
//
// The adapter is a thin pass-through over Genkit: it forwards a prepared
// message list, applies the configured temperature and output-length
// ceiling, and relays streamed fragments to the caller in arrival order.
// No retries, no batching; one attempt, fail fast (callers surface the
// error upward).
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// StreamCallback receives one text fragment as it arrives from the
// model. Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, delta string) error

// Config holds provider tuning. MaxTokens is always applied to bound
// cost and latency; Temperature should stay moderate and non-zero.
type Config struct {
	Provider    string // "gemini", "openai", or "ollama"
	ModelName   string // unqualified model name from configuration
	Temperature float64
	MaxTokens   int
}

// Provider invokes the configured model through Genkit.
type Provider struct {
	g           *genkit.Genkit
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// New creates a provider bound to an initialized Genkit instance.
func New(g *genkit.Genkit, cfg Config, logger *slog.Logger) (*Provider, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, errors.New("max tokens ceiling is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	model, err := QualifiedModel(cfg.Provider, cfg.ModelName)
	if err != nil {
		return nil, err
	}

	return &Provider{
		g:           g,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// QualifiedModel maps a provider identifier and bare model name to the
// plugin-qualified name Genkit resolves models by.
func QualifiedModel(providerName, modelName string) (string, error) {
	if modelName == "" {
		return "", errors.New("model name is required")
	}
	// A name that already carries a plugin prefix is used as-is.
	if strings.Contains(modelName, "/") {
		return modelName, nil
	}

	switch providerName {
	case "gemini", "":
		return "googleai/" + modelName, nil
	case "openai":
		return "openai/" + modelName, nil
	case "ollama":
		return "ollama/" + modelName, nil
	default:
		return "", fmt.Errorf("unknown provider %q", providerName)
	}
}

// Complete sends the message list to the model and returns the full
// reply text. When cb is non-nil the model is invoked in streaming mode
// and every text fragment is forwarded to cb in arrival order before
// the final text is returned.
func (p *Provider) Complete(ctx context.Context, msgs []*ai.Message, cb StreamCallback) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(p.model),
		ai.WithMessages(msgs...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     p.temperature,
			MaxOutputTokens: p.maxTokens,
		}),
	}

	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				if err := cb(ctx, part.Text); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	p.logger.Debug("invoking completion provider",
		"model", p.model,
		"messages", len(msgs),
		"streaming", cb != nil)

	resp, err := genkit.Generate(ctx, p.g, opts...)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	return resp.Text(), nil
}
