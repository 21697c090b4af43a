// Package genai adapts Genkit model calls to the answering pipeline's
// Generator contract: one system prompt, one user prompt, answer text out.
//
// Every call is rate limited and retried with exponential backoff, since
// the Gemini API sheds load with 429s and transient 5xx responses.
package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	gemini "google.golang.org/genai"

	"github.com/oakhealth/aftercare/internal/log"
)

// Config carries the generator's dependencies and model settings.
type Config struct {
	// Genkit is the initialized Genkit instance. Required.
	Genkit *genkit.Genkit

	// ModelName is the fully qualified model, e.g. "googleai/gemini-2.5-flash".
	// Required.
	ModelName string

	// Temperature for generation, in [0, 2].
	Temperature float64

	// Limiter throttles outbound model calls.
	// Defaults to 10 requests/sec with a burst of 30.
	Limiter *rate.Limiter

	// Retry overrides the backoff behavior. Defaults to DefaultRetryConfig.
	Retry *RetryConfig

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genai: genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("genai: model name is required")
	}
	return nil
}

// Generator produces answer text through Genkit. Safe for concurrent use.
type Generator struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	limiter     *rate.Limiter
	retry       RetryConfig
	logger      log.Logger
}

// New creates a Generator from cfg.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	return &Generator{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		temperature: float32(cfg.Temperature),
		limiter:     limiter,
		retry:       retry,
		logger:      logger,
	}, nil
}

// Generate runs one model call and returns the response text.
func (gen *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return gen.executeWithRetry(ctx, func(ctx context.Context) (string, error) {
		resp, err := genkit.Generate(ctx, gen.g,
			ai.WithModelName(gen.modelName),
			ai.WithSystem(system),
			ai.WithPrompt(prompt),
			ai.WithConfig(&gemini.GenerateContentConfig{
				Temperature: gemini.Ptr(gen.temperature),
			}),
		)
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		return resp.Text(), nil
	})
}
