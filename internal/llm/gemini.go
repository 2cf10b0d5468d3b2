package llm

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Gemini is the cloud inference backend. The system instruction is attached
// to the client configuration once at construction and is not re-sent per
// turn; callers therefore never inline it into prompts.
type Gemini struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	limiter *rate.Limiter
}

// GeminiConfig contains the construction parameters for the cloud backend.
type GeminiConfig struct {
	APIKey            string
	Model             string
	SystemInstruction string

	// Limiter optionally rate-limits generation calls. Nil disables limiting.
	Limiter *rate.Limiter
}

// NewGemini creates the cloud backend. Returns ErrAPIKeyMissing when no
// credential is configured; this is a precondition failure surfaced before
// any generation is attempted.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	// Low temperature and top-p keep tag emission stable; the server-side
	// stop sequence is backed up by the client-side cut in StreamResponse.
	genCfg := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr[float32](0.3),
		TopP:          genai.Ptr[float32](0.4),
		StopSequences: []string{StopMarker},
	}
	if cfg.SystemInstruction != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		config:  genCfg,
		limiter: cfg.Limiter,
	}, nil
}

// Name implements Backend.
func (g *Gemini) Name() string { return "Gemini cloud model" }

// RequiresSystemPrompt implements Backend. The instruction lives in the
// client configuration, so prompts must not repeat it.
func (g *Gemini) RequiresSystemPrompt() bool { return false }

// StreamResponse implements Backend.
func (g *Gemini) StreamResponse(ctx context.Context, prompt string, cb StreamCallback) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	cutter := &stopCutter{cb: cb}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.config) {
		if err != nil {
			return fmt.Errorf("gemini generation: %w", err)
		}
		if err := cutter.feed(ctx, resp.Text()); err != nil {
			if errors.Is(err, errStopMarker) {
				// Stop consuming; breaking the range loop closes the
				// underlying connection.
				return nil
			}
			return err
		}
	}

	return cutter.flush(ctx)
}
