package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Local is the on-device inference backend, speaking the OpenAI-compatible
// chat API of a llama.cpp or ollama style server. It carries no built-in
// system prompt: callers must inline the system instruction into every
// prompt. The stop-marker cut happens client-side because local servers do
// not reliably honor stop sequences.
type Local struct {
	client openai.Client
	model  string
	loaded bool
}

// NewLocal creates the local backend. An empty endpoint or model name yields
// a backend that reports ErrModelNotLoaded on use rather than an empty
// stream, mirroring a model that was never loaded.
func NewLocal(endpoint, model string) *Local {
	l := &Local{model: model}
	if endpoint == "" || model == "" {
		return l
	}

	// Local servers ignore the API key but the client requires one.
	l.client = openai.NewClient(
		option.WithBaseURL(endpoint),
		option.WithAPIKey("local"),
	)
	l.loaded = true
	return l
}

// Name implements Backend.
func (l *Local) Name() string { return "local model" }

// RequiresSystemPrompt implements Backend.
func (l *Local) RequiresSystemPrompt() bool { return true }

// Loaded reports whether an endpoint and model are configured.
func (l *Local) Loaded() bool { return l.loaded }

// StreamResponse implements Backend.
func (l *Local) StreamResponse(ctx context.Context, prompt string, cb StreamCallback) error {
	if !l.loaded {
		return ErrModelNotLoaded
	}

	stream := l.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
		TopP:        openai.Float(0.4),
	})
	defer func() { _ = stream.Close() }()

	cutter := &stopCutter{cb: cb}

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := cutter.feed(ctx, delta); err != nil {
			if errors.Is(err, errStopMarker) {
				// The deferred Close releases the connection.
				return nil
			}
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("local generation: %w", err)
	}

	return cutter.flush(ctx)
}
