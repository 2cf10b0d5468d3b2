package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/danpun9/memocore/internal/llm"
)

// ScriptedBackend is an llm.Backend that plays back canned turns: call N
// streams script entry N, split into small deltas to exercise accumulation.
// Every prompt received is recorded for assertions.
//
// Thread-safe for concurrent use.
type ScriptedBackend struct {
	mu sync.Mutex

	turns        []string
	next         int
	prompts      []string
	err          error
	systemPrompt bool
	deltaSize    int
	backendName  string
}

// NewScriptedBackend creates a backend that streams the given turns in order.
func NewScriptedBackend(turns ...string) *ScriptedBackend {
	return &ScriptedBackend{
		turns:       turns,
		deltaSize:   7,
		backendName: "scripted model",
	}
}

// RequireSystemPrompt makes the backend report that callers must inline the
// system instruction, as the local backend does.
func (s *ScriptedBackend) RequireSystemPrompt() *ScriptedBackend {
	s.systemPrompt = true
	return s
}

// FailWith makes every subsequent StreamResponse call return err before
// emitting any delta.
func (s *ScriptedBackend) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Prompts returns a copy of the prompts received so far, in call order.
func (s *ScriptedBackend) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Name implements llm.Backend.
func (s *ScriptedBackend) Name() string { return s.backendName }

// RequiresSystemPrompt implements llm.Backend.
func (s *ScriptedBackend) RequiresSystemPrompt() bool { return s.systemPrompt }

// StreamResponse implements llm.Backend.
func (s *ScriptedBackend) StreamResponse(ctx context.Context, prompt string, cb llm.StreamCallback) error {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	if s.next >= len(s.turns) {
		s.mu.Unlock()
		return fmt.Errorf("scripted backend: no script for call %d", s.next+1)
	}
	turn := s.turns[s.next]
	s.next++
	s.mu.Unlock()

	for len(turn) > 0 {
		n := s.deltaSize
		if n > len(turn) {
			n = len(turn)
		}
		if err := cb(ctx, turn[:n]); err != nil {
			return err
		}
		turn = turn[n:]
	}
	return nil
}
