// Package llm abstracts the two inference backends: the Gemini cloud API and
// a local OpenAI-compatible server. Both produce a cancelable stream of text
// deltas cut at the agent's stop marker.
package llm

import (
	"context"
	"errors"
	"strings"
)

// StopMarker is the literal stop sequence. A backend never emits text at or
// after the marker; the cut happens at generation time, not display time.
const StopMarker = "Observation:"

var (
	// ErrAPIKeyMissing indicates the cloud backend has no credential configured.
	ErrAPIKeyMissing = errors.New("gemini API key not configured")

	// ErrModelNotLoaded indicates the local backend has no model configured.
	ErrModelNotLoaded = errors.New("local model not loaded")
)

// StreamCallback receives one text delta per call. Returning an error aborts
// the stream and releases the backend's underlying resources.
type StreamCallback func(ctx context.Context, delta string) error

// Backend is an inference backend producing a lazy sequence of text deltas.
type Backend interface {
	// Name is a short human-readable backend name used in status messages.
	Name() string

	// RequiresSystemPrompt reports whether the caller must inline the system
	// instruction into every prompt. The cloud backend carries the
	// instruction in its client configuration; the local backend does not.
	RequiresSystemPrompt() bool

	// StreamResponse streams the model's response to prompt through cb.
	// The stream is truncated at the first occurrence of StopMarker.
	// Canceling ctx stops generation and releases underlying resources.
	StreamResponse(ctx context.Context, prompt string, cb StreamCallback) error
}

// errStopMarker signals that the stop marker was reached; backends translate
// it into a clean end of stream.
var errStopMarker = errors.New("stop marker reached")

// stopCutter forwards deltas to a callback while scanning for StopMarker.
// It holds back a tail of len(StopMarker)-1 bytes between deltas, so a marker
// split across deltas is still caught before any of it is emitted.
type stopCutter struct {
	cb      StreamCallback
	pending string
	done    bool
}

func (s *stopCutter) feed(ctx context.Context, delta string) error {
	if s.done {
		return errStopMarker
	}

	s.pending += delta
	if i := strings.Index(s.pending, StopMarker); i >= 0 {
		s.done = true
		head := s.pending[:i]
		s.pending = ""
		if head != "" {
			if err := s.cb(ctx, head); err != nil {
				return err
			}
		}
		return errStopMarker
	}

	hold := markerOverlap(s.pending)
	if emit := len(s.pending) - hold; emit > 0 {
		out := s.pending[:emit]
		s.pending = s.pending[emit:]
		return s.cb(ctx, out)
	}
	return nil
}

// flush emits any held-back tail once the stream ends without a marker.
func (s *stopCutter) flush(ctx context.Context) error {
	if s.done || s.pending == "" {
		return nil
	}
	out := s.pending
	s.pending = ""
	return s.cb(ctx, out)
}

// markerOverlap returns the length of the longest suffix of s that is a
// proper prefix of StopMarker.
func markerOverlap(s string) int {
	maxN := len(StopMarker) - 1
	if maxN > len(s) {
		maxN = len(s)
	}
	for n := maxN; n > 0; n-- {
		if strings.HasPrefix(StopMarker, s[len(s)-n:]) {
			return n
		}
	}
	return 0
}
