package agent

// EventType classifies the events emitted through the generation channel.
type EventType int

const (
	// EventStatus is advisory UI feedback ("Searching for 'x'...").
	EventStatus EventType = iota

	// EventStreaming carries the in-progress answer text, re-derived from the
	// whole accumulated turn on every delta.
	EventStreaming

	// EventFinalAnswer is terminal: the answer plus its retrieved sources.
	EventFinalAnswer

	// EventError is terminal: generation failed for this call.
	EventError

	// EventConfirmationRequired pauses the conversation until the caller
	// invokes Confirm or Reject with the attached action.
	EventConfirmationRequired
)

// RetrievedContext is a read-only projection of a chunk or whole-document
// excerpt, attached to the final answer for citation.
type RetrievedContext struct {
	FileName string
	Text     string
}

// Event is one element of the ordered event sequence produced by a
// generation call. Exactly one terminal event (final answer, error, or
// confirmation request) ends each sequence; the channel closes after it.
type Event struct {
	Type    EventType
	Text    string
	Sources []RetrievedContext
	Action  *ToolAction
	Err     error
}
