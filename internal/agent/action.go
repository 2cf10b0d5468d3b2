package agent

// ActionType identifies a document-mutating (or listing) tool action.
type ActionType int

const (
	ActionCreate ActionType = iota
	ActionEdit
	ActionDelete
	ActionList
)

// String returns a short name for logging.
func (t ActionType) String() string {
	switch t {
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	case ActionList:
		return "list"
	default:
		return "unknown"
	}
}

// ToolAction is a pending document mutation detected in a model turn. It is
// transient: created when a mutating tag is parsed, handed to the caller in
// an EventConfirmationRequired event, and discarded after Confirm or Reject.
// It is never persisted.
type ToolAction struct {
	Type    ActionType
	Title   string
	Content string

	// OriginalContent is the document text before an edit, captured when the
	// edit tag was detected, for best-effort diff display. OriginalKnown is
	// false when the target document did not exist at detection time.
	OriginalContent string
	OriginalKnown   bool
}
