package agent

// Role identifies the author of a conversation message.
type Role int

const (
	RoleUser Role = iota
	RoleModel
	RoleSystem
)

// ChatMessage is one entry of the ordered conversation history. The history
// is append-only except for the trailing provisional model message, which the
// caller mutates in place while streaming and freezes on a terminal event.
type ChatMessage struct {
	Role    Role
	Content string

	// Provisional marks a streaming placeholder; provisional messages are
	// excluded from prompt serialization.
	Provisional bool

	// Sources are the retrieved contexts backing a model answer.
	Sources []RetrievedContext
}
