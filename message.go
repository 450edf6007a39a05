package trickle

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of the conversation sent with a request.
// Assistant responses are reconstructed from the stream, not carried
// here, so a plain struct suffices.
type Message struct {
	Role    Role
	Content string
}
