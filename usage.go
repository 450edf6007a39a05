package trickle

// Usage tracks token consumption reported on the completion frame.
// Zero values mean the service did not report usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}
