package trickle

// Status is the terminal status of a streaming attempt or of the whole
// logical request.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Outcome is the single terminal result of a session or retry run.
// Reason and Err are set only when Status is StatusFailed; Err is the
// underlying cause when Status is StatusAborted and the abort came from
// the context.
type Outcome struct {
	Status Status
	Reason Reason
	Err    error

	// Truncated is set when the stream ended inside an unterminated
	// thinking region and the residue was flushed as thinking text.
	Truncated bool

	// Completion metadata, populated on StatusCompleted.
	Model        string
	FinishReason FinishReason
	Usage        Usage
}

// Completed reports whether the outcome is a normal completion.
func (o Outcome) Completed() bool { return o.Status == StatusCompleted }
