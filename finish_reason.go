package trickle

// FinishReason indicates why the service stopped generating.
type FinishReason string

const (
	FinishStop    FinishReason = "stop"
	FinishLength  FinishReason = "length"
	FinishFilter  FinishReason = "content_filter"
	FinishUnknown FinishReason = "unknown"
)
