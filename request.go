package trickle

import "fmt"

// Request identifies one logical chat-completion request. Retry attempts
// re-issue the same Request; ID ties attempts, persistence rows, and
// logs together.
type Request struct {
	ID          string // caller-assigned, stable across retry attempts
	Model       string // model ID, service-specific; empty = service default
	Messages    []Message
	MaxTokens   int      // 0 = service default
	Temperature *float64 // nil = service default
}

// Validate checks universal constraints on Request.
// Transport implementations may apply additional service-specific validation.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("request has no messages: %w", ErrValidation)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("message %d has unknown role %q: %w", i, m.Role, ErrValidation)
		}
	}
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	return nil
}
