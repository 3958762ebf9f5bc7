package workflow

import (
	"fmt"
	"time"
)

// SubmissionError means the workflow never started: the publish call failed
// or was rejected. Body carries the coordinator's response text.
type SubmissionError struct {
	CapabilityID string
	Body         string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("workflow submission for %s failed: %s", e.CapabilityID, e.Body)
}

// ExecutionError means the workflow ran and reported failure, with the
// remote-provided message when one was present.
type ExecutionError struct {
	CapabilityID string
	Message      string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("capability %s failed: %s", e.CapabilityID, e.Message)
}

// TimeoutError means no terminal status was observed before the deadline.
// Distinct from ExecutionError: the outcome is unknown, not failed.
type TimeoutError struct {
	CapabilityID string
	After        time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("capability %s did not reach a terminal state within %s", e.CapabilityID, e.After)
}
