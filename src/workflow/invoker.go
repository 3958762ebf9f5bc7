package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cast"

	"github.com/agent-capability-network/go-acn-bridge/src/coordinator"
)

const (
	// PollInterval is the fixed delay between status polls. No backoff.
	PollInterval = time.Second
	// InvokeTimeout is the global deadline measured from submission.
	InvokeTimeout = 60 * time.Second
	// MaxCents is the fixed cost ceiling attached to every workflow.
	MaxCents = 100

	mainNode = "main"
)

// Coordinator is the slice of the coordinator client the invoker needs.
type Coordinator interface {
	PublishWorkflow(ctx context.Context, pub coordinator.PublishRequest) (string, error)
	GetWorkflow(ctx context.Context, workflowID string) (*coordinator.WorkflowStatus, error)
}

// Invoker runs one capability call as a single-node workflow: submit, then
// poll at a fixed interval until a terminal status or the global deadline.
// One invocation is one workflow; there are no submission retries. Multiple
// invocations may run concurrently, each with its own state.
type Invoker struct {
	coord  Coordinator
	logger func(format string, args ...interface{})

	// Now and Sleep are the invoker's clock, overridable in tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

func NewInvoker(coord Coordinator, logger func(format string, args ...interface{})) *Invoker {
	if logger == nil {
		logger = log.Printf
	}
	return &Invoker{
		coord:  coord,
		logger: logger,
		Now:    time.Now,
		Sleep:  time.Sleep,
	}
}

// Invoke submits a workflow wrapping capabilityID with the given payload and
// waits for its result. Exactly one of three outcomes is returned: the main
// node's result payload, an *ExecutionError (the workflow ran and failed),
// or a *TimeoutError (no terminal status before the deadline — outcome
// unknown). Submission failures return a *SubmissionError carrying the
// remote response body.
func (inv *Invoker) Invoke(ctx context.Context, capabilityID string, payload map[string]any) (map[string]any, error) {
	pub := coordinator.PublishRequest{
		Intent:   fmt.Sprintf("Execute capability %s on behalf of an MCP host", capabilityID),
		MaxCents: MaxCents,
		Nodes: map[string]coordinator.WorkflowNode{
			mainNode: {CapabilityID: capabilityID, Payload: payload},
		},
	}
	workflowID, err := inv.coord.PublishWorkflow(ctx, pub)
	if err != nil {
		var se *coordinator.StatusError
		if errors.As(err, &se) {
			return nil, &SubmissionError{CapabilityID: capabilityID, Body: se.Body}
		}
		return nil, &SubmissionError{CapabilityID: capabilityID, Body: err.Error()}
	}

	start := inv.Now()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inv.Sleep(PollInterval)
		if inv.Now().Sub(start) >= InvokeTimeout {
			return nil, &TimeoutError{CapabilityID: capabilityID, After: InvokeTimeout}
		}

		status, err := inv.coord.GetWorkflow(ctx, workflowID)
		if err != nil {
			// Transient poll failures only cost wall-clock budget.
			inv.logger("status poll for workflow %s failed: %v", workflowID, err)
			continue
		}

		switch status.Workflow.Status {
		case "success":
			node := status.Node(mainNode)
			if node == nil || node.ResultPayload == nil {
				return map[string]any{"status": "completed"}, nil
			}
			return node.ResultPayload, nil
		case "failed":
			msg := "workflow execution failed"
			if node := status.Node(mainNode); node != nil {
				if remote := cast.ToString(node.ResultPayload["error"]); remote != "" {
					msg = remote
				}
			}
			return nil, &ExecutionError{CapabilityID: capabilityID, Message: msg}
		}
	}
}
