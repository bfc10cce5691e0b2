package record

import "time"

// Mode is the execution trigger mode reported by the host.
type Mode string

const (
	ModeManual  Mode = "manual"
	ModeWebhook Mode = "webhook"
	ModeCLI     Mode = "cli"
	ModeTrigger Mode = "trigger"
	ModeRetry   Mode = "retry"
)

// WorkflowNode is the minimal node descriptor the builder inspects to
// derive trigger_type and node_count.
type WorkflowNode struct {
	ID   string
	Name string
	Type string
}

// Workflow describes the workflow the execution belongs to.
type Workflow struct {
	ID        string
	Name      string
	Nodes     []WorkflowNode
	VersionID int
}

// NodeErrorRef identifies the node a failure originated from.
type NodeErrorRef struct {
	ID   string
	Name string
}

// RunError is the error value attached to a failed/cancelled run.
type RunError struct {
	// Name is the error's declared type name (e.g. "NodeOperationError").
	Name    string
	Message string
	Stack   string
	Node    *NodeErrorRef
}

// RunSummary carries the terminal status of an execution, present on
// complete/fail/cancel events.
type RunSummary struct {
	// Status is the raw host-reported status: success, error, crashed,
	// canceled/cancelled, waiting, running, or something unrecognized.
	Status string
	Error  *RunError
}

// ExecutionContext is the input handed to the Event Builder.
type ExecutionContext struct {
	ExecutionID string
	Workflow    Workflow
	Mode        Mode
	UserID      string
	RetryOf     string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Run         *RunSummary

	// HostVersion is the n8n host version string for context.app.version.
	HostVersion string
	// LibraryVersion is this library's own version for context.library.version.
	LibraryVersion string
	// InstanceID identifies the host process (hostname or env override).
	InstanceID string
	// InstanceType is "main" or "worker".
	InstanceType InstanceType
}
