// Package record defines the standardized execution analytics record and
// the execution context it is built from.
package record

// EventType is the set of lifecycle events the pipeline knows how to
// translate into an ExecutionRecord.
type EventType string

const (
	EventStarted   EventType = "Workflow Started"
	EventCompleted EventType = "Workflow Completed"
	EventFailed    EventType = "Workflow Failed"
	EventCancelled EventType = "Workflow Cancelled"
)

// InstanceType identifies the kind of n8n process emitting the record.
type InstanceType string

const (
	InstanceMain   InstanceType = "main"
	InstanceWorker InstanceType = "worker"
)

// Dimensions holds the low-cardinality facets of a record.
type Dimensions struct {
	ExecutionMode string `json:"execution_mode"`
	Status        string `json:"status,omitempty"`
	Version       string `json:"version,omitempty"`
	Environment   string `json:"environment,omitempty"`
	TriggerType   string `json:"trigger_type,omitempty"`
	WorkflowName  string `json:"workflow_name"`
	ErrorType     string `json:"error_type,omitempty"`
}

// Flags holds the boolean facets of a record.
type Flags struct {
	IsManualExecution bool `json:"is_manual_execution"`
	IsRetry           bool `json:"is_retry"`
}

// Metrics holds the numeric facets of a record.
type Metrics struct {
	NodeCount  int  `json:"node_count"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

// Involved identifies one entity participating in the execution.
type Involved struct {
	Role   string `json:"role"`
	ID     string `json:"id"`
	IDType string `json:"id_type"`
}

// Properties holds the high-cardinality attributes of a record.
type Properties struct {
	TriggerNode    string `json:"trigger_node,omitempty"`
	RetryOf        string `json:"retry_of,omitempty"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ErrorStack     string `json:"error_stack,omitempty"`
	ErrorNodeID    string `json:"error_node_id,omitempty"`
	ErrorNodeName  string `json:"error_node_name,omitempty"`
	WorkflowVersion string `json:"workflow_version,omitempty"`
}

// AppContext identifies the host application.
type AppContext struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// LibraryContext identifies this library.
type LibraryContext struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InstanceContext identifies the host process.
type InstanceContext struct {
	ID   string       `json:"id"`
	Type InstanceType `json:"type"`
}

// N8nContext carries engine-specific facets nested under context.
type N8nContext struct {
	ExecutionMode string `json:"execution_mode"`
	InstanceType  string `json:"instance_type"`
}

// Context is the fixed envelope context block.
type Context struct {
	App      AppContext      `json:"app"`
	Library  LibraryContext  `json:"library"`
	Instance InstanceContext `json:"instance"`
	N8n      N8nContext      `json:"n8n"`
}

// ExecutionRecord is the wire payload sent to Kafka: a tagged envelope
// conforming to a third-party analytics "track" schema with extensions.
//
// Records are immutable after construction: nothing in this package
// exposes a setter, only Builder.Build returning a fresh value.
type ExecutionRecord struct {
	Type        string     `json:"type"`
	Event       EventType  `json:"event"`
	UserID      string     `json:"userId,omitempty"`
	AnonymousID string     `json:"anonymousId,omitempty"`
	Timestamp   string     `json:"timestamp"`
	MessageID   string     `json:"messageId"`
	Dimensions  Dimensions `json:"dimensions"`
	Flags       Flags      `json:"flags"`
	Metrics     Metrics    `json:"metrics"`
	Tags        []string   `json:"tags"`
	Involves    []Involved `json:"involves"`
	Properties  Properties `json:"properties"`
	Context     Context    `json:"context"`
}
