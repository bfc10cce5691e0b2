package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time; overridable in tests.
type Clock func() time.Time

// IDGenerator returns a fresh messageId; overridable in tests.
type IDGenerator func() string

// Builder is the pure Event Builder: it transforms an ExecutionContext
// plus an event kind into a standardized ExecutionRecord. Builder holds
// no state beyond its clock/id overrides, so a zero value backed by
// NewBuilder is safe to share across goroutines.
type Builder struct {
	now    Clock
	nextID IDGenerator
}

// NewBuilder returns a Builder using the wall clock and random UUIDv4
// message IDs.
func NewBuilder() *Builder {
	return &Builder{
		now:    time.Now,
		nextID: func() string { return uuid.NewString() },
	}
}

// NewBuilderWithClock returns a Builder with overridden time/id sources,
// for deterministic tests.
func NewBuilderWithClock(now Clock, nextID IDGenerator) *Builder {
	b := NewBuilder()
	if now != nil {
		b.now = now
	}
	if nextID != nil {
		b.nextID = nextID
	}
	return b
}

// Build transforms ctx into an ExecutionRecord for the given event kind.
func (b *Builder) Build(kind EventType, ctx ExecutionContext) ExecutionRecord {
	rec := ExecutionRecord{
		Type:      "track",
		Event:     kind,
		Timestamp: b.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		MessageID: b.nextID(),
		Tags:      []string{},
		Involves: []Involved{
			{Role: "WorkflowExecution", ID: ctx.ExecutionID, IDType: "n8n"},
			{Role: "Workflow", ID: ctx.Workflow.ID, IDType: "n8n"},
		},
	}

	if ctx.UserID != "" {
		rec.UserID = ctx.UserID
	} else {
		rec.AnonymousID = anonymousID(ctx.ExecutionID)
	}

	rec.Dimensions = Dimensions{
		ExecutionMode: string(ctx.Mode),
		Status:        statusFor(kind, ctx.Run),
		WorkflowName:  ctx.Workflow.Name,
		TriggerType:   triggerType(ctx.Mode, ctx.Workflow.Nodes),
	}
	if ctx.Workflow.VersionID != 0 {
		rec.Properties.WorkflowVersion = strconv.Itoa(ctx.Workflow.VersionID)
	}

	rec.Flags = Flags{
		IsManualExecution: ctx.Mode == ModeManual,
		IsRetry:           ctx.RetryOf != "",
	}

	rec.Metrics = Metrics{
		NodeCount: len(ctx.Workflow.Nodes),
	}
	if durationApplies(kind) && ctx.FinishedAt != nil {
		d := ctx.FinishedAt.Sub(ctx.StartedAt).Milliseconds()
		rec.Metrics.DurationMs = &d
	}

	rec.Properties.StartedAt = ctx.StartedAt.UTC().Format(time.RFC3339Nano)
	if ctx.FinishedAt != nil {
		rec.Properties.FinishedAt = ctx.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	if ctx.RetryOf != "" {
		rec.Properties.RetryOf = ctx.RetryOf
	}

	if kind == EventFailed && ctx.Run != nil && ctx.Run.Error != nil {
		err := ctx.Run.Error
		rec.Properties.ErrorMessage = err.Message
		rec.Properties.ErrorStack = err.Stack
		rec.Dimensions.ErrorType = classifyErrorType(err)
		if err.Node != nil {
			rec.Properties.ErrorNodeID = err.Node.ID
			rec.Properties.ErrorNodeName = err.Node.Name
		}
	}

	rec.Context = Context{
		App:      AppContext{Name: "n8n", Version: ctx.HostVersion},
		Library:  LibraryContext{Name: "n8n-kafka-execution-logger", Version: ctx.LibraryVersion},
		Instance: InstanceContext{ID: fallback(ctx.InstanceID, "unknown"), Type: fallbackInstanceType(ctx.InstanceType)},
		N8n: N8nContext{
			ExecutionMode: string(ctx.Mode),
			InstanceType:  string(fallbackInstanceType(ctx.InstanceType)),
		},
	}

	return rec
}

func durationApplies(kind EventType) bool {
	switch kind {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	default:
		return false
	}
}

// statusFor derives dimensions.status from the event kind and, for
// Started events, leaves it unset.
func statusFor(kind EventType, run *RunSummary) string {
	switch kind {
	case EventCompleted:
		return "success"
	case EventFailed:
		return "error"
	case EventCancelled:
		return "cancelled"
	case EventStarted:
		return ""
	}
	if run == nil {
		return ""
	}
	return normalizeStatus(run.Status)
}

func normalizeStatus(raw string) string {
	switch strings.ToLower(raw) {
	case "canceled":
		return "cancelled"
	case "crashed":
		return "error"
	case "success", "error", "cancelled", "waiting", "running":
		return strings.ToLower(raw)
	case "":
		return ""
	default:
		return raw
	}
}

// triggerType derives dimensions.trigger_type from mode and, for trigger
// mode, from node type substrings.
func triggerType(mode Mode, nodes []WorkflowNode) string {
	switch mode {
	case ModeManual:
		return "manual"
	case ModeWebhook:
		return "webhook"
	case ModeCLI:
		return "cli"
	case ModeTrigger:
		for _, n := range nodes {
			t := strings.ToLower(n.Type)
			if strings.Contains(t, "cron") || strings.Contains(t, "schedule") {
				return "schedule"
			}
		}
		for _, n := range nodes {
			if strings.Contains(strings.ToLower(n.Type), "webhook") {
				return "webhook"
			}
		}
		return "trigger"
	default:
		return string(mode)
	}
}

// classifyErrorType derives dimensions.error_type, preferring the
// error's declared type name over substring heuristics.
func classifyErrorType(err *RunError) string {
	if err.Name != "" {
		return err.Name
	}
	msg := strings.ToUpper(err.Message)
	switch {
	case strings.Contains(msg, "ECONNREFUSED"):
		return "ConnectionRefused"
	case strings.Contains(msg, "ETIMEDOUT"):
		return "Timeout"
	case strings.Contains(msg, "ENOTFOUND"):
		return "DNSError"
	default:
		return "Unknown"
	}
}

func anonymousID(executionID string) string {
	id := executionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "anon_" + id
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func fallbackInstanceType(t InstanceType) InstanceType {
	if t == "" {
		return InstanceMain
	}
	return t
}

