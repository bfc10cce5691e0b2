package record

import (
	"testing"
	"time"
)

func fixedBuilder(ts time.Time, id string) *Builder {
	return NewBuilderWithClock(func() time.Time { return ts }, func() string { return id })
}

func TestBuilder_StartEventHappyPath(t *testing.T) {
	startedAt, _ := time.Parse(time.RFC3339, "2023-01-01T10:00:00Z")
	ctx := ExecutionContext{
		ExecutionID: "exec-456",
		Mode:        ModeManual,
		UserID:      "user-789",
		Workflow: Workflow{
			ID:   "workflow-123",
			Name: "Test Workflow",
			Nodes: []WorkflowNode{
				{ID: "n1", Type: "n8n-nodes-base.start"},
				{ID: "n2", Type: "n8n-nodes-base.set"},
			},
			VersionID: 1,
		},
		StartedAt: startedAt,
	}

	b := fixedBuilder(startedAt, "11111111-1111-4111-8111-111111111111")
	rec := b.Build(EventStarted, ctx)

	if rec.Event != EventStarted {
		t.Fatalf("event = %q, want %q", rec.Event, EventStarted)
	}
	if rec.Dimensions.ExecutionMode != "manual" {
		t.Errorf("execution_mode = %q, want manual", rec.Dimensions.ExecutionMode)
	}
	if rec.Dimensions.WorkflowName != "Test Workflow" {
		t.Errorf("workflow_name = %q", rec.Dimensions.WorkflowName)
	}
	if !rec.Flags.IsManualExecution {
		t.Error("is_manual_execution should be true")
	}
	if rec.Flags.IsRetry {
		t.Error("is_retry should be false")
	}
	if rec.Metrics.NodeCount != 2 {
		t.Errorf("node_count = %d, want 2", rec.Metrics.NodeCount)
	}
	if rec.Properties.WorkflowVersion != "1" {
		t.Errorf("workflow_version = %q, want 1", rec.Properties.WorkflowVersion)
	}
	if rec.UserID != "user-789" || rec.AnonymousID != "" {
		t.Errorf("identity mismatch: userId=%q anonymousId=%q", rec.UserID, rec.AnonymousID)
	}
	if err := Validate(rec); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestBuilder_CompleteWithDuration(t *testing.T) {
	startedAt, _ := time.Parse(time.RFC3339, "2023-01-01T10:00:00Z")
	finishedAt, _ := time.Parse(time.RFC3339, "2023-01-01T10:01:30Z")

	ctx := ExecutionContext{
		ExecutionID: "exec-1",
		Mode:        ModeManual,
		UserID:      "user-1",
		Workflow:    Workflow{ID: "wf-1", Name: "wf"},
		StartedAt:   startedAt,
		FinishedAt:  &finishedAt,
		Run:         &RunSummary{Status: "success"},
	}

	rec := fixedBuilder(finishedAt, "22222222-2222-4222-8222-222222222222").Build(EventCompleted, ctx)

	if rec.Event != EventCompleted {
		t.Fatalf("event = %q", rec.Event)
	}
	if rec.Dimensions.Status != "success" {
		t.Errorf("status = %q, want success", rec.Dimensions.Status)
	}
	if rec.Metrics.DurationMs == nil || *rec.Metrics.DurationMs != 90000 {
		t.Errorf("duration_ms = %v, want 90000", rec.Metrics.DurationMs)
	}
}

func TestBuilder_FailureWithNodeError(t *testing.T) {
	startedAt := time.Now()
	ctx := ExecutionContext{
		ExecutionID: "exec-2",
		Mode:        ModeTrigger,
		Workflow:    Workflow{ID: "wf-2", Name: "wf2"},
		StartedAt:   startedAt,
		Run: &RunSummary{
			Status: "error",
			Error: &RunError{
				Name:    "NodeOperationError",
				Message: "HTTP request failed",
				Node:    &NodeErrorRef{ID: "node-2", Name: "HTTP Request"},
			},
		},
	}

	rec := fixedBuilder(startedAt, "33333333-3333-4333-8333-333333333333").Build(EventFailed, ctx)

	if rec.Event != EventFailed {
		t.Fatalf("event = %q", rec.Event)
	}
	if rec.Dimensions.Status != "error" {
		t.Errorf("status = %q, want error", rec.Dimensions.Status)
	}
	if rec.Dimensions.ErrorType != "NodeOperationError" {
		t.Errorf("error_type = %q", rec.Dimensions.ErrorType)
	}
	if rec.Properties.ErrorNodeID != "node-2" || rec.Properties.ErrorNodeName != "HTTP Request" {
		t.Errorf("error node mismatch: %+v", rec.Properties)
	}
	// No userId was supplied: anonymousId derives from the first 8 chars.
	if rec.AnonymousID != "anon_exec-2" {
		t.Errorf("anonymousId = %q", rec.AnonymousID)
	}
}

func TestBuilder_RetryFlagsAndRetryOf(t *testing.T) {
	startedAt := time.Now()
	ctx := ExecutionContext{
		ExecutionID: "exec-3",
		Mode:        ModeRetry,
		RetryOf:     "exec-0",
		Workflow:    Workflow{ID: "wf-3", Name: "wf3"},
		StartedAt:   startedAt,
	}

	rec := fixedBuilder(startedAt, "44444444-4444-4444-8444-444444444444").Build(EventStarted, ctx)

	if !rec.Flags.IsRetry {
		t.Error("is_retry should be true when retryOf is set")
	}
	if rec.Properties.RetryOf != "exec-0" {
		t.Errorf("retry_of = %q, want exec-0", rec.Properties.RetryOf)
	}
	if rec.Dimensions.ExecutionMode != "retry" {
		t.Errorf("execution_mode = %q, want retry", rec.Dimensions.ExecutionMode)
	}
}

func TestBuilder_TriggerTypeFromNodes(t *testing.T) {
	cases := []struct {
		name  string
		nodes []WorkflowNode
		want  string
	}{
		{"cron", []WorkflowNode{{Type: "n8n-nodes-base.cron"}}, "schedule"},
		{"schedule", []WorkflowNode{{Type: "n8n-nodes-base.scheduleTrigger"}}, "schedule"},
		{"webhook", []WorkflowNode{{Type: "n8n-nodes-base.webhook"}}, "webhook"},
		{"plain", []WorkflowNode{{Type: "n8n-nodes-base.start"}}, "trigger"},
	}

	startedAt := time.Now()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := ExecutionContext{
				ExecutionID: "exec",
				Mode:        ModeTrigger,
				Workflow:    Workflow{ID: "wf", Name: "wf", Nodes: tc.nodes},
				StartedAt:   startedAt,
			}
			rec := fixedBuilder(startedAt, "55555555-5555-4555-8555-555555555555").Build(EventStarted, ctx)
			if rec.Dimensions.TriggerType != tc.want {
				t.Errorf("trigger_type = %q, want %q", rec.Dimensions.TriggerType, tc.want)
			}
		})
	}
}

func TestBuilder_StatusNormalization(t *testing.T) {
	cases := map[string]string{
		"canceled":  "cancelled",
		"crashed":   "error",
		"waiting":   "waiting",
		"running":   "running",
		"something": "something",
	}
	startedAt := time.Now()
	for raw, want := range cases {
		if got := normalizeStatus(raw); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", raw, got, want)
		}
		ctx := ExecutionContext{
			ExecutionID: "exec",
			Mode:        ModeManual,
			Workflow:    Workflow{ID: "wf", Name: "wf"},
			StartedAt:   startedAt,
			Run:         &RunSummary{Status: raw},
		}
		rec := fixedBuilder(startedAt, "66666666-6666-4666-8666-666666666666").Build(EventCancelled, ctx)
		// Cancelled events always force status=cancelled regardless of the
		// raw run status, per the event/status agreement invariant.
		if rec.Dimensions.Status != "cancelled" {
			t.Errorf("raw=%q: status = %q, want cancelled", raw, rec.Dimensions.Status)
		}
	}
}

func TestValidate_RejectsMissingIdentity(t *testing.T) {
	startedAt := time.Now()
	ctx := ExecutionContext{
		ExecutionID: "exec",
		Mode:        ModeManual,
		Workflow:    Workflow{ID: "wf", Name: "wf"},
		StartedAt:   startedAt,
	}
	rec := fixedBuilder(startedAt, "77777777-7777-4777-8777-777777777777").Build(EventStarted, ctx)
	rec.AnonymousID = ""
	if err := Validate(rec); err != ErrMissingIdentity {
		t.Errorf("Validate() = %v, want ErrMissingIdentity", err)
	}
}
