// Package negotiate is the prototype that models the intake-to-call flow as
// an explicit state machine: check the brief, retrieve policy context, plan
// the call, dial, negotiate, and summarize the outcome.
package negotiate

import "errors"

// ErrTaskNotFound is returned when a task id does not resolve.
var ErrTaskNotFound = errors.New("task not found")

// Task statuses.
const (
	StatusCreated   = "created"
	StatusCalling   = "calling"
	StatusNeedsInfo = "needs_info"
	StatusResolved  = "resolved"
	StatusFailed    = "failed"
)

// TaskCreate is the brief a task starts from.
type TaskCreate struct {
	UserID         string            `json:"user_id"`
	Brand          string            `json:"brand"`
	DepartmentHint string            `json:"department_hint,omitempty"`
	Goal           string            `json:"goal"`
	Reason         string            `json:"reason,omitempty"`
	Identifiers    map[string]string `json:"identifiers,omitempty"`
	Constraints    []string          `json:"constraints,omitempty"`
	Auth           map[string]string `json:"auth,omitempty"`
	Evidence       []string          `json:"evidence,omitempty"`
	DesiredOutcome string            `json:"desired_outcome,omitempty"`
}

// Task is a stored negotiation task.
type Task struct {
	ID     string     `json:"task_id"`
	Status string     `json:"status"`
	Brief  TaskCreate `json:"brief"`
}

// Summary is the recorded outcome of a finished task.
type Summary struct {
	TicketID   string              `json:"ticket_id,omitempty"`
	Resolution string              `json:"resolution,omitempty"`
	Amount     float64             `json:"amount,omitempty"`
	ETA        string              `json:"eta,omitempty"`
	Citations  []map[string]string `json:"citations,omitempty"`
	Notes      []string            `json:"notes,omitempty"`
}

// CheckResult is the policy service's readiness verdict on a brief.
type CheckResult struct {
	Status            string   `json:"status"`
	MissingFields     []string `json:"missing_fields"`
	CallReasonSummary string   `json:"call_reason_summary"`
}

// CallBrief carries the retrieved policy context relevant to the call.
type CallBrief struct {
	KeyPoints           []string `json:"key_points"`
	RequiredIdentifiers []string `json:"required_identifiers"`
	AgentNotes          string   `json:"agents_notes"`
}

// PolicyContext is the full retrieval result.
type PolicyContext struct {
	Status    string    `json:"status"`
	CallBrief CallBrief `json:"call_brief"`
}

// Plan is the call plan: how to open, which IVR keywords to chase, the
// negotiation ladder, and what to confirm before hanging up.
type Plan struct {
	Opening               string              `json:"opening"`
	Citations             []map[string]string `json:"citations"`
	IVRKeywords           []string            `json:"ivr_keywords"`
	NegotiationLadder     []string            `json:"negotiation_ladder"`
	ConfirmationChecklist []string            `json:"confirmation_checklist"`
	RiskFlags             []string            `json:"risk_flags"`
}
