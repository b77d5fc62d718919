package negotiate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PolicyClient talks to the policy retrieval service. Every endpoint has a
// complete offline fallback so the prototype can run a demo end to end with
// the service down.
type PolicyClient struct {
	baseURL string
	http    *http.Client
}

func NewPolicyClient(baseURL string) *PolicyClient {
	return &PolicyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *PolicyClient) CheckMissing(ctx context.Context, brief TaskCreate) (CheckResult, error) {
	var out CheckResult
	if err := c.post(ctx, "/check_missing", map[string]any{"brief": brief}, &out); err != nil {
		zap.L().Warn("policy check unavailable, assuming ready", zap.Error(err))
		return CheckResult{Status: "ready", MissingFields: []string{}, CallReasonSummary: "Proceed with call."}, nil
	}
	return out, nil
}

func (c *PolicyClient) Retrieve(ctx context.Context, brief TaskCreate) (PolicyContext, error) {
	var out PolicyContext
	if err := c.post(ctx, "/retrieve", map[string]any{"brief": brief}, &out); err != nil {
		zap.L().Warn("policy retrieval unavailable, using empty context", zap.Error(err))
		required := make([]string, 0, len(brief.Identifiers))
		for k := range brief.Identifiers {
			required = append(required, k)
		}
		return PolicyContext{
			Status:    "ok",
			CallBrief: CallBrief{KeyPoints: []string{}, RequiredIdentifiers: required},
		}, nil
	}
	return out, nil
}

func (c *PolicyClient) Plan(ctx context.Context, brief TaskCreate, pc PolicyContext) (Plan, error) {
	var out Plan
	if err := c.post(ctx, "/plan", map[string]any{"brief": brief, "call_brief": pc.CallBrief}, &out); err != nil {
		zap.L().Warn("policy planner unavailable, using canned plan", zap.Error(err))
		return fallbackPlan(brief), nil
	}
	return out, nil
}

func fallbackPlan(brief TaskCreate) Plan {
	orderID := brief.Identifiers["order_id"]
	if orderID == "" {
		orderID = "ORDER-XXXX"
	}
	reason := brief.Reason
	if reason == "" {
		reason = "an issue"
	}
	opening := "Hi, I'm an authorized assistant for the customer. "
	if pin := brief.Auth["pin"]; pin != "" {
		opening += "I can verify with passcode " + pin + ". "
	}
	opening += fmt.Sprintf("We're calling about %s: %s.", orderID, reason)

	return Plan{
		Opening:     opening,
		Citations:   []map[string]string{},
		IVRKeywords: []string{"returns", "online order", "customer care"},
		NegotiationLadder: []string{
			"Primary ask: prepaid return label and refund to original payment method.",
		},
		ConfirmationChecklist: []string{
			"ticket_id", "refund_amount", "refund_method", "SLA_date",
			"rep_name_or_id", "confirmation_email",
		},
		RiskFlags: []string{},
	}
}

func (c *PolicyClient) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("policy service %s returned %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
