// Package vapi is a minimal client for the Vapi calls API: place an
// outbound call with per-call variables, and end an in-progress call
// through its control URL.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lc46377/AutoCallerBot/internal/ai"
)

const defaultBaseURL = "https://api.vapi.ai"

type Client struct {
	apiKey        string
	assistantID   string
	phoneNumberID string
	baseURL       string
	http          *http.Client
}

func NewClient(apiKey, assistantID, phoneNumberID string) *Client {
	return &Client{
		apiKey:        apiKey,
		assistantID:   assistantID,
		phoneNumberID: phoneNumberID,
		baseURL:       defaultBaseURL,
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the client at a different host, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// PlaceCall starts an outbound call to toNumber and returns the provider's
// call id. The variable map is attached as assistant overrides so the voice
// agent can reference every collected field, and the agent prompt is
// rebuilt from the same variables.
func (c *Client) PlaceCall(ctx context.Context, toNumber string, vars map[string]any) (string, error) {
	payload := map[string]any{
		"assistantId":   c.assistantID,
		"phoneNumberId": c.phoneNumberID,
		"customer":      map[string]any{"number": toNumber},
		"assistantOverrides": map[string]any{
			"variableValues": vars,
			"model": map[string]any{
				"messages": []map[string]any{
					{"role": "system", "content": ai.GenerateVendorCallPrompt(vars)},
				},
			},
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/call", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("call create response had no id")
	}
	return resp.ID, nil
}

// controlURL fetches the call object and returns its monitor control URL,
// or "" when the call has none (already finished or never connected).
func (c *Client) controlURL(ctx context.Context, callID string) (string, error) {
	var resp struct {
		Monitor struct {
			ControlURL string `json:"controlUrl"`
		} `json:"monitor"`
	}
	if err := c.do(ctx, http.MethodGet, "/call/"+callID, nil, &resp); err != nil {
		return "", err
	}
	return resp.Monitor.ControlURL, nil
}

// EndCall hard-ends an in-progress call by POSTing an end-call message to
// its control URL.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	ctrl, err := c.controlURL(ctx, callID)
	if err != nil {
		return err
	}
	if ctrl == "" {
		return fmt.Errorf("call %s has no control URL", callID)
	}

	body, err := json.Marshal(map[string]string{"type": "end-call"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ctrl, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("end-call request failed: %s", resp.Status)
	}
	zap.L().Info("call terminated", zap.String("call_id", callID))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("vapi %s %s failed: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
