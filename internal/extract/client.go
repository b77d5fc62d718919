// Package extract implements the field-extraction oracle. Extraction never
// fails from the caller's point of view: a model error or timeout degrades
// to a plain-text parsing pass and finally to a local heuristic pass, so
// the conversation always moves forward.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lc46377/AutoCallerBot/internal/ai"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client extracts structured fields from free-form text using an
// OpenAI-compatible chat API, with a heuristic fallback when no key is
// configured or the API misbehaves.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// WithBaseURL points the client at a different API host. Used by tests and
// by OpenAI-compatible gateways.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Extract runs up to three passes: a JSON-mode completion, a plain
// completion with a JSON scrape, then the local heuristic extractor.
func (c *Client) Extract(ctx context.Context, text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}
	}

	if c.apiKey != "" {
		if fields, err := c.complete(ctx, text, true); err == nil {
			return enrich(text, fields)
		} else {
			zap.L().Warn("json-mode extraction failed, trying plain pass", zap.Error(err))
		}
		if fields, err := c.complete(ctx, text, false); err == nil {
			return enrich(text, fields)
		} else {
			zap.L().Warn("plain extraction failed, using heuristics", zap.Error(err))
		}
	}

	return HeuristicExtract(text)
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, text string, jsonMode bool) (map[string]any, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: ai.ExtractionInstructions},
			{Role: "user", Content: fmt.Sprintf("Text: %s\nJSON:", text)},
		},
	}
	if jsonMode {
		reqBody.ResponseFormat = map[string]any{"type": "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction request failed: %s", resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("extraction response had no choices")
	}

	content := out.Choices[0].Message.Content
	if !jsonMode {
		content = jsonObjectRe.FindString(content)
		if content == "" {
			return nil, fmt.Errorf("no JSON object in model output")
		}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	return Normalize(fields), nil
}

func enrich(text string, fields map[string]any) map[string]any {
	fields = enrichReasonAndPhones(text, fields)
	intent, _ := fields["intent"].(string)
	return enrichQuestion(text, fields, intent)
}
