package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lc46377/AutoCallerBot/internal/config"
	"github.com/lc46377/AutoCallerBot/internal/intake"
)

// HandleVapiWebhook receives server events from the telephony provider.
// End-of-call reports land in the matched session's outbox; transfer
// destination requests are answered with the user's phone number. Unmatched
// or malformed payloads are logged and acknowledged with 200 so the
// provider does not retry forever for a payload we can never use.
func HandleVapiWebhook(eng *intake.Engine, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			zap.L().Warn("malformed webhook payload", zap.Error(err))
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}

		msg, _ := payload["message"].(map[string]any)
		msgType, _ := msg["type"].(string)

		switch msgType {
		case "transfer-destination-request":
			vars, _ := msg["variables"].(map[string]any)
			number, _ := vars["user_phone"].(string)
			if number == "" {
				number = cfg.DefaultUserPhone
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"destination": map[string]any{"type": "number", "number": number},
			})

		case "end-of-call-report":
			sessionID, callID := extractCallIdentifiers(msg)
			summary := extractSummary(msg)
			if !eng.HandleCallEnded(r.Context(), sessionID, callID, summary) {
				zap.L().Warn("call report matched no session",
					zap.String("session_id", sessionID),
					zap.String("call_id", callID))
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

		default:
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		}
	})
}

// extractCallIdentifiers pulls the call id and the round-tripped session id
// out of a report message, tolerating the shape variants the provider
// sends.
func extractCallIdentifiers(msg map[string]any) (sessionID, callID string) {
	call, _ := msg["call"].(map[string]any)
	if call != nil {
		callID, _ = call["id"].(string)
		if overrides, ok := call["assistantOverrides"].(map[string]any); ok {
			if vars, ok := overrides["variableValues"].(map[string]any); ok {
				sessionID, _ = vars["session_id"].(string)
			}
		}
	}
	if callID == "" {
		callID, _ = msg["callId"].(string)
	}
	if sessionID == "" {
		if vars, ok := msg["variables"].(map[string]any); ok {
			sessionID, _ = vars["session_id"].(string)
		}
	}
	return sessionID, callID
}

func extractSummary(msg map[string]any) map[string]any {
	analysis, _ := msg["analysis"].(map[string]any)
	if analysis == nil {
		return nil
	}
	out := map[string]any{}
	if s, ok := analysis["summary"].(string); ok && s != "" {
		out["summary"] = s
	}
	if v, ok := analysis["successEvaluation"]; ok {
		out["success_evaluation"] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
