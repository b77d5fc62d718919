package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lc46377/AutoCallerBot/internal/intake"
	"github.com/lc46377/AutoCallerBot/internal/session"
)

type HangupRequest struct {
	SessionID string `json:"session_id,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

type HangupResponse struct {
	OK     bool   `json:"ok"`
	Ended  bool   `json:"ended"`
	CallID string `json:"call_id,omitempty"`
}

func HandleHangup(eng *intake.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req HangupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		callID, err := eng.EndCall(r.Context(), req.SessionID, req.CallID)
		if err != nil {
			switch {
			case errors.Is(err, intake.ErrMissingIdentifier):
				writeErrorResponse(w, http.StatusBadRequest, "provide session_id or call_id", err)
			case errors.Is(err, session.ErrNotFound):
				writeErrorResponse(w, http.StatusNotFound, "unknown session or no active call", err)
			case errors.Is(err, intake.ErrDispatchFailed):
				writeErrorResponse(w, http.StatusBadGateway, "failed to end call", err)
			default:
				writeErrorResponse(w, http.StatusInternalServerError, "failed to end call", err)
			}
			return
		}

		writeJSON(w, http.StatusOK, HangupResponse{OK: true, Ended: true, CallID: callID})
	})
}
