package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lc46377/AutoCallerBot/internal/intake"
	"github.com/lc46377/AutoCallerBot/internal/session"
)

type StartRequest struct {
	Utterance    string   `json:"utterance,omitempty"`
	VendorName   string   `json:"vendor_name,omitempty"`
	Goal         string   `json:"goal,omitempty"`
	OrderID      string   `json:"order_id,omitempty"`
	Item         string   `json:"item,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
	TargetNumber string   `json:"target_number,omitempty"`
	UserPhone    string   `json:"user_phone,omitempty"`
}

func (r *StartRequest) prefill() map[string]any {
	out := map[string]any{
		"vendor_name":   r.VendorName,
		"goal":          r.Goal,
		"order_id":      r.OrderID,
		"item":          r.Item,
		"reason":        r.Reason,
		"target_number": r.TargetNumber,
		"user_phone":    r.UserPhone,
	}
	if r.Amount != nil {
		out["bill_amount"] = *r.Amount
	}
	return out
}

type StartResponse struct {
	SessionID  string   `json:"session_id"`
	NextFields []string `json:"next_fields"`
	Question   string   `json:"question"`
	CallID     string   `json:"call_id,omitempty"`
}

type ReplyRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

type ReplyResponse struct {
	Done       bool     `json:"done"`
	NextFields []string `json:"next_fields,omitempty"`
	Question   string   `json:"question,omitempty"`
	Message    string   `json:"message,omitempty"`
	CallID     string   `json:"call_id,omitempty"`
}

func HandleIntakeStart(eng *intake.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		result, err := eng.Start(r.Context(), intake.StartInput{
			Utterance: req.Utterance,
			Prefill:   req.prefill(),
		})
		if err != nil {
			if errors.Is(err, intake.ErrDispatchFailed) {
				writeErrorResponse(w, http.StatusBadGateway, "failed to start call", err)
				return
			}
			writeErrorResponse(w, http.StatusInternalServerError, "failed to start session", err)
			return
		}

		if result.NextFields == nil {
			result.NextFields = []string{}
		}
		writeJSON(w, http.StatusOK, StartResponse{
			SessionID:  result.SessionID,
			NextFields: result.NextFields,
			Question:   result.Question,
			CallID:     result.CallID,
		})
	})
}

func HandleIntakeReply(eng *intake.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req ReplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.SessionID == "" {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}

		result, err := eng.Reply(r.Context(), req.SessionID, req.Answer)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNotFound):
				writeErrorResponse(w, http.StatusNotFound, "unknown session", err)
			case errors.Is(err, intake.ErrDispatchFailed):
				writeErrorResponse(w, http.StatusBadGateway, "failed to start call", err)
			default:
				writeErrorResponse(w, http.StatusInternalServerError, "failed to process reply", err)
			}
			return
		}

		writeJSON(w, http.StatusOK, ReplyResponse{
			Done:       result.Done,
			NextFields: result.NextFields,
			Question:   result.Question,
			Message:    result.Message,
			CallID:     result.CallID,
		})
	})
}

func HandleIntakeReset(eng *intake.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			SessionID string `json:"session_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}

		if err := eng.Reset(r.Context(), req.SessionID); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeErrorResponse(w, http.StatusNotFound, "unknown session", err)
				return
			}
			writeErrorResponse(w, http.StatusInternalServerError, "failed to reset session", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cleared": req.SessionID})
	})
}
