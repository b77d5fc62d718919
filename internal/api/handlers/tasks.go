package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lc46377/AutoCallerBot/internal/negotiate"
)

type TaskStatusResponse struct {
	TaskID     string              `json:"task_id"`
	Status     string              `json:"status"`
	TicketID   string              `json:"ticket_id,omitempty"`
	Resolution string              `json:"resolution,omitempty"`
	Amount     float64             `json:"amount,omitempty"`
	ETA        string              `json:"eta,omitempty"`
	Citations  []map[string]string `json:"citations"`
	Notes      []string            `json:"notes"`
}

func HandleCreateTask(svc *negotiate.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var brief negotiate.TaskCreate
		if err := json.NewDecoder(r.Body).Decode(&brief); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if brief.Brand == "" || brief.Goal == "" {
			http.Error(w, "brand and goal are required", http.StatusBadRequest)
			return
		}

		id, err := svc.Create(r.Context(), brief)
		if err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, "failed to create task", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"task_id": id,
			"status":  negotiate.StatusCalling,
		})
	})
}

func HandleGetTask(svc *negotiate.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/tasks/")
		if id == "" {
			http.Error(w, "Task id is required", http.StatusBadRequest)
			return
		}

		task, summary, err := svc.Status(r.Context(), id)
		if err != nil {
			if errors.Is(err, negotiate.ErrTaskNotFound) {
				writeErrorResponse(w, http.StatusNotFound, "unknown task", err)
				return
			}
			writeErrorResponse(w, http.StatusInternalServerError, "failed to load task", err)
			return
		}

		resp := TaskStatusResponse{
			TaskID:    task.ID,
			Status:    task.Status,
			Citations: []map[string]string{},
			Notes:     []string{},
		}
		if summary != nil {
			resp.TicketID = summary.TicketID
			resp.Resolution = summary.Resolution
			resp.Amount = summary.Amount
			resp.ETA = summary.ETA
			if summary.Citations != nil {
				resp.Citations = summary.Citations
			}
			if summary.Notes != nil {
				resp.Notes = summary.Notes
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})
}
