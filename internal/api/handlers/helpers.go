package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{
		Error: fmt.Sprintf("%s: %v", message, err),
	})
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
