package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lc46377/AutoCallerBot/internal/intake"
	"github.com/lc46377/AutoCallerBot/internal/session"
)

// HandlePollEvents drains and returns the session's outbox.
func HandlePollEvents(eng *intake.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}

		events, err := eng.PollEvents(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeErrorResponse(w, http.StatusNotFound, "unknown session", err)
				return
			}
			writeErrorResponse(w, http.StatusInternalServerError, "failed to poll events", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	})
}

// HandleEventStream pushes drained outbox events to the client over a
// websocket instead of making it poll.
func HandleEventStream(eng *intake.Engine, upgrader websocket.Upgrader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.L().Error("Failed to upgrade connection", zap.Error(err))
			return
		}
		defer conn.Close()

		// Reader goroutine only detects the client going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				events, err := eng.PollEvents(r.Context(), sessionID)
				if err != nil {
					zap.L().Warn("event stream poll failed",
						zap.String("session_id", sessionID), zap.Error(err))
					return
				}
				if len(events) == 0 {
					continue
				}
				if err := conn.WriteJSON(map[string]any{"events": events}); err != nil {
					zap.L().Warn("event stream write failed", zap.Error(err))
					return
				}
			}
		}
	})
}
