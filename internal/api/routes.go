package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	h "github.com/lc46377/AutoCallerBot/internal/api/handlers"
	"github.com/lc46377/AutoCallerBot/internal/config"
	"github.com/lc46377/AutoCallerBot/internal/intake"
	"github.com/lc46377/AutoCallerBot/internal/middleware"
	"github.com/lc46377/AutoCallerBot/internal/negotiate"
)

func NewRouter(cfg *config.Config, eng *intake.Engine, tasks *negotiate.Service, upgrader websocket.Upgrader) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/up", h.HealthCheck)

	// Intake conversation
	mux.Handle("/intake/start", h.HandleIntakeStart(eng))
	mux.Handle("/intake/reply", h.HandleIntakeReply(eng))
	mux.Handle("/intake/reset", h.HandleIntakeReset(eng))
	mux.Handle("/intake/events", h.HandlePollEvents(eng))
	mux.Handle("/intake/events/stream", h.HandleEventStream(eng, upgrader))

	// Call control
	mux.Handle("/call/hangup", h.HandleHangup(eng))
	mux.Handle("/vapi/webhook", h.HandleVapiWebhook(eng, cfg))

	// Negotiation prototype
	mux.Handle("/tasks", h.HandleCreateTask(tasks))
	mux.Handle("/tasks/", h.HandleGetTask(tasks)) // Note the trailing slash

	var handler http.Handler = mux
	handler = middleware.Logging(handler)

	return handler
}
