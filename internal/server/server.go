// Package server wires the stores, clients, and engine together behind one
// HTTP server.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lc46377/AutoCallerBot/internal/api"
	"github.com/lc46377/AutoCallerBot/internal/config"
	"github.com/lc46377/AutoCallerBot/internal/extract"
	"github.com/lc46377/AutoCallerBot/internal/intake"
	"github.com/lc46377/AutoCallerBot/internal/negotiate"
	"github.com/lc46377/AutoCallerBot/internal/session"
	"github.com/lc46377/AutoCallerBot/internal/vapi"
)

type Server struct {
	httpServer *http.Server
	closers    []io.Closer
}

func New(cfg *config.Config) (*Server, error) {
	srv := &Server{}

	var sessions session.Store
	if cfg.SessionDBPath != "" {
		store, err := session.OpenSQLite(cfg.SessionDBPath)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, store)
		sessions = store
	} else {
		sessions = session.NewMemoryStore()
	}

	extractor := extract.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	dialer := vapi.NewClient(cfg.VapiAPIKey, cfg.VapiAssistantID, cfg.VapiPhoneNumberID)

	eng := intake.NewEngine(sessions, extractor, dialer, intake.Options{
		UserName:            cfg.UserName,
		DefaultUserPhone:    cfg.DefaultUserPhone,
		DefaultTargetNumber: cfg.DefaultTargetNumber,
		Vendors:             cfg.Vendors,
	})

	taskStore, err := negotiate.OpenStore(cfg.TaskDBPath)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, taskStore)

	policy := negotiate.NewPolicyClient(cfg.PolicyServiceURL)
	driver := negotiate.NewTwilioDriver(
		cfg.TwilioAccountSID, cfg.TwilioAuthToken,
		cfg.TwilioFromNumber, cfg.TwilioToNumber, cfg.TwimlURL,
	)
	tasks := negotiate.NewService(taskStore, policy, driver)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	srv.httpServer = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(cfg, eng, tasks, upgrader),
	}
	return srv, nil
}

func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
