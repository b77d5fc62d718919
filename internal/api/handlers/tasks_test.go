package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/lc46377/AutoCallerBot/internal/negotiate"
)

// taskStore is a mutex-guarded in-memory negotiate.Store; the service runs
// the state machine in the background, so concurrent access is real.
type taskStore struct {
	mu        sync.Mutex
	tasks     map[string]*negotiate.Task
	summaries map[string]negotiate.Summary
}

func newTaskStore() *taskStore {
	return &taskStore{tasks: map[string]*negotiate.Task{}, summaries: map[string]negotiate.Summary{}}
}

func (s *taskStore) CreateTask(ctx context.Context, brief negotiate.TaskCreate) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "task-1"
	s.tasks[id] = &negotiate.Task{ID: id, Status: negotiate.StatusCreated, Brief: brief}
	return id, nil
}

func (s *taskStore) GetTask(ctx context.Context, id string) (*negotiate.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, negotiate.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *taskStore) SetStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return negotiate.ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (s *taskStore) SaveSummary(ctx context.Context, id string, sum negotiate.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[id] = sum
	return nil
}

func (s *taskStore) GetSummary(ctx context.Context, id string) (*negotiate.Summary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[id]
	if !ok {
		return nil, false, nil
	}
	cp := sum
	return &cp, true, nil
}

// parkedPolicy halts every run at the readiness check.
type parkedPolicy struct{}

func (parkedPolicy) CheckMissing(ctx context.Context, brief negotiate.TaskCreate) (negotiate.CheckResult, error) {
	return negotiate.CheckResult{Status: "needs_info", MissingFields: []string{"order_id"}}, nil
}

func (parkedPolicy) Retrieve(ctx context.Context, brief negotiate.TaskCreate) (negotiate.PolicyContext, error) {
	return negotiate.PolicyContext{}, nil
}

func (parkedPolicy) Plan(ctx context.Context, brief negotiate.TaskCreate, pc negotiate.PolicyContext) (negotiate.Plan, error) {
	return negotiate.Plan{}, nil
}

type noopDriver struct{}

func (noopDriver) Dial(ctx context.Context, brief negotiate.TaskCreate) (string, error) {
	return "CA123", nil
}

func (noopDriver) PlayScript(ctx context.Context, callSID, text string) error { return nil }

func TestHandleCreateTask(t *testing.T) {
	svc := negotiate.NewService(newTaskStore(), parkedPolicy{}, noopDriver{})

	rr := postJSON(t, HandleCreateTask(svc), "/tasks", negotiate.TaskCreate{
		UserID: "u1",
		Brand:  "Walmart",
		Goal:   "refund",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %v body %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["task_id"] == "" || resp["status"] != negotiate.StatusCalling {
		t.Errorf("response: %v", resp)
	}
}

func TestHandleCreateTaskValidation(t *testing.T) {
	svc := negotiate.NewService(newTaskStore(), parkedPolicy{}, noopDriver{})

	rr := postJSON(t, HandleCreateTask(svc), "/tasks", negotiate.TaskCreate{Brand: "Walmart"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing goal: got %v want 400", rr.Code)
	}
}

func TestHandleGetTask(t *testing.T) {
	store := newTaskStore()
	id, _ := store.CreateTask(context.Background(), negotiate.TaskCreate{Brand: "Walmart", Goal: "refund"})
	store.SetStatus(context.Background(), id, negotiate.StatusResolved)
	store.SaveSummary(context.Background(), id, negotiate.Summary{
		TicketID:   "WM-CASE-55321",
		Resolution: "Full refund to original payment",
		Amount:     89.99,
		ETA:        "3-5 business days",
	})
	svc := negotiate.NewService(store, parkedPolicy{}, noopDriver{})

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+id, nil)
	rr := httptest.NewRecorder()
	HandleGetTask(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %v", rr.Code)
	}

	var resp TaskStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != negotiate.StatusResolved || resp.TicketID != "WM-CASE-55321" || resp.Amount != 89.99 {
		t.Errorf("response: %+v", resp)
	}
	if resp.Citations == nil || resp.Notes == nil {
		t.Error("citations and notes must serialize as arrays, not null")
	}
}

func TestHandleGetTaskNotFound(t *testing.T) {
	svc := negotiate.NewService(newTaskStore(), parkedPolicy{}, noopDriver{})

	req := httptest.NewRequest(http.MethodGet, "/tasks/nope", nil)
	rr := httptest.NewRecorder()
	HandleGetTask(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %v want 404", rr.Code)
	}
}
