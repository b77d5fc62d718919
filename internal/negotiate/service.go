package negotiate

import "context"

// Service is the public face of the prototype: create a task and kick off
// its run, and report status plus summary once available.
type Service struct {
	store  Store
	runner *Runner
}

func NewService(store Store, policy PolicyAPI, driver CallDriver) *Service {
	return &Service{store: store, runner: NewRunner(store, policy, driver)}
}

// Create stores the brief and launches the state machine in the
// background. The run outlives the creating request.
func (s *Service) Create(ctx context.Context, brief TaskCreate) (string, error) {
	id, err := s.store.CreateTask(ctx, brief)
	if err != nil {
		return "", err
	}
	go s.runner.Run(context.Background(), id)
	return id, nil
}

// Status returns the task and, when the run has finished, its summary.
func (s *Service) Status(ctx context.Context, id string) (*Task, *Summary, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sum, ok, err := s.store.GetSummary(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return task, nil, nil
	}
	return task, sum, nil
}
