// Package fsm runs a single try-on as a durable workflow: submit the request,
// poll the task to a terminal state and record the result in history.
// It uses the superfly/fsm library.
package fsm

import (
	"context"
	"sync"

	"github.com/fitly/tryon/pkg/errors"
	"github.com/fitly/tryon/pkg/history"
	"github.com/fitly/tryon/pkg/photo"
	"github.com/fitly/tryon/pkg/poller"
	"github.com/fitly/tryon/pkg/request"
	"github.com/fitly/tryon/pkg/vton"
	"github.com/superfly/fsm"
)

// Machine holds dependencies for FSM transitions
type Machine struct {
	builder   *request.Builder
	service   vton.Service
	poller    *poller.Poller
	history   *history.Log
	validator *photo.Validator

	mu       sync.Mutex
	outcomes map[string]*TryOnResponse
}

// NewMachine creates a new FSM machine with dependencies
func NewMachine(
	builder *request.Builder,
	service vton.Service,
	p *poller.Poller,
	log *history.Log,
	validator *photo.Validator,
) *Machine {
	if p == nil {
		p = poller.New(0, 0)
	}
	if validator == nil {
		validator = photo.NewValidator(0)
	}
	return &Machine{
		builder:   builder,
		service:   service,
		poller:    p,
		history:   log,
		validator: validator,
		outcomes:  make(map[string]*TryOnResponse),
	}
}

// Register registers the try-on FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[TryOnRequest, TryOnResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[TryOnRequest, TryOnResponse](manager, "virtual-tryon").
		Start(StateSubmit, m.handleSubmit).
		To(StatePoll, m.handlePoll).
		To(StateRecord, m.handleRecord).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}

// Outcome returns the last known response of run id.
func (m *Machine) Outcome(runID string) (TryOnResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.outcomes[runID]
	if !ok {
		return TryOnResponse{}, false
	}
	return *resp, true
}

func (m *Machine) store(runID string, resp *TryOnResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *resp
	m.outcomes[runID] = &c
}
