package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/history"
	"github.com/fitly/tryon/pkg/photo"
	"github.com/fitly/tryon/pkg/vton"
	"github.com/superfly/fsm"
)

// handleSubmit loads the photo, builds the request and creates the task
func (m *Machine) handleSubmit(ctx context.Context, req *fsm.Request[TryOnRequest, TryOnResponse]) (*fsm.Response[TryOnResponse], error) {
	slog.Info("fsm_state_submit", "run_id", req.Msg.RunID)

	resp := responseOf(req)
	if err := m.submit(ctx, req.Msg, resp); err != nil {
		return nil, m.abort(req.Msg.RunID, resp, err)
	}
	m.store(req.Msg.RunID, resp)
	return fsm.NewResponse(resp), nil
}

// handlePoll waits for the task to reach a terminal state
func (m *Machine) handlePoll(ctx context.Context, req *fsm.Request[TryOnRequest, TryOnResponse]) (*fsm.Response[TryOnResponse], error) {
	slog.Info("fsm_state_poll", "run_id", req.Msg.RunID)

	resp := responseOf(req)
	if err := m.poll(ctx, resp); err != nil {
		return nil, m.abort(req.Msg.RunID, resp, err)
	}
	m.store(req.Msg.RunID, resp)
	return fsm.NewResponse(resp), nil
}

// handleRecord appends the completed task to history
func (m *Machine) handleRecord(ctx context.Context, req *fsm.Request[TryOnRequest, TryOnResponse]) (*fsm.Response[TryOnResponse], error) {
	slog.Info("fsm_state_record", "run_id", req.Msg.RunID)

	resp := responseOf(req)
	m.record(ctx, req.Msg, resp)
	m.store(req.Msg.RunID, resp)
	slog.Info("fsm_complete", "run_id", req.Msg.RunID, "task_id", resp.TaskID, "status", resp.Status)
	return fsm.NewResponse(resp), nil
}

func responseOf(req *fsm.Request[TryOnRequest, TryOnResponse]) *TryOnResponse {
	if req.W.Msg == nil {
		return &TryOnResponse{}
	}
	return req.W.Msg
}

// abort records the failure and stops the run. Nothing here is retried: a
// resubmission would create a second task on the service.
func (m *Machine) abort(runID string, resp *TryOnResponse, err error) error {
	slog.Error("fsm_run_failed", "run_id", runID, "task_id", resp.TaskID, "error", err)
	resp.Status = StatusFailed
	resp.ErrorMessage = err.Error()
	m.store(runID, resp)
	return fsm.Abort(err)
}

func (m *Machine) submit(ctx context.Context, req *TryOnRequest, resp *TryOnResponse) error {
	if resp.TaskID != "" {
		slog.Info("task_already_submitted", "run_id", req.RunID, "task_id", resp.TaskID)
		return nil
	}

	p, err := m.loadPhoto(req.PhotoPath)
	if err != nil {
		return err
	}

	snap := garment.Snapshot{Upper: req.Upper, Lower: req.Lower}
	payload, err := m.builder.Build(ctx, snap, p)
	if err != nil {
		return err
	}

	id, err := m.service.CreateTask(ctx, payload)
	if err != nil {
		return err
	}

	resp.TaskID = id
	resp.ClothType = payload.ClothType
	resp.Status = StatusSubmitted
	slog.Info("tryon_task_created", "run_id", req.RunID, "task_id", id, "cloth_type", payload.ClothType)
	return nil
}

func (m *Machine) loadPhoto(path string) (*photo.Photo, error) {
	if path == "" {
		return nil, nil
	}
	u, err := photo.UploadFromPath(path)
	if err != nil {
		return nil, err
	}

	intake := photo.NewIntake(m.validator)
	done, err := intake.Accept(u)
	if err != nil {
		return nil, err
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return intake.Current(), nil
}

func (m *Machine) poll(ctx context.Context, resp *TryOnResponse) error {
	if resp.TaskID == "" {
		return fmt.Errorf("no task to poll")
	}
	res, err := m.poller.Poll(ctx, m.service, resp.TaskID, func(attempt int, state *vton.TaskState) {
		slog.Info("tryon_task_status", "task_id", resp.TaskID, "attempt", attempt, "status", state.Status)
	})
	if err != nil {
		return err
	}
	resp.ResultImageURL = res.ResultImageURL
	resp.Attempts = res.Attempts
	return nil
}

// record never fails the run: the task already completed on the service.
func (m *Machine) record(ctx context.Context, req *TryOnRequest, resp *TryOnResponse) {
	p, err := m.loadPhoto(req.PhotoPath)
	if err != nil {
		slog.Warn("history_photo_unavailable", "run_id", req.RunID, "error", err)
	}

	entry := history.Entry{
		ID:             resp.TaskID,
		Timestamp:      time.Now().UTC(),
		ClothType:      resp.ClothType,
		Upper:          req.Upper,
		Lower:          req.Lower,
		Photo:          p,
		ResultImageURL: resp.ResultImageURL,
	}
	if err := m.history.Append(ctx, entry); err != nil {
		slog.Error("history_append_failed", "run_id", req.RunID, "task_id", resp.TaskID, "error", err)
	}
	resp.Status = StatusCompleted
}
