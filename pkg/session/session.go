// Package session runs the try-on workflow for one user: it owns the garment
// selection and photo, admits at most one task at a time and drives it from
// submission to a terminal state.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fitly/tryon/pkg/broadcast"
	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/history"
	"github.com/fitly/tryon/pkg/photo"
	"github.com/fitly/tryon/pkg/poller"
	"github.com/fitly/tryon/pkg/request"
	"github.com/fitly/tryon/pkg/vton"
)

// Phase is the session lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Busy reports whether a task is in flight.
func (p Phase) Busy() bool {
	return p == PhaseSubmitting || p == PhasePolling
}

// Task is the service-side task the session is tracking.
type Task struct {
	ID             string            `json:"id"`
	Status         vton.Status       `json:"status"`
	ClothType      garment.ClothType `json:"cloth_type"`
	ResultImageURL string            `json:"result_image_url,omitempty"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Attempts       int               `json:"attempts"`
}

// Options wires a session to its collaborators. Builder, Service and History
// are required.
type Options struct {
	Builder   *request.Builder
	Service   vton.Service
	Poller    *poller.Poller
	History   *history.Log
	Hub       *broadcast.Hub
	Validator *photo.Validator
	Now       func() time.Time
}

// Session is safe for concurrent use.
type Session struct {
	builder *request.Builder
	service vton.Service
	poller  *poller.Poller
	history *history.Log
	hub     *broadcast.Hub
	now     func() time.Time

	mu       sync.Mutex
	sel      *garment.Selection
	intake   *photo.Intake
	phase    Phase
	task     *Task
	lastErr  string
	replayed *history.Entry
	gen      uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.Validator == nil {
		opts.Validator = photo.NewValidator(0)
	}
	s := &Session{
		builder: opts.Builder,
		service: opts.Service,
		poller:  opts.Poller,
		history: opts.History,
		hub:     opts.Hub,
		now:     opts.Now,
		sel:     garment.NewSelection(),
		intake:  photo.NewIntake(opts.Validator),
		phase:   PhaseIdle,
	}
	if s.poller == nil {
		s.poller = poller.New(0, 0)
	}
	if s.hub == nil {
		s.hub = broadcast.NewHub()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Hub returns the broadcaster the session publishes to.
func (s *Session) Hub() *broadcast.Hub { return s.hub }

// History returns the session's history log.
func (s *Session) History() *history.Log { return s.history }

// Submit starts a task for the current selection and photo. The task runs in
// the background; ctx only bounds admission, not the run. origin names the
// screen that started it.
func (s *Session) Submit(ctx context.Context, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Busy() {
		slog.Warn("tryon_submit_rejected", "phase", s.phase)
		return ErrTaskAlreadyInProgress
	}

	snap := s.sel.Snapshot()
	p := s.intake.Current()
	if err := request.CheckInput(snap, p); err != nil {
		s.lastErr = err.Error()
		slog.Warn("tryon_missing_input", "error", err)
		return err
	}
	ct, _ := snap.ClothType()

	s.gen++
	s.task = nil
	s.lastErr = ""
	s.replayed = nil
	s.phase = PhaseSubmitting

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.hub.Publish(broadcast.Status{Phase: broadcast.PhaseProcessing, ClothType: ct, Origin: origin})
	slog.Info("tryon_submitted", "cloth_type", ct, "origin", origin)

	r := &run{gen: s.gen, origin: origin, clothType: ct, snap: snap, photo: p}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.execute(runCtx, r)
	}()
	return nil
}

type run struct {
	gen       uint64
	origin    string
	clothType garment.ClothType
	snap      garment.Snapshot
	photo     *photo.Photo
}

func (s *Session) execute(ctx context.Context, r *run) {
	payload, err := s.builder.Build(ctx, r.snap, r.photo)
	if err != nil {
		s.fail(r, err)
		return
	}

	id, err := s.service.CreateTask(ctx, payload)
	if err != nil {
		s.fail(r, err)
		return
	}
	slog.Info("tryon_task_created", "task_id", id, "cloth_type", r.clothType)

	if !s.update(r, func() {
		s.task = &Task{ID: id, Status: vton.StatusPending, ClothType: r.clothType, CreatedAt: s.now()}
		s.phase = PhasePolling
		s.publish(r, broadcast.PhaseProcessing, "")
	}) {
		return
	}

	res, err := s.poller.Poll(ctx, s.service, id, func(attempt int, state *vton.TaskState) {
		s.update(r, func() {
			s.task.Attempts = attempt
			if !state.Status.Terminal() {
				s.task.Status = state.Status
			}
		})
	})
	if err != nil {
		s.fail(r, err)
		return
	}

	s.update(r, func() {
		s.task.Status = vton.StatusCompleted
		s.task.ResultImageURL = res.ResultImageURL
		s.task.Attempts = res.Attempts
		s.phase = PhaseCompleted

		entry := history.Entry{
			ID:             id,
			Timestamp:      s.now(),
			ClothType:      r.clothType,
			Upper:          r.snap.Upper,
			Lower:          r.snap.Lower,
			Photo:          r.photo,
			ResultImageURL: res.ResultImageURL,
		}
		if err := s.history.Append(context.WithoutCancel(ctx), entry); err != nil {
			slog.Error("tryon_history_append_failed", "task_id", id, "error", err)
		}
		s.publish(r, broadcast.PhaseCompleted, "")
		slog.Info("tryon_completed", "task_id", id, "result_image_url", res.ResultImageURL, "attempts", res.Attempts)
	})
}

// update applies fn under the lock unless the run was superseded by a reset
// or a newer submission. It reports whether fn ran.
func (s *Session) update(r *run, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.gen != s.gen {
		slog.Info("tryon_outcome_discarded", "origin", r.origin)
		return false
	}
	fn()
	return true
}

func (s *Session) fail(r *run, err error) {
	s.update(r, func() {
		msg := err.Error()
		s.phase = PhaseFailed
		s.lastErr = msg
		if s.task != nil {
			s.task.Status = vton.StatusFailed
			s.task.Error = msg
		}
		s.publish(r, broadcast.PhaseFailed, msg)
		slog.Error("tryon_failed", "task_id", s.taskID(), "error", err)
	})
}

func (s *Session) publish(r *run, phase broadcast.Phase, errMsg string) {
	st := broadcast.Status{Phase: phase, ClothType: r.clothType, Error: errMsg, Origin: r.origin}
	if s.task != nil {
		st.TaskID = s.task.ID
		st.ResultImageURL = s.task.ResultImageURL
	}
	s.hub.Publish(st)
}

func (s *Session) taskID() string {
	if s.task == nil {
		return ""
	}
	return s.task.ID
}

// Reset abandons any in-flight task and clears the task, error, photo and
// selection. History is untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Busy() {
		slog.Info("tryon_run_cancelled", "task_id", s.taskID())
	}
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.phase = PhaseIdle
	s.task = nil
	s.lastErr = ""
	s.replayed = nil
	s.sel.Reset()
	s.intake.Clear()
	s.hub.Publish(broadcast.Status{Phase: broadcast.PhaseIdle})
}

// Wait blocks until every background run has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Replay shows a past result: the entry's garments, photo and result image
// become current. It does not contact the service.
func (s *Session) Replay(id string) (history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Busy() {
		return history.Entry{}, ErrTaskAlreadyInProgress
	}
	e, ok := s.history.Get(id)
	if !ok {
		return history.Entry{}, ErrEntryNotFound
	}

	s.sel.Restore(e.Upper, e.Lower, e.ClothType)
	s.intake.Set(e.Photo)
	s.task = &Task{
		ID:             e.ID,
		Status:         vton.StatusCompleted,
		ClothType:      e.ClothType,
		ResultImageURL: e.ResultImageURL,
		CreatedAt:      e.Timestamp,
	}
	s.phase = PhaseCompleted
	s.lastErr = ""
	s.replayed = &e
	slog.Info("tryon_replayed", "task_id", e.ID)
	return e, nil
}

// SelectProduct puts p into the slot the current mode targets.
func (s *Session) SelectProduct(p garment.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SelectProduct(p)
}

// SetMode switches the try-on mode.
func (s *Session) SetMode(m garment.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SetMode(m)
}

// SetActiveSlot picks the combo-mode target slot.
func (s *Session) SetActiveSlot(slot garment.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SetActiveSlot(slot)
}

// ClearSlot empties slot.
func (s *Session) ClearSlot(slot garment.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.ClearSlot(slot)
}

// AcceptPhoto validates u and decodes it in the background. See photo.Intake.
func (s *Session) AcceptPhoto(u photo.Upload) (<-chan error, error) {
	return s.intake.Accept(u)
}

// Photo returns the current photo, or nil.
func (s *Session) Photo() *photo.Photo {
	return s.intake.Current()
}

// PhotoInfo describes the current photo without its content.
type PhotoInfo struct {
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// View is a snapshot of the session.
type View struct {
	Phase     Phase            `json:"phase"`
	Selection garment.Snapshot `json:"selection"`
	Photo     *PhotoInfo       `json:"photo,omitempty"`
	Task      *Task            `json:"task,omitempty"`
	Error     string           `json:"error,omitempty"`
	Replayed  *history.Entry   `json:"replayed,omitempty"`
}

// View returns a snapshot of the session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Phase:     s.phase,
		Selection: s.sel.Snapshot(),
		Error:     s.lastErr,
	}
	if p := s.intake.Current(); p != nil {
		v.Photo = &PhotoInfo{MIMEType: p.MIMEType, Size: p.Size, Width: p.Width, Height: p.Height}
	}
	if s.task != nil {
		t := *s.task
		v.Task = &t
	}
	if s.replayed != nil {
		e := *s.replayed
		v.Replayed = &e
	}
	return v
}
