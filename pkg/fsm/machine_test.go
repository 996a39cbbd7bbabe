package fsm

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/history"
	"github.com/fitly/tryon/pkg/poller"
	"github.com/fitly/tryon/pkg/request"
	"github.com/fitly/tryon/pkg/vton"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	return []byte(ref), "image/jpeg", nil
}

type stubService struct {
	creates  int
	gets     int
	statuses []vton.TaskState
	err      error
}

func (s *stubService) CreateTask(context.Context, *request.Payload) (string, error) {
	s.creates++
	if s.err != nil {
		return "", s.err
	}
	return "T1", nil
}

func (s *stubService) GetTask(_ context.Context, id string) (*vton.TaskState, error) {
	st := s.statuses[min(s.gets, len(s.statuses)-1)]
	s.gets++
	st.ID = id
	return &st, nil
}

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "me.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestMachine(svc *stubService) (*Machine, *history.Log) {
	p := poller.New(time.Millisecond, 5)
	p.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	log := history.NewLog(history.NewMemoryBlob(nil))
	return NewMachine(request.NewBuilder(stubFetcher{}), svc, p, log, nil), log
}

func TestRunTransitions(t *testing.T) {
	ctx := context.Background()
	svc := &stubService{statuses: []vton.TaskState{
		{Status: vton.StatusProcessing},
		{Status: vton.StatusCompleted, ResultImageURL: "R1"},
	}}
	m, log := newTestMachine(svc)

	req := &TryOnRequest{
		RunID:     "run-1",
		PhotoPath: writePNG(t),
		Upper:     &garment.Product{ID: "A", ImageURL: "https://img/A"},
		Lower:     &garment.Product{ID: "B", ImageURL: "https://img/B"},
	}
	resp := &TryOnResponse{}

	if err := m.submit(ctx, req, resp); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.TaskID != "T1" || resp.ClothType != garment.ClothCombo || resp.Status != StatusSubmitted {
		t.Fatalf("after submit: %+v", resp)
	}

	// A resumed run does not create a second task.
	if err := m.submit(ctx, req, resp); err != nil || svc.creates != 1 {
		t.Fatalf("resubmit: err=%v creates=%d", err, svc.creates)
	}

	if err := m.poll(ctx, resp); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if resp.ResultImageURL != "R1" || resp.Attempts != 2 {
		t.Fatalf("after poll: %+v", resp)
	}

	m.record(ctx, req, resp)
	if resp.Status != StatusCompleted {
		t.Errorf("status = %s", resp.Status)
	}
	e, ok := log.Get("T1")
	if !ok || e.ResultImageURL != "R1" || e.Photo == nil || e.Lower == nil {
		t.Errorf("history entry = %+v, %v", e, ok)
	}
}

func TestSubmitErrors(t *testing.T) {
	shirt := &garment.Product{ID: "A", ImageURL: "https://img/A"}
	tests := []struct {
		name    string
		photo   bool
		upper   *garment.Product
		svcErr  error
		wantErr error
	}{
		{name: "no photo", upper: shirt, wantErr: request.ErrMissingInput},
		{name: "no garment", photo: true, wantErr: request.ErrMissingInput},
		{name: "create fails", photo: true, upper: shirt, svcErr: vton.ErrTaskCreation, wantErr: vton.ErrTaskCreation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &TryOnRequest{RunID: "run", Upper: tt.upper}
			if tt.photo {
				req.PhotoPath = writePNG(t)
			}
			m, _ := newTestMachine(&stubService{err: tt.svcErr})
			err := m.submit(context.Background(), req, &TryOnResponse{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("submit() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPollReportedFailure(t *testing.T) {
	svc := &stubService{statuses: []vton.TaskState{{Status: vton.StatusFailed, Error: "bad photo"}}}
	m, _ := newTestMachine(svc)

	err := m.poll(context.Background(), &TryOnResponse{TaskID: "T1"})
	if !errors.Is(err, poller.ErrTaskReportedFailure) {
		t.Fatalf("poll() = %v", err)
	}
}

func TestAbortStoresOutcome(t *testing.T) {
	m, _ := newTestMachine(&stubService{})
	resp := &TryOnResponse{TaskID: "T9"}

	if err := m.abort("run-9", resp, poller.ErrTaskTimeout); err == nil {
		t.Fatal("abort returned nil")
	}
	got, ok := m.Outcome("run-9")
	if !ok || got.Status != StatusFailed || got.ErrorMessage != poller.ErrTaskTimeout.Error() {
		t.Errorf("Outcome = %+v, %v", got, ok)
	}
	if _, ok := m.Outcome("unknown"); ok {
		t.Error("unknown run should have no outcome")
	}
}
