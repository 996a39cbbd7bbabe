package broadcast

import (
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return s
	case <-time.After(time.Second):
		t.Fatal("no status received")
		return Status{}
	}
}

func TestSubscribeReceivesCurrent(t *testing.T) {
	h := NewHub()
	h.Publish(Status{Phase: PhaseProcessing, Origin: "product-detail"})

	ch, cancel := h.Subscribe()
	defer cancel()

	got := recv(t, ch)
	if got.Phase != PhaseProcessing || got.Origin != "product-detail" {
		t.Errorf("first status = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestSlowSubscriberGetsLatest(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Status{Phase: PhaseProcessing})
	h.Publish(Status{Phase: PhaseProcessing, TaskID: "T1"})
	h.Publish(Status{Phase: PhaseCompleted, TaskID: "T1", ResultImageURL: "R1"})

	got := recv(t, ch)
	if got.Phase != PhaseCompleted || got.ResultImageURL != "R1" {
		t.Errorf("status = %+v, want latest completed", got)
	}
	select {
	case s := <-ch:
		t.Errorf("unexpected extra status %+v", s)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	recv(t, ch)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	h.Publish(Status{Phase: PhaseFailed})
}

func TestDismiss(t *testing.T) {
	tests := []struct {
		name      string
		phase     Phase
		want      bool
		wantPhase Phase
	}{
		{"idle", PhaseIdle, true, PhaseIdle},
		{"processing", PhaseProcessing, false, PhaseProcessing},
		{"completed", PhaseCompleted, true, PhaseIdle},
		{"failed", PhaseFailed, true, PhaseIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub()
			h.Publish(Status{Phase: tt.phase, TaskID: "T1"})
			if got := h.Dismiss(); got != tt.want {
				t.Errorf("Dismiss() = %v, want %v", got, tt.want)
			}
			if got := h.Current().Phase; got != tt.wantPhase {
				t.Errorf("phase = %s, want %s", got, tt.wantPhase)
			}
		})
	}
}

func TestDismissNeverHidesProcessing(t *testing.T) {
	for i := 0; i < 2000; i++ {
		h := NewHub()
		h.Publish(Status{Phase: PhaseCompleted, TaskID: "T1"})

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			h.Dismiss()
		}()
		go func() {
			defer wg.Done()
			<-start
			h.Publish(Status{Phase: PhaseProcessing})
		}()
		close(start)
		wg.Wait()

		// Either order is valid, but a dismiss that lands after the
		// processing update must leave it in place.
		if got := h.Current().Phase; got != PhaseProcessing {
			t.Fatalf("iteration %d: phase = %s, want processing", i, got)
		}
	}
}
