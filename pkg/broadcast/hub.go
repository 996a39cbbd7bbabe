// Package broadcast publishes the status of the most recent try-on task to
// any number of subscribers.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fitly/tryon/pkg/garment"
)

// Phase is the externally visible lifecycle of the current task.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Status is a point-in-time view of the current task.
type Status struct {
	Phase          Phase             `json:"phase"`
	TaskID         string            `json:"task_id,omitempty"`
	ClothType      garment.ClothType `json:"cloth_type,omitempty"`
	ResultImageURL string            `json:"result_image_url,omitempty"`
	Error          string            `json:"error,omitempty"`
	// Origin names the screen that started the task.
	Origin    string    `json:"origin,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Hub fans status updates out to subscribers. A slow subscriber only ever
// misses intermediate updates; it always ends up with the latest one.
type Hub struct {
	mu      sync.Mutex
	current Status
	subs    map[int]chan Status
	nextID  int
	now     func() time.Time
}

// NewHub returns a hub in the idle phase.
func NewHub() *Hub {
	h := &Hub{subs: make(map[int]chan Status), now: time.Now}
	h.current = Status{Phase: PhaseIdle, UpdatedAt: h.now()}
	return h
}

// Publish replaces the current status and notifies subscribers.
func (h *Hub) Publish(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(s)
}

func (h *Hub) publishLocked(s Status) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = h.now()
	}
	h.current = s
	slog.Debug("status_published", "phase", s.Phase, "task_id", s.TaskID, "subscribers", len(h.subs))
	for _, ch := range h.subs {
		deliver(ch, s)
	}
}

// Current returns the latest status.
func (h *Hub) Current() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Dismiss returns a terminal status to idle. It reports false, and changes
// nothing, while a task is processing.
func (h *Hub) Dismiss() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.current.Phase {
	case PhaseProcessing:
		return false
	case PhaseIdle:
		return true
	}
	h.publishLocked(Status{Phase: PhaseIdle})
	return true
}

// Subscribe registers a subscriber. The channel receives the current status
// immediately. cancel unregisters and closes the channel.
func (h *Hub) Subscribe() (<-chan Status, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Status, 1)
	ch <- h.current
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// deliver replaces any undelivered status with s. Callers hold h.mu, so
// there is exactly one sender per channel at a time.
func deliver(ch chan Status, s Status) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- s
}
