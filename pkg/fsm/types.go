package fsm

import "github.com/fitly/tryon/pkg/garment"

// TryOnRequest is the FSM input
type TryOnRequest struct {
	RunID     string           `json:"run_id"`
	PhotoPath string           `json:"photo_path"`
	Upper     *garment.Product `json:"upper,omitempty"`
	Lower     *garment.Product `json:"lower,omitempty"`
}

// TryOnResponse is the FSM output (accumulated across transitions)
type TryOnResponse struct {
	// From Submit
	TaskID    string            `json:"task_id"`
	ClothType garment.ClothType `json:"cloth_type"`

	// From Poll
	ResultImageURL string `json:"result_image_url"`
	Attempts       int    `json:"attempts"`

	// From Record/Failed
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// State names
const (
	StateSubmit = "submit"
	StatePoll   = "poll"
	StateRecord = "record"
	StateFailed = "failed"
)

// Run statuses
const (
	StatusSubmitted = "submitted"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
