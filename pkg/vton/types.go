// Package vton talks to the external virtual try-on service: it submits a
// composition request and reads back the task status.
package vton

import (
	"context"
	"errors"
	"strings"

	"github.com/fitly/tryon/pkg/request"
)

var (
	ErrTaskCreation = errors.New("task creation failed")
	ErrTaskPoll     = errors.New("task status check failed")
)

// Status is the lifecycle state reported by the service.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// ParseStatus normalizes a status string. The service mixes cases
// ("processing", "COMPLETED"); unknown values are kept, upper-cased.
func ParseStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// Terminal reports whether no further status change is expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskState is one status answer.
type TaskState struct {
	ID             string
	Status         Status
	ResultImageURL string
	Error          string
}

// Service is the try-on service contract.
type Service interface {
	// CreateTask submits payload and returns the service-assigned task id.
	CreateTask(ctx context.Context, payload *request.Payload) (string, error)
	// GetTask returns the current state of task id.
	GetTask(ctx context.Context, id string) (*TaskState, error)
}
