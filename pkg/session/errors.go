package session

import (
	"errors"

	"github.com/fitly/tryon/pkg/photo"
	"github.com/fitly/tryon/pkg/poller"
	"github.com/fitly/tryon/pkg/request"
	"github.com/fitly/tryon/pkg/vton"
)

// Errors surfaced by a session. Classify with errors.Is.
var (
	ErrTaskAlreadyInProgress = errors.New("a try-on task is already in progress")
	ErrEntryNotFound         = errors.New("history entry not found")

	ErrMissingInput        = request.ErrMissingInput
	ErrGarmentImageFetch   = request.ErrGarmentImageFetch
	ErrPhotoTooLarge       = photo.ErrPhotoTooLarge
	ErrInvalidPhotoType    = photo.ErrInvalidPhotoType
	ErrPhotoRead           = photo.ErrPhotoRead
	ErrTaskCreation        = vton.ErrTaskCreation
	ErrTaskPoll            = vton.ErrTaskPoll
	ErrTaskReportedFailure = poller.ErrTaskReportedFailure
	ErrTaskTimeout         = poller.ErrTaskTimeout
)
