package booking

import "errors"

var (
	// ErrJobUnavailable means the booking was already taken, cancelled or
	// otherwise left the pending state before the partner's acceptance
	// landed.
	ErrJobUnavailable = errors.New("job is no longer available")

	// ErrNotJobOwner means the partner does not own the booking they are
	// trying to update.
	ErrNotJobOwner = errors.New("booking is not assigned to this partner")

	// ErrCannotCancel means the booking has progressed past the point
	// where the customer may cancel it.
	ErrCannotCancel = errors.New("booking can no longer be cancelled")

	// ErrInvalidStatus means the requested job status transition is not
	// one a partner may perform.
	ErrInvalidStatus = errors.New("invalid job status")

	// ErrServiceUnavailable means the requested catalog service does not
	// exist or is inactive.
	ErrServiceUnavailable = errors.New("service is not available for booking")
)
