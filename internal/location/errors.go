package location

import "errors"

// Failure taxonomy surfaced to callers. Each maps to a distinct user-facing
// message at the command boundary; no retries are automatic.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrFeatureDisabled     = errors.New("location services disabled")
	ErrLocationUnavailable = errors.New("location unavailable")
)
