package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBusy           = errors.New("a detection request is already in flight")
	ErrNotRunning     = errors.New("camera is not running")
	ErrAlreadyRunning = errors.New("camera session already started")
	ErrStartAborted   = errors.New("camera start cancelled by stop")
	ErrNoFrame        = errors.New("no frame captured yet")
	ErrEmptyHistory   = errors.New("no results to export")
	ErrStaleAttempt   = errors.New("detection attempt superseded")

	ErrTimeout     = errors.New("detection request timed out")
	ErrRateLimited = errors.New("detection API rate limit")
	ErrNetwork     = errors.New("cannot reach detection API")
)

// AcquisitionError means the camera could not be opened: busy, denied or missing.
type AcquisitionError struct {
	Device string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("cannot acquire camera %q: %v", e.Device, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// FailureError is a failure reported by the detection service itself.
type FailureError struct {
	ReasonCode string
	Message    string
}

func (e *FailureError) Error() string {
	if e.Message == "" {
		return "detection failed: " + e.ReasonCode
	}
	return fmt.Sprintf("detection failed (%s): %s", e.ReasonCode, e.Message)
}
