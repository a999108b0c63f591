package domain

import "time"

// DetectionRequest is what the controller hands to a detection backend.
type DetectionRequest struct {
	ImageBytes          []byte
	ConfidenceThreshold float64
	Mode                DetectionMode
}

// CandidateRegion is a region the detector considered a plate, whether or not it could read it.
type CandidateRegion struct {
	Box        BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// DetectionResponse is a successful call. An empty PlateText means nothing readable was found.
type DetectionResponse struct {
	PlateText          string            `json:"license_plate"`
	Confidence         float64           `json:"confidence"`
	BoundingBox        *BoundingBox      `json:"bbox,omitempty"`
	DetectorConfidence float64           `json:"yolo_confidence,omitempty"`
	CandidateRegions   []CandidateRegion `json:"yolo_detections,omitempty"`
	Message            string            `json:"error,omitempty"`
}

type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeRateLimited  OutcomeKind = "rate_limited"
	OutcomeFailure      OutcomeKind = "failure"
	OutcomeTimeout      OutcomeKind = "timeout"
	OutcomeNetworkError OutcomeKind = "network_error"
)

// DetectionOutcome is the single tagged result every detection attempt settles into.
type DetectionOutcome struct {
	Kind       OutcomeKind
	Response   *DetectionResponse // OutcomeSuccess only
	ReasonCode string             // OutcomeFailure only
	Err        error
}

// Recognized reports whether the outcome carries a readable plate.
func (o DetectionOutcome) Recognized() bool {
	return o.Kind == OutcomeSuccess && o.Response != nil && o.Response.PlateText != ""
}

// DetectionReport is delivered once per triggered attempt.
type DetectionReport struct {
	AttemptID int64          `json:"attempt_id"`
	Mode      DetectionMode  `json:"mode"`
	Kind      OutcomeKind    `json:"kind"`
	Result    *SessionResult `json:"result,omitempty"`
	Message   string         `json:"message"`
	Duration  time.Duration  `json:"duration_ns"`
	// Watchdog is set when the attempt was abandoned by the hard timeout.
	Watchdog bool `json:"watchdog,omitempty"`
	// Stale is set when Stop or ForceReset superseded the attempt.
	Stale bool  `json:"stale,omitempty"`
	Err   error `json:"-"`
}
