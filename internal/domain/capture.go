package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ControllerState string

const (
	StateIdle              ControllerState = "idle"
	StateRunning           ControllerState = "running"
	StateAwaitingDetection ControllerState = "awaiting_detection"
)

type DetectionMode string

const (
	ModeAuto   DetectionMode = "auto"
	ModeManual DetectionMode = "manual"
)

func ParseDetectionMode(s string) (DetectionMode, error) {
	switch DetectionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto:
		return ModeAuto, nil
	case ModeManual:
		return ModeManual, nil
	}
	return "", fmt.Errorf("invalid detection mode: %q", s)
}

// Resolution is serialized as "WIDTHxHEIGHT", the format the settings UI always used.
type Resolution struct {
	Width  int
	Height int
}

func ParseResolution(s string) (Resolution, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("invalid resolution: %q", s)
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Resolution{}, fmt.Errorf("invalid resolution: %q", s)
	}
	return Resolution{Width: w, Height: h}, nil
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CaptureSettings mirrors the persisted webcam settings document.
type CaptureSettings struct {
	ConfidenceThreshold float64    `json:"confidence"`
	IOUThreshold        float64    `json:"iou"`
	AutoIntervalSeconds float64    `json:"autoInterval"`
	DeviceSelector      string     `json:"camera"`
	Resolution          Resolution `json:"resolution"`
}

func DefaultCaptureSettings() CaptureSettings {
	return CaptureSettings{
		ConfidenceThreshold: 0.25,
		IOUThreshold:        0.45,
		AutoIntervalSeconds: 3,
		DeviceSelector:      "0",
		Resolution:          Resolution{Width: 1280, Height: 720},
	}
}

func (s CaptureSettings) Validate() error {
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %v", s.ConfidenceThreshold)
	}
	if s.IOUThreshold < 0 || s.IOUThreshold > 1 {
		return fmt.Errorf("iou must be within [0,1], got %v", s.IOUThreshold)
	}
	if s.AutoIntervalSeconds <= 0 {
		return fmt.Errorf("autoInterval must be positive, got %v", s.AutoIntervalSeconds)
	}
	if strings.TrimSpace(s.DeviceSelector) == "" {
		return fmt.Errorf("camera selector is empty")
	}
	if s.Resolution.Width <= 0 || s.Resolution.Height <= 0 {
		return fmt.Errorf("invalid resolution: %s", s.Resolution)
	}
	return nil
}

func (s CaptureSettings) AutoInterval() time.Duration {
	return time.Duration(s.AutoIntervalSeconds * float64(time.Second))
}

// BoundingBox is (x1, y1, x2, y2) in pixels of the frame that was sent for detection.
type BoundingBox [4]float64

func (b BoundingBox) Width() float64  { return b[2] - b[0] }
func (b BoundingBox) Height() float64 { return b[3] - b[1] }

// SessionResult is immutable once appended to the history.
type SessionResult struct {
	ID            int64         `json:"id"`
	CapturedImage []byte        `json:"image,omitempty"`
	PlateText     string        `json:"plate"`
	Confidence    float64       `json:"confidence"`
	BoundingBox   *BoundingBox  `json:"bbox,omitempty"`
	Mode          DetectionMode `json:"mode"`
	Timestamp     time.Time     `json:"timestamp"`
}

type SessionStatistics struct {
	DetectionCount  int64 `json:"detections"`
	APICallCount    int64 `json:"apiCalls"`
	FramesPerSecond int   `json:"fps"`
}

// OverlayBox is a transient annotation drawn over the preview frame.
type OverlayBox struct {
	Box        BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
	Recognized bool        `json:"recognized"`
}

type CaptureSnapshot struct {
	SessionID  string            `json:"session_id,omitempty"`
	State      ControllerState   `json:"state"`
	Mode       DetectionMode     `json:"mode"`
	Settings   CaptureSettings   `json:"settings"`
	Statistics SessionStatistics `json:"statistics"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	Overlay    []OverlayBox      `json:"overlay,omitempty"`
	History    []SessionResult   `json:"-"`
	LastStatus string            `json:"last_status,omitempty"`
	TakenAt    time.Time         `json:"taken_at"`
}
