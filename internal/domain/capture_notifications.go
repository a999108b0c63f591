// File: internal/domain/capture_notifications.go
package domain

import "time"

type CaptureEventType string

const (
	CaptureEventState        CaptureEventType = "state_changed"
	CaptureEventStatus       CaptureEventType = "status"
	CaptureEventNotification CaptureEventType = "notification"
	CaptureEventResult       CaptureEventType = "result"
	CaptureEventOverlay      CaptureEventType = "overlay"
	CaptureEventStatistics   CaptureEventType = "statistics"
)

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelDanger  NotificationLevel = "danger"
)

// CaptureNotification - event pushed to operators over WebSocket and to the result sinks
type CaptureNotification struct {
	Type      CaptureEventType  `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Level     NotificationLevel `json:"level,omitempty"`
	Message   string            `json:"message,omitempty"`
	State     ControllerState   `json:"state,omitempty"`
	Timestamp time.Time         `json:"timestamp"`

	Result     *SessionResult     `json:"result,omitempty"`
	Overlay    []OverlayBox       `json:"overlay,omitempty"`
	Statistics *SessionStatistics `json:"statistics,omitempty"`
}

type TriggerEventType string

const (
	TriggerVehicleAtGate  TriggerEventType = "vehicle_at_gate"
	TriggerCaptureRequest TriggerEventType = "capture_request"
)

// CaptureTriggerMessage - body of a remote trigger received from SQS
type CaptureTriggerMessage struct {
	EventID     string           `json:"event_id"`
	DeviceID    string           `json:"device_id"`
	EventType   TriggerEventType `json:"event_type"`
	RequestedAt time.Time        `json:"requested_at"`
}

func (m CaptureTriggerMessage) RequestsCapture() bool {
	return m.EventType == TriggerVehicleAtGate || m.EventType == TriggerCaptureRequest
}

// PlateEvent - recognized plate fanned out to Kafka and AWS IoT
type PlateEvent struct {
	EventID    string        `json:"event_id"`
	SessionID  string        `json:"session_id"`
	Plate      string        `json:"plate"`
	Confidence float64       `json:"confidence"`
	BBox       *BoundingBox  `json:"bbox,omitempty"`
	Mode       DetectionMode `json:"mode"`
	CapturedAt time.Time     `json:"captured_at"`
}
