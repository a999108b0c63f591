package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// DetectionRecord is a recognized plate persisted beyond the in-memory session history.
type DetectionRecord struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	Plate      string        `json:"plate"`
	Confidence float64       `json:"confidence"`
	BBoxX1     null.Float    `json:"bbox_x1"`
	BBoxY1     null.Float    `json:"bbox_y1"`
	BBoxX2     null.Float    `json:"bbox_x2"`
	BBoxY2     null.Float    `json:"bbox_y2"`
	Mode       DetectionMode `json:"mode"`
	ImageJPEG  []byte        `json:"-"`
	CapturedAt time.Time     `json:"captured_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

func NewDetectionRecord(id, sessionID string, r SessionResult) *DetectionRecord {
	rec := &DetectionRecord{
		ID:         id,
		SessionID:  sessionID,
		Plate:      r.PlateText,
		Confidence: r.Confidence,
		Mode:       r.Mode,
		ImageJPEG:  r.CapturedImage,
		CapturedAt: r.Timestamp.UTC(),
	}
	if r.BoundingBox != nil {
		rec.BBoxX1 = null.FloatFrom(r.BoundingBox[0])
		rec.BBoxY1 = null.FloatFrom(r.BoundingBox[1])
		rec.BBoxX2 = null.FloatFrom(r.BoundingBox[2])
		rec.BBoxY2 = null.FloatFrom(r.BoundingBox[3])
	}
	return rec
}

// BoundingBox returns nil unless all four coordinates were stored.
func (r *DetectionRecord) BoundingBox() *BoundingBox {
	if !r.BBoxX1.Valid || !r.BBoxY1.Valid || !r.BBoxX2.Valid || !r.BBoxY2.Valid {
		return nil
	}
	return &BoundingBox{r.BBoxX1.Float64, r.BBoxY1.Float64, r.BBoxX2.Float64, r.BBoxY2.Float64}
}

type DetectionFilterDTO struct {
	Plate *string    `form:"plate"`
	From  *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To    *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit int        `form:"limit"`
}

type DetectionStats struct {
	TotalDetections   int     `json:"total_detections"`
	UniquePlates      int     `json:"unique_plates"`
	AverageConfidence float64 `json:"average_confidence"`
	AutoDetections    int     `json:"auto_detections"`
	ManualDetections  int     `json:"manual_detections"`
	Last24Hours       int     `json:"last_24_hours"`
}
