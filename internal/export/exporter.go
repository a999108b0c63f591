// Package export turns the in-memory session history into downloadable documents.
// Both formats are pure functions of a controller snapshot.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"plate_reader/internal/domain"
)

// TimestampLayout matches the millisecond ISO-8601 stamps of earlier exports.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var tabularHeader = []string{"Time", "License Plate", "Confidence"}

// ============================================
// Structured (JSON)
// ============================================

type SessionSummary struct {
	StartTime    *time.Time               `json:"start_time"`
	EndTime      *time.Time               `json:"end_time"`
	TotalResults int                      `json:"total_results"`
	Settings     domain.CaptureSettings   `json:"settings"`
	Statistics   domain.SessionStatistics `json:"statistics"`
}

type SessionDocument struct {
	Session SessionSummary         `json:"session"`
	Results []domain.SessionResult `json:"results"`
}

// BuildDocument assembles the structured export. History is newest-first, so the
// session starts at the last entry and ends at the first.
func BuildDocument(snap domain.CaptureSnapshot) (*SessionDocument, error) {
	if len(snap.History) == 0 {
		return nil, domain.ErrEmptyHistory
	}
	start := snap.History[len(snap.History)-1].Timestamp
	end := snap.History[0].Timestamp
	return &SessionDocument{
		Session: SessionSummary{
			StartTime:    &start,
			EndTime:      &end,
			TotalResults: len(snap.History),
			Settings:     snap.Settings,
			Statistics:   snap.Statistics,
		},
		Results: snap.History,
	}, nil
}

func Structured(snap domain.CaptureSnapshot) ([]byte, error) {
	doc, err := BuildDocument(snap)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session export: %w", err)
	}
	return data, nil
}

// ============================================
// Tabular (CSV)
// ============================================

// Tabular writes one row per result, newest first. Every cell is quoted.
func Tabular(snap domain.CaptureSnapshot) ([]byte, error) {
	if len(snap.History) == 0 {
		return nil, domain.ErrEmptyHistory
	}
	var buf bytes.Buffer
	writeRow(&buf, tabularHeader)
	for _, r := range snap.History {
		buf.WriteByte('\n')
		writeRow(&buf, []string{
			r.Timestamp.UTC().Format(TimestampLayout),
			r.PlateText,
			FormatConfidence(r.Confidence),
		})
	}
	return buf.Bytes(), nil
}

// FormatConfidence renders a [0,1] score as a percentage with two decimals.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.2f%%", c*100)
}

func writeRow(buf *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		buf.WriteByte('"')
	}
}

// Filename returns the download name for an export taken at t.
func Filename(ext string, t time.Time) string {
	return fmt.Sprintf("webcam_results_%d.%s", t.UnixMilli(), ext)
}
