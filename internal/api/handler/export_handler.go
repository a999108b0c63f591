package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plate_reader/internal/domain"
	"plate_reader/internal/export"
)

type SnapshotSource interface {
	Snapshot() domain.CaptureSnapshot
}

type ExportHandler struct {
	source SnapshotSource
	now    func() time.Time
}

func NewExportHandler(source SnapshotSource) *ExportHandler {
	return &ExportHandler{source: source, now: time.Now}
}

// GET /capture/export/json
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	h.serve(c, "json", "application/json", export.Structured)
}

// GET /capture/export/csv
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	h.serve(c, "csv", "text/csv; charset=utf-8", export.Tabular)
}

func (h *ExportHandler) serve(c *gin.Context, ext, contentType string, render func(domain.CaptureSnapshot) ([]byte, error)) {
	data, err := render(h.source.Snapshot())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No results to export"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed", "details": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(ext, h.now())+`"`)
	c.Data(http.StatusOK, contentType, data)
}
