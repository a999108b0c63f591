package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plate_reader/internal/domain"
)

// CaptureController is the capture session surface exposed over HTTP.
type CaptureController interface {
	Start(ctx context.Context) error
	Stop()
	ForceReset()
	TriggerDetection(mode domain.DetectionMode) (<-chan domain.DetectionReport, error)
	PreviewFrame() ([]byte, error)
	Snapshot() domain.CaptureSnapshot
}

// ModeStore persists the detection mode alongside the settings.
type ModeStore interface {
	SetMode(ctx context.Context, mode domain.DetectionMode) error
}

type CaptureHandler struct {
	ctrl          CaptureController
	modes         ModeStore
	reportTimeout time.Duration
}

func NewCaptureHandler(ctrl CaptureController, modes ModeStore) *CaptureHandler {
	return &CaptureHandler{ctrl: ctrl, modes: modes, reportTimeout: 15 * time.Second}
}

type setModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// POST /capture/start
func (h *CaptureHandler) Start(c *gin.Context) {
	err := h.ctrl.Start(c.Request.Context())
	if err != nil {
		var acqErr *domain.AcquisitionError
		switch {
		case errors.Is(err, domain.ErrAlreadyRunning), errors.Is(err, domain.ErrStartAborted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &acqErr):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cannot start camera", "details": acqErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot start camera", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// POST /capture/stop
func (h *CaptureHandler) Stop(c *gin.Context) {
	h.ctrl.Stop()
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// POST /capture/force-reset
func (h *CaptureHandler) ForceReset(c *gin.Context) {
	h.ctrl.ForceReset()
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// POST /capture/trigger
// Submits the current frame and answers with the settled report.
func (h *CaptureHandler) Trigger(c *gin.Context) {
	reports, err := h.ctrl.TriggerDetection(domain.ModeManual)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "Processing in progress, please wait..."})
		case errors.Is(err, domain.ErrNotRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNoFrame):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot trigger detection", "details": err.Error()})
		}
		return
	}

	select {
	case report := <-reports:
		c.JSON(http.StatusOK, report)
	case <-time.After(h.reportTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Detection did not settle in time"})
	case <-c.Request.Context().Done():
	}
}

// PUT /capture/mode
func (h *CaptureHandler) SetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	mode, err := domain.ParseDetectionMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.modes.SetMode(c.Request.Context(), mode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot save detection mode", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

// GET /capture/status
func (h *CaptureHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// GET /capture/history
func (h *CaptureHandler) History(c *gin.Context) {
	history := h.ctrl.Snapshot().History
	if history == nil {
		history = []domain.SessionResult{}
	}
	c.JSON(http.StatusOK, gin.H{"total": len(history), "results": history})
}

// GET /capture/frame
func (h *CaptureHandler) Frame(c *gin.Context) {
	data, err := h.ctrl.PreviewFrame()
	if err != nil {
		if errors.Is(err, domain.ErrNoFrame) || errors.Is(err, domain.ErrNotRunning) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot encode frame", "details": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", data)
}
