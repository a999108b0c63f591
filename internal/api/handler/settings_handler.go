package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"plate_reader/internal/domain"
)

type SettingsStore interface {
	Get() domain.CaptureSettings
	Update(ctx context.Context, settings domain.CaptureSettings) (bool, error)
	Reset(ctx context.Context) (domain.CaptureSettings, bool, error)
}

type SettingsHandler struct {
	settings SettingsStore
}

func NewSettingsHandler(s SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: s}
}

// GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// PUT /settings
// Fields left out of the body keep their current values.
func (h *SettingsHandler) Update(c *gin.Context) {
	settings := h.settings.Get()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings: " + err.Error()})
		return
	}
	if err := settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restarted, err := h.settings.Update(c.Request.Context(), settings)
	if err != nil {
		respondSettingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "restarted": restarted})
}

// POST /settings/reset
func (h *SettingsHandler) Reset(c *gin.Context) {
	settings, restarted, err := h.settings.Reset(c.Request.Context())
	if err != nil {
		respondSettingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "restarted": restarted})
}

func respondSettingsError(c *gin.Context, err error) {
	var acqErr *domain.AcquisitionError
	if errors.As(err, &acqErr) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Settings saved but the camera could not restart", "details": acqErr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot save settings", "details": err.Error()})
}
