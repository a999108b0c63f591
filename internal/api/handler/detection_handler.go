package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
	"plate_reader/internal/service"
)

type DetectionHandler struct {
	detectionService *service.DetectionService
}

func NewDetectionHandler(ds *service.DetectionService) *DetectionHandler {
	return &DetectionHandler{detectionService: ds}
}

// GET /detections
func (h *DetectionHandler) FindDetections(c *gin.Context) {
	var filter domain.DetectionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter: " + err.Error()})
		return
	}

	records, err := h.detectionService.Find(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot search detections", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GET /detections/:id
func (h *DetectionHandler) GetDetection(c *gin.Context) {
	record, err := h.detectionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Detection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load detection", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// GET /detections/:id/image
func (h *DetectionHandler) GetDetectionImage(c *gin.Context) {
	record, err := h.detectionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Detection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load detection", "details": err.Error()})
		return
	}
	if len(record.ImageJPEG) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Detection has no stored image"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", record.ImageJPEG)
}

// GET /detections/stats
func (h *DetectionHandler) GetStats(c *gin.Context) {
	stats, err := h.detectionService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot compute detection stats", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DELETE /detections/:id
func (h *DetectionHandler) DeleteDetection(c *gin.Context) {
	if err := h.detectionService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Detection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot delete detection", "details": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
