package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"whobible/backend/internal/models"
	"whobible/backend/internal/reports"
)

type reportRequest struct {
	TargetName string   `json:"targetName" binding:"required"`
	RoomCode   string   `json:"roomCode"`
	Category   string   `json:"category" binding:"required"`
	Message    string   `json:"message"`
	Samples    []string `json:"samples"`
}

// PostReport files an abuse report from the community page.
func (h *Handler) PostReport(c *gin.Context) {
	anonID, err := h.bearerAnonID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing or invalid"})
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := &models.Report{
		ReporterID: anonID,
		TargetName: req.TargetName,
		RoomCode:   req.RoomCode,
		Category:   req.Category,
		Message:    req.Message,
		Samples:    pq.StringArray(req.Samples),
	}

	if err := h.Reports.Submit(report); err != nil {
		if errors.Is(err, reports.ErrUnknownCategory) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.Log.Error("saving report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save report"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": report.ID, "status": report.Status})
}
