package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shift-tracker-backend/internal/location"
	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/tracker"
)

type statusResponse struct {
	model.TrackingStatus
	NextFetchAt     *time.Time          `json:"nextFetchAt,omitempty"`
	Last            *tracker.Evaluation `json:"lastEvaluation,omitempty"`
	BackgroundError string              `json:"backgroundError,omitempty"`
}

func (h *Handler) statusBody() statusResponse {
	resp := statusResponse{TrackingStatus: h.tracker.Status()}
	if next, ok := h.tracker.NextFetchAt(); ok {
		resp.NextFetchAt = &next
	}
	if eval, ok := h.tracker.LastEvaluation(); ok {
		resp.Last = &eval
	}
	if err := h.tracker.BackgroundError(); err != nil {
		resp.BackgroundError = err.Error()
	}
	return resp
}

// StartTracking clocks in.
func (h *Handler) StartTracking(c *gin.Context) {
	if _, err := h.tracker.Start(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, tracker.ErrAlreadyTracking):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, location.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, h.statusBody())
}

// StopTracking clocks out. ?clear_history=true also purges the location log.
func (h *Handler) StopTracking(c *gin.Context) {
	clearHistory := false
	if raw := c.Query("clear_history"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "clear_history must be a boolean"})
			return
		}
		clearHistory = v
	}

	if err := h.tracker.Stop(c.Request.Context(), clearHistory); err != nil {
		// The clock-out itself always succeeds.
		log.Printf("Warning: clock-out not fully persisted: %v", err)
	}
	c.JSON(http.StatusOK, h.statusBody())
}

// GetStatus returns the tracking status with the next scheduled fetch.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusBody())
}

// GetHistory returns every captured fix, oldest first.
func (h *Handler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locations": h.tracker.History()})
}
