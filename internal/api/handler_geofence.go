package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/parse"
)

// CheckGeofence evaluates an arbitrary "lat,lon" position against the work
// site without recording it.
func (h *Handler) CheckGeofence(c *gin.Context) {
	p, err := parse.ParsePosition(c.Query("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site := h.tracker.Site()
	result := geofence.Evaluate(p, site)
	c.JSON(http.StatusOK, gin.H{
		"position":       p,
		"site":           site,
		"inRange":        result.InRange,
		"distanceMeters": result.DistanceMeters,
		"message":        result.Describe(),
	})
}
