package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nerijus-areska/aimu/internal/models"
	"github.com/nerijus-areska/aimu/internal/station"
)

// StatsHandler handles stats-related requests independently of the main server
type StatsHandler struct {
	db   *gorm.DB
	ctrl *station.Controller
}

func NewStatsHandler(db *gorm.DB, ctrl *station.Controller) *StatsHandler {
	return &StatsHandler{db: db, ctrl: ctrl}
}

// GetStats returns library aggregates and what is playing now.
func (h *StatsHandler) GetStats(c *gin.Context) {
	var totalTracks, totalFeedback, ratedTracks int64

	db := h.db.WithContext(c.Request.Context())
	if err := db.Model(&models.Track{}).Count(&totalTracks).Error; err != nil {
		slog.Error("Failed to count tracks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	db.Model(&models.Feedback{}).Count(&totalFeedback)
	db.Model(&models.Feedback{}).Distinct("path").Count(&ratedTracks)

	st := h.ctrl.Status()
	nowPlaying := gin.H{}
	if st.Current != nil {
		nowPlaying = gin.H{
			"name":     st.Current.Name,
			"path":     st.Current.Track.Path,
			"position": st.Position,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"total_tracks":   totalTracks,
			"total_feedback": totalFeedback,
			"rated_tracks":   ratedTracks,
			"mode":           st.Mode,
		},
		"now_playing": nowPlaying,
	})
}
