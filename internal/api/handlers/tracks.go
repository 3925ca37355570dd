package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nerijus-areska/aimu/internal/library"
	"github.com/nerijus-areska/aimu/internal/station"
)

// TrackHandler serves the library and its feedback history.
type TrackHandler struct {
	repo *library.Repository
	ctrl *station.Controller
}

func NewTrackHandler(repo *library.Repository, ctrl *station.Controller) *TrackHandler {
	return &TrackHandler{repo: repo, ctrl: ctrl}
}

// GetTracks returns a page of the display view, optionally filtered by
// artist or title.
func (h *TrackHandler) GetTracks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	offset = max(0, offset)

	entries, err := h.repo.Entries(c.Request.Context(), c.Query("search"))
	if err != nil {
		slog.Error("Failed to fetch tracks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total := len(entries)
	page := entries[min(offset, total):min(offset+limit, total)]

	c.JSON(http.StatusOK, gin.H{
		"data": page,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetFeedbackHistory returns every feedback event of ?path=, newest first.
func (h *TrackHandler) GetFeedbackHistory(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	history, err := h.repo.FeedbackHistory(c.Request.Context(), path)
	if err != nil {
		slog.Error("Failed to fetch feedback", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

type noteRequest struct {
	Path string `json:"path" binding:"required"`
	Note string `json:"note"`
}

func (h *TrackHandler) UpdateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.UpdateNote(ctx, req.Path, req.Note); err != nil {
		if errors.Is(err, library.ErrTrackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Track not found"})
			return
		}
		slog.Error("Failed to update note", "path", req.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update track"})
		return
	}

	if t, err := h.repo.Track(ctx, req.Path); err == nil {
		h.ctrl.UpdateTrack(t)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Track updated successfully"})
}

// StreamTrack serves the audio file of a library track with range support.
func (h *TrackHandler) StreamTrack(c *gin.Context) {
	path := c.Query("path")

	track, err := h.repo.Track(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Track metadata not found"})
		return
	}

	f, err := os.Open(track.Path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audio file missing from disk"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read file"})
		return
	}

	http.ServeContent(c.Writer, c.Request, filepath.Base(track.Path), info.ModTime(), f)
}
