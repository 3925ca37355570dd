package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nerijus-areska/aimu/internal/dj"
	"github.com/nerijus-areska/aimu/internal/library"
	"github.com/nerijus-areska/aimu/internal/station"
)

// StationHandler exposes the station controller: status, mode toggle, skip
// and feedback.
type StationHandler struct {
	ctrl *station.Controller
}

func NewStationHandler(ctrl *station.Controller) *StationHandler {
	return &StationHandler{ctrl: ctrl}
}

func (h *StationHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Status())
}

// GetScore returns the cached raw score of ?path= from the last station
// cycle, or null when there is none.
func (h *StationHandler) GetScore(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	var score *float64
	if s, ok := h.ctrl.SelectionScore(path); ok {
		score = &s
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "score": score})
}

type toggleRequest struct {
	Pleasure *int `json:"pleasure"`
	Arousal  *int `json:"arousal"`
}

// Toggle switches station mode. A body without a mood behaves like a
// cancelled prompt: the previous target is kept.
func (h *StationHandler) Toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	var prompt station.StaticPrompt
	switch {
	case req.Pleasure != nil && req.Arousal != nil:
		prompt.Mood = &dj.Mood{Pleasure: *req.Pleasure, Arousal: *req.Arousal}
	case req.Pleasure != nil || req.Arousal != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "pleasure and arousal go together"})
		return
	}

	if err := h.ctrl.ToggleStation(c.Request.Context(), prompt); err != nil {
		h.fail(c, "Failed to toggle station", err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Status())
}

func (h *StationHandler) Next(c *gin.Context) {
	if err := h.ctrl.Advance(c.Request.Context()); err != nil {
		h.fail(c, "Failed to advance", err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Status())
}

type highlightRequest struct {
	Index *int `json:"index" binding:"required"`
}

// Highlight moves the library cursor; the status then carries its score.
func (h *StationHandler) Highlight(c *gin.Context) {
	var req highlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if err := h.ctrl.Highlight(*req.Index); err != nil {
		h.fail(c, "Failed to highlight", err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Status())
}

type feedbackRequest struct {
	Path     string `json:"path" binding:"required"`
	Pleasure int    `json:"pleasure" binding:"required"`
	Arousal  int    `json:"arousal" binding:"required"`
	Rating   int    `json:"rating" binding:"required"`
}

// PostFeedback appends a feedback event through the controller so the
// display view follows.
func (h *StationHandler) PostFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	mood := dj.Mood{Pleasure: req.Pleasure, Arousal: req.Arousal}
	ev, err := h.ctrl.SubmitFeedback(c.Request.Context(), req.Path, mood, req.Rating)
	if err != nil {
		h.fail(c, "Failed to save feedback", err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *StationHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, station.ErrNoSuchTrack), errors.Is(err, library.ErrTrackNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, dj.ErrInvalidMood), errors.Is(err, library.ErrInvalidFeedback):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
