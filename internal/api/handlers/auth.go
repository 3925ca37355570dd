package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/nerijus-areska/aimu/internal/api/middleware"
)

// AuthHandler exchanges the listener password for a JWT.
type AuthHandler struct {
	passwordHash []byte
	secret       []byte
	now          func() time.Time
}

func NewAuthHandler(passwordHash, secret string) *AuthHandler {
	return &AuthHandler{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		now:          time.Now,
	}
}

// HashPassword is used to produce server.password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	if len(h.passwordHash) == 0 || len(h.secret) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Login is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	start := time.Now()
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		slog.Warn("Failed login", "ip", c.ClientIP(), "bcrypt", time.Since(start))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	now := h.now()
	token, err := middleware.IssueToken(h.secret, now)
	if err != nil {
		slog.Error("Failed to sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": now.Add(middleware.TokenLifetime),
	})
}
