package handlers

import (
	"errors"
	"net/http"

	"github.com/gartstein/wastedir/internal/directory/auth"
	e "github.com/gartstein/wastedir/internal/directory/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register: creates the account and issues
// an identity token right away so the client can skip a separate login.
func (h *DirectoryHandler) Register(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, e.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		case errors.Is(err, e.ErrDuplicateName):
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
		default:
			h.logger.Error("Registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	token, err := auth.GenerateToken(user.ID, h.jwtSecret)
	if err != nil {
		h.logger.Error("Token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// Login handles POST /api/auth/login. Unknown users and wrong passwords are
// indistinguishable in the response.
func (h *DirectoryHandler) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if payload.Username == "" || payload.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, e.ErrInvalidInput) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateToken(user.ID, h.jwtSecret)
	if err != nil {
		h.logger.Error("Token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
