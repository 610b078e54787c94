package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/middleware"
	"github.com/springdom/solace/internal/services"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates with username/password and returns a bearer token.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	user, token, err := h.userSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid credentials")
			return
		}
		response.ServerError(c, "Login failed")
		return
	}

	response.OK(c, gin.H{
		"access_token":         token,
		"token_type":           "bearer",
		"user":                 user,
		"must_change_password": user.MustChangePassword,
	})
}

// CurrentUser returns the authenticated user's profile.
func (h *Handlers) CurrentUser(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == nil {
		response.Unauthorized(c, "API key auth has no user profile")
		return
	}
	user, err := h.userSvc.GetByID(c.Request.Context(), *userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Unauthorized(c, "User no longer exists")
			return
		}
		response.ServerError(c, "Failed to load user")
		return
	}
	response.OK(c, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (h *Handlers) ChangePassword(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == nil {
		response.BadRequest(c, "API key auth cannot change password")
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "current_password and new_password (min 8 chars) are required")
		return
	}

	err := h.userSvc.ChangePassword(c.Request.Context(), *userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.BadRequest(c, "Current password is incorrect")
			return
		}
		response.ServerError(c, "Failed to change password")
		return
	}
	response.OK(c, gin.H{"status": "ok", "message": "Password changed successfully"})
}
