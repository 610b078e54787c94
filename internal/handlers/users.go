package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/pagination"
	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/middleware"
	"github.com/springdom/solace/internal/models"
)

func (h *Handlers) ListUsers(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)

	users, err := h.users.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to list users")
		return
	}
	total := len(users)

	offset := pagination.GetOffset(page, pageSize)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	pageItems := users[offset:end]
	if pageItems == nil {
		pageItems = []models.User{}
	}

	response.OK(c, gin.H{"users": pageItems, "total": total})
}

type userCreateRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (h *Handlers) CreateUser(c *gin.Context) {
	var req userCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email, username, and password (min 8 chars) are required")
		return
	}
	ctx := c.Request.Context()

	role := models.UserRole(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleAdmin, models.RoleUser, models.RoleViewer:
	default:
		response.BadRequest(c, "Invalid role: "+req.Role)
		return
	}

	if _, err := h.users.GetByUsername(ctx, req.Username); err == nil {
		response.BadRequest(c, "Username already taken")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		response.ServerError(c, "Failed to check username")
		return
	}
	if _, err := h.users.GetByEmail(ctx, req.Email); err == nil {
		response.BadRequest(c, "Email already registered")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		response.ServerError(c, "Failed to check email")
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	user := &models.User{
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: displayName,
		Role:        role,
		IsActive:    true,
	}
	if err := h.userSvc.CreateUser(ctx, user, req.Password); err != nil {
		response.ServerError(c, "Failed to create user")
		return
	}
	response.Created(c, user)
}

type userUpdateRequest struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handlers) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid user payload")
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "User not found")
			return
		}
		response.ServerError(c, "Failed to load user")
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		switch role {
		case models.RoleAdmin, models.RoleUser, models.RoleViewer:
		default:
			response.BadRequest(c, "Invalid role: "+*req.Role)
			return
		}
		user.Role = role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.users.Update(ctx, user); err != nil {
		response.ServerError(c, "Failed to update user")
		return
	}
	response.OK(c, user)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *Handlers) ResetUserPassword(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "new_password (min 8 chars) is required")
		return
	}
	ctx := c.Request.Context()

	if err := h.userSvc.ResetPassword(ctx, id, req.NewPassword); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "User not found")
			return
		}
		response.ServerError(c, "Failed to reset password")
		return
	}
	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		response.ServerError(c, "Failed to load user")
		return
	}
	response.OK(c, user)
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if self := middleware.UserID(c); self != nil && *self == id {
		response.BadRequest(c, "Cannot delete your own account")
		return
	}
	deleted, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete user")
		return
	}
	if !deleted {
		response.NotFound(c, "User not found")
		return
	}
	response.NoContent(c)
}
