package handlers

import (
	"errors"
	"net/http"
	"time"

	hostRepo "schedly/database/repository/host"
	"schedly/models"
	"schedly/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const hostSessionDuration = 24 * time.Hour

// HostHandler serves host account registration and sessions.
type HostHandler struct {
	Hosts hostRepo.Repository
}

// Register creates a host account.
//
// POST /api/host/register
func (h *HostHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Timezone string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if len(req.Password) < 8 {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not create account", err.Error())
		return
	}

	host := &models.Host{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Timezone:     req.Timezone,
		CreatedAt:    time.Now().UTC(),
	}
	if err := host.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Hosts.Create(c.Request.Context(), host); err != nil {
		utils.JSONError(c, http.StatusConflict, "could not create account", "email may already be registered")
		return
	}

	token, err := utils.GenerateToken(host.ID, host.Email, hostSessionDuration)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not create session", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    host.ID,
		"email": host.Email,
		"token": token,
	})
}

// Login opens a host session.
//
// POST /api/host/login
func (h *HostHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	host, err := h.Hosts.GetHostByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, hostRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusUnauthorized, "invalid credentials", "")
			return
		}
		utils.JSONAppError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(host.PasswordHash), []byte(req.Password)) != nil {
		utils.JSONError(c, http.StatusUnauthorized, "invalid credentials", "")
		return
	}

	token, err := utils.GenerateToken(host.ID, host.Email, hostSessionDuration)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not create session", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    host.ID,
		"email": host.Email,
		"token": token,
	})
}

// Me returns the authenticated host's profile.
//
// GET /api/host/me
func (h *HostHandler) Me(c *gin.Context) {
	host, err := h.Hosts.GetHostByID(c.Request.Context(), c.GetString("hostID"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       host.ID,
		"email":    host.Email,
		"name":     host.Name,
		"timezone": host.Timezone,
	})
}
