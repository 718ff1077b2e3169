package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skywatch/internal/domain"
	"skywatch/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
	}
}

// Register maneja POST /api/users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "register", err)
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "could not register user")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondError(c, h.logger, err, "could not issue token")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"user":    user,
		"token":   token.Token,
	})
}

// Login maneja POST /api/users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "login", err)
		return
	}

	user, err := h.userServ.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "could not login")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondError(c, h.logger, err, "could not issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token.Token,
		"user":    user,
	})
}

// GoogleAuth maneja POST /api/users/google-auth: 201 si creó la cuenta, 200 si la vinculó.
func (h *UserHandler) GoogleAuth(c *gin.Context) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "google auth", err)
		return
	}
	if req.Credential == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid request",
			"fields": gin.H{"credential": "is required"},
		})
		return
	}

	user, created, err := h.userServ.GoogleAuth(c.Request.Context(), req.Credential)
	if err != nil {
		respondError(c, h.logger, err, "could not complete google auth")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondError(c, h.logger, err, "could not issue token")
		return
	}
	status := http.StatusOK
	message := "google login successful"
	if created {
		status = http.StatusCreated
		message = "google account registered"
	}
	c.JSON(status, gin.H{
		"message": message,
		"token":   token.Token,
		"user":    user,
	})
}

// GetUser maneja GET /api/users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userServ.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "could not load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser maneja PUT /api/users/:id.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update user", err)
		return
	}

	user, err := h.userServ.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err, "could not update user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser maneja DELETE /api/users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userServ.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "could not delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

func (h *UserHandler) issueToken(user domain.User) (service.IssuedToken, error) {
	if h.jwtServ == nil {
		return service.IssuedToken{}, errors.New("jwt not configured")
	}
	return h.jwtServ.Issue(user)
}
