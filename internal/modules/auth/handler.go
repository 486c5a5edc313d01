package auth

import (
	"errors"
	"net/http"

	"travelapp/internal/middleware"
	"travelapp/internal/modules/user"
	"travelapp/internal/pkg/logger"
	"travelapp/internal/pkg/response"
	"travelapp/internal/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	authGroup := r.Group("/api-auth")
	{
		authGroup.GET("/login/", h.LoginForm)
		authGroup.POST("/login/", h.Login)
		authGroup.POST("/register/", h.Register)
		authGroup.POST("/logout/", h.Logout)
		authGroup.GET("/me/", middleware.RequireAuth(), h.Me)
	}
}

// LoginForm describes the login contract to browsing clients.
// @Summary  Login contract
// @Router   /api-auth/login/ [GET]
func (h *Handler) LoginForm(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"method": http.MethodPost,
		"fields": []string{"username", "password"},
		"header": "Authorization: Bearer <token>",
	})
}

// Login exchanges username and password for a bearer token.
// @Summary  Log in
// @Param    request body LoginRequest true "credentials"
// @Success  200 {object} TokenResponse
// @Failure  401 {object} map[string]interface{}
// @Router   /api-auth/login/ [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	u, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid username or password")
			return
		}
		h.internal(c, err)
		return
	}

	response.Success(c, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer", User: user.ToResponse(u)})
}

// Register creates an account and logs it in.
// @Summary  Register
// @Param    request body RegisterRequest true "new account"
// @Success  201 {object} TokenResponse
// @Failure  409 {object} map[string]interface{}
// @Router   /api-auth/register/ [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	u, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			response.Error(c, http.StatusConflict, response.CodeConflict, "A user with that username already exists")
			return
		}
		h.internal(c, err)
		return
	}

	response.Success(c, http.StatusCreated, TokenResponse{Token: token, TokenType: "Bearer", User: user.ToResponse(u)})
}

// Logout is a no-op on the server: tokens are stateless and expire on their own.
func (h *Handler) Logout(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"detail": "Logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.service.Me(c.Request.Context(), middleware.CurrentPrincipal(c).UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "User no longer exists")
			return
		}
		h.internal(c, err)
		return
	}
	response.Success(c, http.StatusOK, user.ToResponse(u))
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid request data", errs)
		return false
	}
	return true
}

func (h *Handler) internal(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("auth request failed", zap.Error(err))
	response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
}
