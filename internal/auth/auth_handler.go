package auth

import (
	"errors"
	"net/http"
	"time"

	"pos-service/internal/database"
	apperrors "pos-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles register login
type AuthHandler struct {
	jwtManager *JWTManager
	db         *database.SingleWriterDB
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtManager *JWTManager, db *database.SingleWriterDB, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		db:         db,
		logger:     logger,
	}
}

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Type      string    `json:"type" example:"Bearer"`
	ExpiresIn int       `json:"expires_in" example:"600"`
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-15T12:00:00Z"`
}

// Login handles POST /api/v1/auth/login
// @Summary      Login and get JWT token
// @Description  Authenticates a register user against the users table and returns a JWT valid for 10 minutes.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest   true  "Login credentials"
// @Success      200      {object}  LoginResponse  "Token generated"
// @Failure      400      {object}  map[string]string  "Missing credentials"
// @Failure      401      {object}  map[string]string  "Invalid credentials"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid request", "username or password"))
		return
	}

	// Any store failure fails the login; there is no fallback user list
	if err := h.db.ValidateUser(c.Request.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			h.logger.Warn("Invalid credentials",
				zap.String("username", req.Username),
			)
			c.JSON(http.StatusUnauthorized, apperrors.NewStandardError("Unauthorized", "invalid credentials", "username or password incorrect"))
			return
		}

		h.logger.Error("Login validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, apperrors.NewStandardError("Unauthorized", "invalid credentials", "login unavailable"))
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("failed to generate token", err))
		return
	}

	expiresAt := time.Now().Add(10 * time.Minute)
	response := LoginResponse{
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: 600,
		ExpiresAt: expiresAt,
	}

	h.logger.Info("User logged in successfully",
		zap.String("username", req.Username),
		zap.Time("expires_at", expiresAt),
	)

	c.JSON(http.StatusOK, response)
}
