package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"travelapp/internal/domain"
	"travelapp/internal/permission"
	"travelapp/internal/pkg/jwt"
	"travelapp/internal/pkg/logger"
	"travelapp/internal/pkg/response"
	"travelapp/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// UserLookup resolves the subject of a token to a live account.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Auth resolves the bearer token, if any, into the request principal.
// A request without an Authorization header proceeds anonymously; a header
// that is present but malformed or invalid is rejected, and so is a token
// whose user no longer exists.
func Auth(tokens *jwt.Service, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid authorization header")
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid or expired token")
			return
		}

		u, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "User no longer exists")
				return
			}
			logger.FromContext(c.Request.Context()).Error("resolve token subject", zap.Error(err))
			response.Abort(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
			return
		}

		c.Set(ContextUserID, u.ID)
		c.Set(ContextUsername, u.Username)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentPrincipal(c).Authenticated() {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
			return
		}
		c.Next()
	}
}

func CurrentPrincipal(c *gin.Context) permission.Principal {
	return permission.Principal{
		UserID:   c.GetInt64(ContextUserID),
		Username: c.GetString(ContextUsername),
	}
}

// Authorize evaluates pred for the current request. On denial it writes the
// error response and returns false. Pass a nil obj for collection checks.
func Authorize(c *gin.Context, pred permission.Predicate, obj permission.Object) bool {
	err := permission.Check(pred, CurrentPrincipal(c), c.Request.Method, obj)
	switch {
	case err == nil:
		return true
	case errors.Is(err, permission.ErrNotAuthenticated):
		response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication credentials were not provided")
	default:
		response.Abort(c, http.StatusForbidden, response.CodeForbidden, "You do not have permission to perform this action")
	}
	return false
}
