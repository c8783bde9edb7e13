// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/config"
	"marketplace_backend/internal/shared"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DevUserHeader names the caller when AUTH_DISABLED is set outside release mode.
const DevUserHeader = "X-Dev-User-ID"

// TokenVerifier verifies identity provider ID tokens. Implemented by
// *firebase.FirebaseService.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// RoleResolver looks up the stored role for an identity UID.
type RoleResolver interface {
	RoleFor(ctx context.Context, id string) (string, error)
}

// AuthMiddleware creates a Gin middleware that authenticates Firebase ID tokens
// and makes the caller available both on the gin context and as a
// shared.Session on the request context.
func AuthMiddleware(verifier TokenVerifier, roles RoleResolver, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	devMode := cfg.AuthDisabled && cfg.GinMode != gin.ReleaseMode
	if devMode {
		logger.Warn("Authentication is disabled; trusting the " + DevUserHeader + " header")
	}

	return func(c *gin.Context) {
		var session *shared.Session
		if devMode {
			uid := c.GetHeader(DevUserHeader)
			if uid == "" {
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails(DevUserHeader+" header is required."))
				return
			}
			session = &shared.Session{UserID: uid, Email: uid + "@dev.local", EmailVerified: true}
		} else {
			if c.GetHeader(common.AuthorizationHeader) == "" {
				logger.Debug("Authorization header missing")
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
				return
			}
			tokenString := common.GetTokenFromContext(c)
			if tokenString == "" {
				logger.Debug("Authorization header format invalid")
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
				return
			}

			token, err := verifier.VerifyIDToken(c.Request.Context(), tokenString)
			if err != nil {
				logger.Warn("Token validation failed", zap.Error(err))
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
				return
			}
			session = sessionFromToken(token)
		}

		session.Role = common.RoleUser
		if roles != nil {
			role, err := roles.RoleFor(c.Request.Context(), session.UserID)
			if err != nil {
				logger.Warn("Could not resolve user role, defaulting to user", zap.String("userID", session.UserID), zap.Error(err))
			} else if role != "" {
				session.Role = role
			}
		}

		c.Set(common.UserIDKey, session.UserID)
		c.Set(common.UserEmailKey, session.Email)
		c.Set(common.UserRoleKey, session.Role)
		c.Request = c.Request.WithContext(shared.WithSession(c.Request.Context(), session))

		logger.Debug("User authenticated successfully",
			zap.String("userID", session.UserID),
			zap.String("role", session.Role),
		)

		c.Next()
	}
}

func sessionFromToken(token *auth.Token) *shared.Session {
	s := &shared.Session{UserID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		s.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		s.Name = name
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		s.EmailVerified = verified
	}
	return s
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}

		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
