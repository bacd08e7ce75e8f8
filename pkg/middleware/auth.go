package middleware

import (
	"context"
	"net/http"
	"strings"

	"tutorial-blog/pkg/jwt"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName carries the session token for browser clients.
	SessionCookieName = "session_token"

	contextUserID   = "user_id"
	contextUsername = "username"
	contextToken    = "token"
)

// TokenValidator is satisfied by *jwt.Service.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// RevocationChecker is satisfied by *cache.TokenBlacklist.
type RevocationChecker interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// Identity is the authenticated requester.
type Identity struct {
	UserID   string
	Username string
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(validator TokenValidator, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		claims, err := authenticate(c.Request.Context(), validator, revoked, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		setIdentity(c, claims, token)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the requester when a valid token is
// presented and otherwise lets the request through as anonymous. Handlers
// decide what anonymous callers may do.
func OptionalAuthMiddleware(validator TokenValidator, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := extractToken(c); ok {
			if claims, err := authenticate(c.Request.Context(), validator, revoked, token); err == nil {
				setIdentity(c, claims, token)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the identity set by one of the auth middlewares.
func CurrentUser(c *gin.Context) (Identity, bool) {
	userID := c.GetString(contextUserID)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{UserID: userID, Username: c.GetString(contextUsername)}, true
}

// SessionToken returns the raw token the requester authenticated with.
func SessionToken(c *gin.Context) string {
	return c.GetString(contextToken)
}

func authenticate(ctx context.Context, validator TokenValidator, revoked RevocationChecker, token string) (*jwt.Claims, error) {
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, jwt.ErrInvalidToken
	}
	if revoked != nil {
		isRevoked, err := revoked.Contains(ctx, token)
		if err != nil {
			return nil, err
		}
		if isRevoked {
			return nil, jwt.ErrInvalidToken
		}
	}
	return claims, nil
}

func setIdentity(c *gin.Context, claims *jwt.Claims, token string) {
	c.Set(contextUserID, claims.UserID)
	c.Set(contextUsername, claims.Username)
	c.Set(contextToken, token)
}

// extractToken prefers the Authorization header over the session cookie.
func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
