package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/internal/errors"
	"github.com/nidaro/nidaro-backend/pkg/redis"
	"github.com/nidaro/nidaro-backend/pkg/util"
)

// Context keys for the authenticated session
const (
	AccountIDKey = "account_id"
	TokenIDKey   = "token_id"
	ClaimsKey    = "claims"
)

type AuthMiddleware struct {
	jwtSecret  string
	cookieName string
}

func NewAuthMiddleware(jwtSecret, cookieName string) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "auth_token"
	}
	return &AuthMiddleware{
		jwtSecret:  jwtSecret,
		cookieName: cookieName,
	}
}

// Authenticate requires a valid, non-revoked session token. The cookie wins over
// the Authorization header.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := m.extractToken(c)
		if !ok {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authorization header format")
			return
		}
		if token == "" {
			log.Warn("Missing session token", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthUnauthorized, "Authentication required")
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if err == util.ErrExpiredToken {
				errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Session has expired, please log in again")
			} else {
				errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid or expired token")
			}
			return
		}

		revoked, err := redis.IsTokenBlacklisted(c.Request.Context(), claims.ID)
		if err != nil {
			log.Error("Token blacklist lookup failed", err, map[string]interface{}{
				"account_id": claims.AccountID,
			})
			errors.AbortWithError(c, http.StatusInternalServerError, errors.InternalServerError, "Internal server error")
			return
		}
		if revoked {
			log.Warn("Revoked token used", map[string]interface{}{
				"account_id": claims.AccountID,
				"token_id":   claims.ID,
			})
			errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "Session has been logged out")
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(TokenIDKey, claims.ID)
		c.Set(ClaimsKey, claims)

		log.Debug("Account authenticated", map[string]interface{}{
			"account_id":  claims.AccountID,
			"is_verified": claims.IsVerified,
		})

		c.Next()
	}
}

// extractToken returns false only for a malformed Authorization header.
func (m *AuthMiddleware) extractToken(c *gin.Context) (string, bool) {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
		return cookie, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", true
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetAccountID extracts the authenticated account id from context
func GetAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}
	id, ok := accountID.(string)
	return id, ok && id != ""
}

func GetClaims(c *gin.Context) (*util.SessionClaims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*util.SessionClaims)
	return claims, ok
}
