package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/config"
)

// SecurityHeaders sets the response headers from the static security policy.
// HSTS is only sent on TLS connections.
func SecurityHeaders(headers config.SecurityHeaders) gin.HandlerFunc {
	static := map[string]string{
		"Content-Security-Policy": headers.ContentSecurityPolicy,
		"X-Content-Type-Options":  headers.ContentTypeOptions,
		"X-Frame-Options":         headers.FrameOptions,
		"X-XSS-Protection":        headers.XSSProtection,
		"Referrer-Policy":         headers.ReferrerPolicy,
		"Permissions-Policy":      headers.PermissionsPolicy,
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for name, value := range static {
			if value != "" {
				h.Set(name, value)
			}
		}
		if headers.StrictTransportSecurity != "" && IsSecureRequest(c) {
			h.Set("Strict-Transport-Security", headers.StrictTransportSecurity)
		}
		c.Next()
	}
}

// CORS answers preflight requests and echoes allowed origins. Credentials are
// allowed so the session cookie travels with cross-origin requests.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowedMethods := strings.Join(cfg.AllowedMethods, ", ")
	allowedHeaders := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			h.Set("Access-Control-Allow-Headers", allowedHeaders)
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}

// IsSecureRequest reports whether the request arrived over TLS, directly or
// behind a terminating proxy.
func IsSecureRequest(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}
