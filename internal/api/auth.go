package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/debtcheck/debtcheck/internal/logging"
)

// DefaultAPIKeyHeader is the default header name for API key authentication
const DefaultAPIKeyHeader = "X-API-Key"

const userIDKey = "user_id"

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// APIKeyAuth validates the service API key from the request header. With no
// keys configured the middleware is a no-op, which keeps local development
// friction-free.
func APIKeyAuth(apiKeys []string, headerName string, logger *logging.Logger) gin.HandlerFunc {
	if headerName == "" {
		headerName = DefaultAPIKeyHeader
	}

	if len(apiKeys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	valid := make(map[string]struct{}, len(apiKeys))
	for _, key := range apiKeys {
		valid[key] = struct{}{}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(headerName)
		if _, ok := valid[key]; ok {
			c.Set("authenticated", true)
			c.Next()
			return
		}

		reason := "invalid API key"
		if key == "" {
			reason = "missing API key, expected header " + headerName
		}
		logger.WarnWithContext(c.Request.Context(), "API authentication failed",
			"reason", reason,
			"client_ip", c.ClientIP(),
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "A valid API key is required in the '" + headerName + "' header",
			Code:    http.StatusUnauthorized,
		})
	}
}

// SessionAuth validates the Bearer session token issued by the auth frontend
// and stores the subject user ID on the request context. Handlers never trust
// a client-supplied user ID header.
func SessionAuth(secret string, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Bearer session token is required",
				Code:    http.StatusUnauthorized,
			})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid || claims.Subject == "" {
			reason := "invalid session token"
			if err != nil {
				reason = err.Error()
			}
			logger.WarnWithContext(c.Request.Context(), "session authentication failed",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
				"reason", reason,
			)
			logging.NewAuditEvent(logging.AuthFailure, "session auth", logging.StatusFailure).
				WithDetails(map[string]interface{}{"path": c.Request.URL.Path}).Emit(logger)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired session token",
				Code:    http.StatusUnauthorized,
			})
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// UserID returns the authenticated user ID set by SessionAuth.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// MaskAPIKeys masks API keys for logging (shows only first 4 characters)
func MaskAPIKeys(keys []string) []string {
	masked := make([]string, len(keys))
	for i, key := range keys {
		if len(key) <= 4 {
			masked[i] = strings.Repeat("*", len(key))
		} else {
			masked[i] = key[:4] + strings.Repeat("*", len(key)-4)
		}
	}
	return masked
}
