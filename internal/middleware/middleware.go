package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"glyke/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	claimsKey    = "claims"
	userIDKey    = "user_id"
	requestIDKey = "request_id"
)

// Logger logs one line per request, leveled by status class.
func Logger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}
		event = event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(requestIDKey))
		if userID, ok := c.Get(userIDKey); ok {
			event = event.Uint("user_id", userID.(uint))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}

// RequestID tags every request with an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// Claims are carried by every issued token. RegisteredClaims.ID is the jti
// used for revocation.
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the token holder may use staff endpoints.
func (c *Claims) IsStaff() bool {
	return c.Role == string(models.RoleStaff) || c.Role == string(models.RoleSuperuser)
}

// RevocationChecker tells whether a token id has been revoked.
type RevocationChecker interface {
	IsTokenRevoked(jti string) (bool, error)
}

// GenerateToken signs an HS256 token for user valid for ttl.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.Username,
			Issuer:    "glyke",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func parseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authenticate reads a bearer token (or ?token=) and, when it is valid and
// not revoked, stores its claims on the context. Anonymous requests pass
// through. revoked may be nil.
func Authenticate(secret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := parseToken(secret, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		if revoked != nil {
			isRevoked, err := revoked.IsTokenRevoked(claims.ID)
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Token check unavailable"})
				c.Abort()
				return
			}
			if isRevoked {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
				c.Abort()
				return
			}
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// RequireLogin redirects anonymous requests to the sign-in page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentClaims(c) == nil {
			c.Redirect(http.StatusFound, "/sign_in?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RoleChecker confirms a user's stored role.
type RoleChecker interface {
	ValidateUserRole(userID uint, requiredRole models.UserRole) error
}

// RequireRole hides routes behind a 404 unless the signed-in user currently
// holds role. The stored user is consulted, so a demoted or deactivated
// account loses access before its token expires.
func RequireRole(roles RoleChecker, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil || roles.ValidateUserRole(claims.UserID, role) != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// StaffOnly hides staff endpoints from everyone else behind a 404.
func StaffOnly(roles RoleChecker) gin.HandlerFunc {
	return RequireRole(roles, models.RoleStaff)
}

// CurrentClaims returns the authenticated claims, or nil.
func CurrentClaims(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
