package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Cookie names for the operator session. The session cookie is HttpOnly;
// the CSRF cookie is readable by the page so it can mirror the value into
// the X-CSRF-Token header on mutating calls.
const (
	SessionCookieName = "session"
	CSRFCookieName    = "csrf"
	CSRFHeaderName    = "X-CSRF-Token"

	SessionDuration = 2 * time.Hour
)

// Claims represents the JWT session claims
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT session token for the operator
func GenerateToken(username, secret string, expiry time.Duration) (string, error) {
	expirationTime := time.Now().Add(expiry)
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a session token.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RandomHex returns n random bytes hex-encoded, used for CSRF cookie values.
func RandomHex(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// SetAuthCookies installs the session and CSRF cookies.
func SetAuthCookies(c *gin.Context, sessionToken, csrfToken string, secure bool) {
	maxAge := int(SessionDuration.Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, sessionToken, maxAge, "/", "", secure, true)
	c.SetCookie(CSRFCookieName, csrfToken, maxAge, "/", "", secure, false)
}

// ClearAuthCookies expires both cookies.
func ClearAuthCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
	c.SetCookie(CSRFCookieName, "", -1, "/", "", secure, false)
}

// RequireAuth validates the session cookie and, for mutating methods, the
// CSRF double-cookie: the X-CSRF-Token header must equal the csrf cookie.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, err := c.Cookie(SessionCookieName)
		if err != nil || sessionToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, err := VerifyToken(sessionToken, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			csrfHeader := c.GetHeader(CSRFHeaderName)
			csrfCookie, err := c.Cookie(CSRFCookieName)
			if err != nil || csrfHeader == "" || csrfHeader != csrfCookie {
				c.JSON(http.StatusForbidden, gin.H{"error": "invalid_csrf"})
				c.Abort()
				return
			}
		}

		c.Set("username", claims.Subject)
		c.Next()
	}
}
