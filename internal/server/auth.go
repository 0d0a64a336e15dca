package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mk-obs/telops/internal/config"
)

// authenticator issues and verifies API tokens. Users are static: login
// names mapped to bcrypt hashes in the configuration file.
type authenticator struct {
	secret   []byte
	tokenTTL time.Duration
	users    map[string]string
}

func newAuthenticator(cfg config.HTTPConfig) (*authenticator, error) {
	if len(cfg.Users) > 0 && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("http.jwt_secret must be set when users are configured")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authenticator{
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: ttl,
		users:    cfg.Users,
	}, nil
}

// enabled reports whether authentication is configured. With no users the
// write endpoints are open, which suits a summit-internal deployment.
func (a *authenticator) enabled() bool {
	return len(a.users) > 0
}

// login checks the credentials and returns a signed token.
func (a *authenticator) login(username, password string) (string, error) {
	hash, ok := a.users[username]
	if !ok {
		// burn comparable time so unknown users are not distinguishable
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalid"), []byte(password))
		return "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(a.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// verify parses the token and returns the subject.
func (a *authenticator) verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}

// Middleware enforces a bearer token on the route group when auth is
// configured.
func (a *authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "missing bearer token"})
			return
		}

		user, err := a.verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "invalid token"})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
