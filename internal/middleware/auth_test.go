package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragon-treasure/internal/config"
	"dragon-treasure/internal/middleware"
	"dragon-treasure/internal/services"
)

type fakeLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeLimiter) CheckRateLimit(ctx context.Context, sessionID, action string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func newRouter(jwtService *services.JWTService, limiter middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestLogger())

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"session_id": c.GetString("session_id")})
	})
	protected.POST("/plea", middleware.RateLimitMiddleware(limiter, "plea", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "secret", TokenTTL: time.Hour})
	router := newRouter(jwtService, &fakeLimiter{allowed: true})

	token, _, err := jwtService.GenerateToken("session-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		url    string
		header string
		status int
	}{
		{"bearer header", "/api/me", "Bearer " + token, http.StatusOK},
		{"query token", "/api/me?token=" + token, "", http.StatusOK},
		{"missing", "/api/me", "", http.StatusUnauthorized},
		{"bad format", "/api/me", "Token " + token, http.StatusUnauthorized},
		{"bad token", "/api/me", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"session_id":"session-1"}`, w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "secret", TokenTTL: time.Hour})
	token, _, err := jwtService.GenerateToken("session-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		limiter *fakeLimiter
		status  int
	}{
		{"allowed", &fakeLimiter{allowed: true}, http.StatusNoContent},
		{"limited", &fakeLimiter{allowed: false}, http.StatusTooManyRequests},
		{"store error", &fakeLimiter{err: errors.New("redis down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(jwtService, tt.limiter)
			req := httptest.NewRequest(http.MethodPost, "/api/plea", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, 1, tt.limiter.calls)
		})
	}
}
