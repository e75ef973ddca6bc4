package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rollbar/rollbar-go"

	"github.com/soins-plus/training-service/internal/utils"
)

// SetupMiddleware sets up common middleware for the Gin router.
// Rollbar reporting is installed only when reportErrors is set.
func SetupMiddleware(router *gin.Engine, logger utils.Logger, reportErrors bool) {
	router.Use(RequestIDMiddleware())

	router.Use(CORSMiddleware())

	// Recovery middleware
	router.Use(gin.Recovery())

	if reportErrors {
		router.Use(RollbarMiddleware())
	}

	// Context logger middleware (adds logger with request_id to context)
	router.Use(utils.ContextLogger(logger))

	router.Use(utils.LoggerMiddleware(logger))

	router.Use(SecurityMiddleware())
}

// SecurityMiddleware adds security headers
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// RequestIDMiddleware generates a unique request ID for each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// CORSMiddleware provides CORS support
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, Retry-After")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "43200")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RollbarMiddleware reports panics as critical and 5xx responses as errors.
// Panics are re-raised for gin.Recovery to answer.
func RollbarMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				rollbar.Critical(fmt.Errorf("panic: %v", r), c.Request, rollbarExtras(c))
				panic(r)
			}
		}()

		c.Next()

		if c.Writer.Status() < http.StatusInternalServerError {
			return
		}
		err := errors.New(http.StatusText(c.Writer.Status()))
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		rollbar.Error(err, c.Request, rollbarExtras(c))
	}
}

func rollbarExtras(c *gin.Context) map[string]interface{} {
	extras := map[string]interface{}{
		"request_id": c.GetString("request_id"),
		"route":      c.FullPath(),
		"status":     c.Writer.Status(),
	}
	if userID := c.GetString("user_id"); userID != "" {
		extras["user_id"] = userID
	}
	return extras
}
