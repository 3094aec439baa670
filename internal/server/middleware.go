package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"github.com/matthieukhl/backoffice/internal/auth"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID tags every request with an id, reusing the caller's when present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger writes one structured line per request
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if id := auth.FromContext(c.Request.Context()); id != nil {
			fields = append(fields, zap.String("user", id.Username))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			s.logger.Warn("request", fields...)
		default:
			s.logger.Info("request", fields...)
		}
	}
}

// recovery turns a panic into a 500 and logs it
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.writeError(c, fmt.Errorf("panic: %v", recovered))
	})
}

// authenticate resolves the Authorization header into an identity. Requests
// without credentials continue anonymously; bad credentials are rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		id, err := s.provider.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// bearerToken extracts the key from "Token <key>" or "Bearer <key>". A header
// with an unknown scheme counts as absent.
func bearerToken(header string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	return key, true
}

// requireAuth rejects anonymous callers
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity(c) == nil {
			s.writeError(c, apperr.ErrAuthenticationRequired)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) *auth.Identity {
	return auth.FromContext(c.Request.Context())
}
