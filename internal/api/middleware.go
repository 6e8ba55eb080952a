package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/internal/auth"
	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/pkg/logging"
)

const (
	// HeaderRequestID carries the request id in both directions
	HeaderRequestID = "X-Request-ID"

	contextKeyRequestID = "request_id"
	contextKeyIdentity  = "identity"
	contextKeyViewer    = "viewer"
)

// RequestID reuses the caller's request id or generates one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			if u, err := uuid.NewV4(); err == nil {
				id = u.String()
			}
		}
		c.Set(contextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// AccessLog logs every request once it completes
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.WithRequestID(requestID(c)).Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// ResolveViewer reads the host session and the anonymous bookmark cookie
func ResolveViewer(sessions *auth.SessionResolver, anonCookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := sessions.Resolve(c.Request)
		viewer := bookmark.Viewer{
			UserID:    identity.UserID,
			Role:      identity.Role,
			SessionID: identity.SessionID,
		}
		if !identity.Authenticated() {
			viewer.AnonToken, _ = c.Cookie(anonCookie)
		}

		c.Set(contextKeyIdentity, identity)
		c.Set(contextKeyViewer, viewer)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}

func currentIdentity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(contextKeyIdentity); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func currentViewer(c *gin.Context) bookmark.Viewer {
	if v, ok := c.Get(contextKeyViewer); ok {
		if viewer, ok := v.(bookmark.Viewer); ok {
			return viewer
		}
	}
	return bookmark.Viewer{}
}
