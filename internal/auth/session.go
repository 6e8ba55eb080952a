// Package auth reads the viewer identity from the host session and guards
// mutating actions with nonces.
package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/pkg/config"
	"github.com/steemit/bookmarks/pkg/logging"
)

// Identity is what the host session tells us about the viewer. The zero value
// is an anonymous visitor.
type Identity struct {
	UserID    int64
	Role      string
	SessionID string
}

// Authenticated reports whether the identity belongs to a logged-in user
func (i Identity) Authenticated() bool {
	return i.UserID > 0
}

// NonceSession is the session component nonces are bound to
func (i Identity) NonceSession() string {
	if !i.Authenticated() {
		return ""
	}
	return strconv.FormatInt(i.UserID, 10) + "|" + i.SessionID
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionResolver validates host session tokens
type SessionResolver struct {
	secret     []byte
	cookie     string
	adminRoles map[string]struct{}
}

// NewSessionResolver creates a resolver from configuration
func NewSessionResolver(cfg *config.AuthConfig) *SessionResolver {
	roles := make(map[string]struct{}, len(cfg.AdminRoles))
	for _, r := range cfg.AdminRoles {
		roles[r] = struct{}{}
	}
	return &SessionResolver{
		secret:     []byte(cfg.SessionSecret),
		cookie:     cfg.SessionCookie,
		adminRoles: roles,
	}
}

// Resolve reads the session from the request. Missing or invalid sessions
// resolve to the anonymous identity.
func (s *SessionResolver) Resolve(r *http.Request) Identity {
	raw := bearerToken(r)
	if raw == "" && s.cookie != "" {
		if c, err := r.Cookie(s.cookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return Identity{}
	}

	id, err := s.Parse(raw)
	if err != nil {
		logging.WithComponent("auth").Debug("Ignoring invalid host session", zap.Error(err))
		return Identity{}
	}
	return id
}

// Parse validates a session token and extracts the identity
func (s *SessionResolver) Parse(raw string) (Identity, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, jwt.ErrTokenInvalidSubject
	}
	return Identity{UserID: userID, Role: claims.Role, SessionID: claims.ID}, nil
}

// IsAdmin reports whether the identity may read per-post counts
func (s *SessionResolver) IsAdmin(id Identity) bool {
	if !id.Authenticated() {
		return false
	}
	_, ok := s.adminRoles[id.Role]
	return ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
