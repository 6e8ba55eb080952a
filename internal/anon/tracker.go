// Package anon keeps the bookmark list of visitors without an account in a
// signed token that the client stores as a cookie. The server holds no state
// for them. A token that fails to decode is treated as empty, and its content
// is never trusted for authorization.
package anon

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/steemit/bookmarks/pkg/config"
)

const issuer = "bookmarks/anon"

// MaxCookieBytes is the largest name=value pair browsers reliably store
const MaxCookieBytes = 4096

type tokenClaims struct {
	Posts []int64 `json:"posts"`
	jwt.RegisteredClaims
}

// Tracker encodes, decodes and toggles anonymous bookmark sets
type Tracker struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewTracker creates a tracker from configuration
func NewTracker(cfg *config.AnonymousConfig) *Tracker {
	return &Tracker{
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// TTL is the lifetime of a freshly written token
func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

// Decode returns the post ids held by token. Absent, malformed, expired or
// badly signed tokens decode to the empty set.
func (t *Tracker) Decode(token string) []int64 {
	if token == "" {
		return []int64{}
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return []int64{}
	}
	return dedupe(claims.Posts)
}

// Contains reports whether postID is in the set held by token
func (t *Tracker) Contains(token string, postID int64) bool {
	for _, id := range t.Decode(token) {
		if id == postID {
			return true
		}
	}
	return false
}

// Toggle removes postID from the set if present, otherwise appends it. It
// returns the re-signed token, whose lifetime restarts, and whether the post
// was added. When the result overflows the entry cap or MaxCookieBytes the
// oldest entries are dropped.
func (t *Tracker) Toggle(token string, postID int64) (string, bool, error) {
	ids := t.Decode(token)

	added := true
	next := make([]int64, 0, len(ids)+1)
	for _, id := range ids {
		if id == postID {
			added = false
			continue
		}
		next = append(next, id)
	}
	if added {
		next = append(next, postID)
		if t.maxEntries > 0 && len(next) > t.maxEntries {
			next = next[len(next)-t.maxEntries:]
		}
	}

	encoded, err := t.encodeFitting(next)
	if err != nil {
		return "", false, err
	}
	return encoded, added, nil
}

// encodeFitting encodes ids, dropping the oldest until the cookie fits.
// The newest entry is always kept.
func (t *Tracker) encodeFitting(ids []int64) (string, error) {
	for {
		encoded, err := t.Encode(ids)
		if err != nil {
			return "", err
		}
		if len(ids) <= 1 || t.CookieSize(encoded) <= MaxCookieBytes {
			return encoded, nil
		}
		ids = ids[1:]
	}
}

// CookieSize is the length of the name=value pair that carries token
func (t *Tracker) CookieSize(token string) int {
	return len(t.cookieName) + 1 + len(token)
}

// Encode signs ids into a token valid for the tracker TTL
func (t *Tracker) Encode(ids []int64) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("anonymous token secret is not configured")
	}

	now := t.now()
	claims := tokenClaims{
		Posts: dedupe(ids),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign anonymous token: %w", err)
	}
	return signed, nil
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
