package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/steemit/bookmarks/pkg/config"
)

const nonceLength = 10

// NonceManager issues and checks short-lived anti-forgery tokens bound to an
// action and a session. A nonce stays valid for between half and the whole of
// the configured lifetime.
type NonceManager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewNonceManager creates a nonce manager from configuration
func NewNonceManager(cfg *config.AuthConfig) *NonceManager {
	return &NonceManager{
		secret:   []byte(cfg.NonceSecret),
		lifetime: cfg.NonceLifetime,
		now:      time.Now,
	}
}

// WithClock replaces the time source
func (m *NonceManager) WithClock(now func() time.Time) *NonceManager {
	m.now = now
	return m
}

// Create returns the nonce for action in the current window
func (m *NonceManager) Create(action, session string) string {
	return m.sign(m.tick(), action, session)
}

// Verify accepts nonces from the current and the previous window
func (m *NonceManager) Verify(nonce, action, session string) bool {
	if len(nonce) != nonceLength {
		return false
	}
	tick := m.tick()
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(nonce), []byte(m.sign(t, action, session))) {
			return true
		}
	}
	return false
}

func (m *NonceManager) tick() int64 {
	half := int64(m.lifetime / 2)
	if half <= 0 {
		half = int64(12 * time.Hour)
	}
	now := m.now().UnixNano()
	return (now + half - 1) / half
}

func (m *NonceManager) sign(tick int64, action, session string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(session))
	return hex.EncodeToString(mac.Sum(nil))[:nonceLength]
}
