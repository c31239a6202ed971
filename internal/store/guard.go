package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthorized is returned by HostGuard when a non-host participant
// writes a key outside its own intent mailbox.
var ErrNotAuthorized = errors.New("store: write not authorized")

// HostGuard wraps a Store and enforces the single-writer discipline at the
// write boundary: the host may write anything, everyone else may only
// write their own pendingAction key. It can also mint and verify signed
// authority tokens so an untrusted relay can check host writes without
// understanding the game.
type HostGuard struct {
	inner  Store
	secret []byte
}

// NewHostGuard wraps inner with write enforcement. secret signs authority
// tokens; it must match across participants that verify each other.
func NewHostGuard(inner Store, secret []byte) *HostGuard {
	return &HostGuard{inner: inner, secret: secret}
}

func (g *HostGuard) Get(key string) (json.RawMessage, bool) {
	return g.inner.Get(key)
}

func (g *HostGuard) Set(key string, value any) error {
	if !g.inner.IsHost() && !g.ownMailbox(key) {
		return fmt.Errorf("%w: %s writing %s", ErrNotAuthorized, g.inner.MyID(), key)
	}
	return g.inner.Set(key, value)
}

func (g *HostGuard) MyID() string { return g.inner.MyID() }
func (g *HostGuard) IsHost() bool { return g.inner.IsHost() }

// ownMailbox reports whether key is this participant's own intent slot.
func (g *HostGuard) ownMailbox(key string) bool {
	return key == "players/"+g.inner.MyID()+"/pendingAction"
}

type authorityClaims struct {
	Host bool `json:"host"`
	jwt.RegisteredClaims
}

// Token mints a signed token asserting this participant's id and current
// host status, valid for ttl.
func (g *HostGuard) Token(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authorityClaims{
		Host: g.inner.IsHost(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.inner.MyID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(g.secret)
}

// VerifyToken checks a peer's authority token and returns the subject id
// and whether it asserts host authority.
func (g *HostGuard) VerifyToken(token string) (subject string, host bool, err error) {
	var claims authorityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return "", false, err
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", false, errors.New("invalid authority token")
	}
	return claims.Subject, claims.Host, nil
}
