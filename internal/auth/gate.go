// Package auth implements the single-passphrase role gate. A correct
// passphrase opens an admin session; everyone else is a guest.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"anwarfarm/internal/cache"
	"anwarfarm/internal/core"
	applog "anwarfarm/internal/log"
)

// CookieName carries the opaque session token.
const CookieName = "anwarfarm_session"

const maxSessions = 1024

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrAdminDisabled     = errors.New("no admin passphrase configured")
)

// Gate checks passphrases and tracks admin sessions in memory.
type Gate struct {
	hash     []byte
	sessions *cache.LRUCache[core.Role]
	logger   *applog.Logger
}

// Option configures a Gate.
type Option func(*gateOptions)

type gateOptions struct {
	cost   int
	logger *applog.Logger
}

// WithCost sets the bcrypt cost used when hashing a plain passphrase.
func WithCost(cost int) Option {
	return func(o *gateOptions) { o.cost = cost }
}

func WithLogger(l *applog.Logger) Option {
	return func(o *gateOptions) { o.logger = l }
}

// NewGate builds a gate from either a plain passphrase or a bcrypt hash.
// The hash wins when both are set. With neither, nobody can become admin.
func NewGate(passphrase, passphraseHash string, ttl time.Duration, opts ...Option) (*Gate, error) {
	o := gateOptions{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}
	g := &Gate{
		sessions: cache.NewLRUCache[core.Role](maxSessions, ttl),
		logger:   applog.OrDiscard(o.logger).WithComponent(applog.ComponentAuth),
	}

	switch {
	case passphraseHash != "":
		if _, err := bcrypt.Cost([]byte(passphraseHash)); err != nil {
			return nil, fmt.Errorf("parse admin passphrase hash: %w", err)
		}
		g.hash = []byte(passphraseHash)
	case passphrase != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), o.cost)
		if err != nil {
			return nil, fmt.Errorf("hash admin passphrase: %w", err)
		}
		g.hash = hash
	default:
		g.logger.Warn("No admin passphrase configured, everyone is a guest")
	}
	return g, nil
}

// Sessions exposes the session cache so it can join the periodic sweep.
func (g *Gate) Sessions() cache.Cleaner {
	return g.sessions
}

// Login checks passphrase and returns a new admin session token.
func (g *Gate) Login(ctx context.Context, passphrase string) (string, error) {
	if g.hash == nil {
		return "", ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(passphrase)); err != nil {
		g.logger.WarnContext(ctx, "Admin login rejected", applog.FieldOperation, applog.OpLogin)
		return "", ErrInvalidPassphrase
	}
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("create session token: %w", err)
	}
	g.sessions.Set(token, core.Admin)
	g.logger.InfoContext(ctx, "Admin session opened", applog.FieldOperation, applog.OpLogin)
	return token, nil
}

// Logout ends the session. Unknown tokens are ignored.
func (g *Gate) Logout(token string) {
	if token != "" {
		g.sessions.Delete(token)
	}
}

// Role resolves a session token. Missing or expired sessions are guests.
func (g *Gate) Role(token string) core.Role {
	if token == "" {
		return core.Guest
	}
	if role, ok := g.sessions.Get(token); ok {
		return role
	}
	return core.Guest
}

// RoleFromRequest resolves the role of the session cookie on r.
func (g *Gate) RoleFromRequest(r *http.Request) core.Role {
	return g.Role(TokenFromRequest(r))
}

// TokenFromRequest returns the session token, or "" when there is none.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetCookie stores token in a browser-session cookie.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
