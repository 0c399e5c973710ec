// Package session owns the authenticated identity for the browsing context:
// who is logged in, their bearer token, and the stored identity that lets a
// session survive a restart. It is constructor-injected into the collection
// store and the gateway rather than accessed as an ambient global.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/nandhan/webmail/internal/crypto"
	"github.com/nandhan/webmail/internal/models"
	"github.com/nandhan/webmail/internal/prefs"
)

// Authenticator is the slice of the mail gateway the session needs: exchange
// credentials for a token and user identity.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (token string, user models.User, err error)
}

// Manager tracks the current user and token. A nil current user means "no
// collection": snapshot loads must not run.
type Manager struct {
	mu       sync.RWMutex
	prefs    *prefs.Store
	cipher   *crypto.TokenCipher
	auth     Authenticator
	user     *models.User
	token    string
	loading  bool
	onLogout []func()
}

// NewManager creates a session manager. The manager starts in the loading
// state until Restore has run.
func NewManager(prefsStore *prefs.Store, cipher *crypto.TokenCipher, auth Authenticator) *Manager {
	return &Manager{
		prefs:   prefsStore,
		cipher:  cipher,
		auth:    auth,
		loading: true,
	}
}

// Restore bootstraps the session from the stored identity, if any. A stored
// token that fails to decrypt is treated as absent rather than as an error,
// so a rotated encryption key degrades to a fresh login prompt.
func (m *Manager) Restore(ctx context.Context) error {
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	sealed, err := m.prefs.Get(ctx, prefs.Key{Namespace: prefs.NamespaceToken})
	if errors.Is(err, prefs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stored token: %w", err)
	}

	token, err := m.cipher.Open(sealed)
	if err != nil {
		log.Printf("session: Warning: stored token is unreadable, ignoring: %v", err)
		return nil
	}

	email, err := m.prefs.Get(ctx, prefs.Key{Namespace: prefs.NamespaceUserEmail})
	if errors.Is(err, prefs.ErrNotFound) || email == "" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stored user email: %w", err)
	}

	username, err := m.prefs.Get(ctx, prefs.Key{Namespace: prefs.NamespaceUsername})
	if err != nil {
		username = defaultUsername(email)
	}

	m.mu.Lock()
	m.token = token
	m.user = &models.User{Email: email, Username: username}
	m.mu.Unlock()

	return nil
}

// Login authenticates against the gateway and persists the resulting
// identity. The token is encrypted before it is stored.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	token, user, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if user.Email == "" {
		user.Email = email
	}
	if user.Username == "" {
		user.Username = defaultUsername(user.Email)
	}

	sealed, err := m.cipher.Seal(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	if err := m.prefs.Set(ctx, prefs.Key{Namespace: prefs.NamespaceToken}, sealed); err != nil {
		return err
	}
	if err := m.prefs.Set(ctx, prefs.Key{Namespace: prefs.NamespaceUserEmail}, user.Email); err != nil {
		return err
	}
	if err := m.prefs.Set(ctx, prefs.Key{Namespace: prefs.NamespaceUsername}, user.Username); err != nil {
		return err
	}

	m.mu.Lock()
	m.token = token
	m.user = &user
	m.mu.Unlock()

	return nil
}

// Logout clears the stored identity and the in-memory session, then runs the
// registered logout listeners (the collection store discards its collection
// through one of these, so nothing leaks between user sessions).
func (m *Manager) Logout(ctx context.Context) {
	for _, ns := range []string{
		prefs.NamespaceToken,
		prefs.NamespaceUserEmail,
		prefs.NamespaceUsername,
		prefs.NamespaceTempToken,
	} {
		if err := m.prefs.Delete(ctx, prefs.Key{Namespace: ns}); err != nil {
			log.Printf("session: Warning: failed to clear %s: %v", ns, err)
		}
	}

	m.mu.Lock()
	m.user = nil
	m.token = ""
	listeners := make([]func(), len(m.onLogout))
	copy(listeners, m.onLogout)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnLogout registers a listener invoked after the session is cleared.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// CurrentUser returns the authenticated user, or (User{}, false) when nobody
// is logged in.
func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// Token returns the current bearer token, or "" when logged out. The gateway
// uses this as its token source on every request.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// IsLoading reports whether the session is still being restored.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func defaultUsername(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
