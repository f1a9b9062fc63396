package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
	"github.com/swift-wallet/swiftwallet-go/internal/localstore"
	"github.com/swift-wallet/swiftwallet-go/internal/secure"
)

// Credentials owns the persisted session row and the in-memory token pair
// the authorization transport reads on every request. Token strings are
// sealed at rest when a sealer is configured.
type Credentials struct {
	mu      sync.RWMutex
	access  string
	refresh string
	user    api.User
	loaded  bool

	store  localstore.Store
	sealer *secure.Sealer
}

// NewCredentials builds a credential manager. sealer may be nil, in which
// case tokens are stored in the clear.
func NewCredentials(store localstore.Store, sealer *secure.Sealer) *Credentials {
	return &Credentials{store: store, sealer: sealer}
}

func (c *Credentials) seal(token string) (string, error) {
	if c.sealer == nil || token == "" {
		return token, nil
	}
	return c.sealer.Seal(token)
}

func (c *Credentials) open(sealed string) (string, error) {
	if c.sealer == nil || sealed == "" {
		return sealed, nil
	}
	return c.sealer.Open(sealed)
}

// Load hydrates tokens and identity from the local store. It returns the
// cached user and true when a session exists.
func (c *Credentials) Load(ctx context.Context) (api.User, bool, error) {
	row, err := c.store.Session(ctx)
	if errors.Is(err, localstore.ErrNotFound) {
		return api.User{}, false, nil
	}
	if err != nil {
		return api.User{}, false, fmt.Errorf("load session: %w", err)
	}

	access, err := c.open(row.AccessToken)
	if err != nil {
		return api.User{}, false, fmt.Errorf("unseal access token: %w", err)
	}
	refresh, err := c.open(row.RefreshToken)
	if err != nil {
		return api.User{}, false, fmt.Errorf("unseal refresh token: %w", err)
	}

	c.mu.Lock()
	c.access = access
	c.refresh = refresh
	c.user = row.User()
	c.loaded = true
	c.mu.Unlock()
	return row.User(), true, nil
}

func (c *Credentials) persist(ctx context.Context) error {
	c.mu.RLock()
	user := c.user
	access := c.access
	refresh := c.refresh
	c.mu.RUnlock()

	sealedAccess, err := c.seal(access)
	if err != nil {
		return err
	}
	sealedRefresh, err := c.seal(refresh)
	if err != nil {
		return err
	}
	return c.store.SaveSession(ctx, localstore.Session{
		UserID:         user.ID,
		PhoneNumber:    user.PhoneNumber,
		AccountNumber:  user.AccountNumber,
		FullName:       user.FullName,
		Email:          user.Email,
		IsVerified:     user.IsVerified,
		ProfilePicture: user.ProfilePicture,
		AccessToken:    sealedAccess,
		RefreshToken:   sealedRefresh,
	})
}

// SetSession installs a fresh identity and token pair, replacing any
// previous session wholesale.
func (c *Credentials) SetSession(ctx context.Context, user api.User, tokens api.Tokens) error {
	c.mu.Lock()
	c.user = user
	c.access = tokens.Access
	c.refresh = tokens.Refresh
	c.loaded = true
	c.mu.Unlock()
	return c.persist(ctx)
}

// StoreAccessToken swaps in a refreshed access token, keeping everything
// else. Called by the authorization transport after a successful refresh.
func (c *Credentials) StoreAccessToken(ctx context.Context, access string) error {
	c.mu.Lock()
	c.access = access
	c.mu.Unlock()
	return c.persist(ctx)
}

// UpdateUser replaces the cached identity, keeping the token pair.
func (c *Credentials) UpdateUser(ctx context.Context, user api.User) error {
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()
	return c.persist(ctx)
}

// Clear wipes tokens and identity from memory and deletes the session row.
// Only the session table is touched; full table clearing is logout's job.
func (c *Credentials) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.access = ""
	c.refresh = ""
	c.user = api.User{}
	c.loaded = false
	c.mu.Unlock()
	return c.store.DeleteSession(ctx)
}

// AccessToken returns the cached access token, empty when logged out.
func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

// RefreshToken returns the cached refresh token, empty when logged out.
func (c *Credentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

// IsAuthenticated reports whether an access token is cached.
func (c *Credentials) IsAuthenticated() bool {
	return c.AccessToken() != ""
}
