// Package session owns authentication state: the credential manager backing
// the authorization transport, and the reactive store driving login, signup
// and profile flows.
package session

import (
	"context"
	"io"
	"log/slog"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
	"github.com/swift-wallet/swiftwallet-go/internal/localstore"
	"github.com/swift-wallet/swiftwallet-go/internal/state"
)

// Navigation targets used by the auth flows.
const (
	loginRoute     = "/auth/login"
	dashboardRoute = "/dashboard"
)

// State is the observable auth snapshot.
type State struct {
	User            *api.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Gateway is the subset of remote operations the session store drives.
type Gateway interface {
	Login(ctx context.Context, req api.LoginRequest) (api.AuthPayload, error)
	RequestSignupOTP(ctx context.Context, req api.SignupOTPRequest) (string, error)
	VerifySignupOTP(ctx context.Context, req api.SignupVerifyRequest) (api.AuthPayload, error)
	Profile(ctx context.Context) (api.User, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (api.User, error)
	UploadProfilePicture(ctx context.Context, filename string, picture io.Reader) (string, error)
	SetTransactionPIN(ctx context.Context, pin, confirmPIN string) (string, error)
}

// Navigator moves the UI between screens after auth transitions.
type Navigator interface {
	Navigate(route string)
}

// Resetter is any sibling store whose in-memory state must return to
// initial on logout.
type Resetter interface {
	Reset()
}

// Store is the reactive session container.
type Store struct {
	state     *state.Container[State]
	gw        Gateway
	db        localstore.Store
	creds     *Credentials
	nav       Navigator
	logger    *slog.Logger
	resetters []Resetter
}

// NewStore wires the session store. Resetters are invoked on logout, after
// local data is cleared.
func NewStore(gw Gateway, db localstore.Store, creds *Credentials, nav Navigator, logger *slog.Logger, resetters ...Resetter) *Store {
	return &Store{
		state:     state.New(State{}),
		gw:        gw,
		db:        db,
		creds:     creds,
		nav:       nav,
		logger:    logger,
		resetters: resetters,
	}
}

// Snapshot returns the current auth state.
func (s *Store) Snapshot() State { return s.state.Get() }

// Subscribe observes auth state changes.
func (s *Store) Subscribe() (<-chan State, func()) { return s.state.Subscribe() }

// Init hydrates auth state from the local store; an absent session leaves
// the store logged out without error.
func (s *Store) Init(ctx context.Context) error {
	user, ok, err := s.creds.Load(ctx)
	if err != nil {
		// A broken session row is treated as logged out, not fatal.
		s.logger.Warn("hydrate session", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	s.state.Patch(func(st *State) {
		st.User = &user
		st.IsAuthenticated = true
	})
	return nil
}

// RequestSignupOTP asks the API to send a signup OTP and returns the server
// message for display.
func (s *Store) RequestSignupOTP(ctx context.Context, phoneNumber string) (string, error) {
	return s.gw.RequestSignupOTP(ctx, api.SignupOTPRequest{PhoneNumber: phoneNumber})
}

func (s *Store) establish(ctx context.Context, payload api.AuthPayload) {
	if err := s.creds.SetSession(ctx, payload.User, payload.Tokens); err != nil {
		// The remote login stands; a cold cache only costs offline access.
		s.logger.Warn("persist session", "error", err)
	}
	user := payload.User
	s.state.Patch(func(st *State) {
		st.User = &user
		st.IsAuthenticated = true
		st.IsLoading = false
		st.Error = ""
	})
	s.nav.Navigate(dashboardRoute)
}

// Login authenticates and establishes the session.
func (s *Store) Login(ctx context.Context, req api.LoginRequest) error {
	s.state.Patch(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})
	payload, err := s.gw.Login(ctx, req)
	if err != nil {
		message := api.ErrorMessage(err, "Login failed")
		s.state.Patch(func(st *State) {
			st.IsLoading = false
			st.Error = message
		})
		return err
	}
	s.establish(ctx, payload)
	return nil
}

// Signup completes OTP verification and establishes the session.
func (s *Store) Signup(ctx context.Context, req api.SignupVerifyRequest) error {
	s.state.Patch(func(st *State) {
		st.IsLoading = true
		st.Error = ""
	})
	payload, err := s.gw.VerifySignupOTP(ctx, req)
	if err != nil {
		message := api.ErrorMessage(err, "Signup failed")
		s.state.Patch(func(st *State) {
			st.IsLoading = false
			st.Error = message
		})
		return err
	}
	s.establish(ctx, payload)
	return nil
}

func (s *Store) applyUser(ctx context.Context, user api.User) {
	if err := s.creds.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("persist user", "error", err)
	}
	s.state.Patch(func(st *State) {
		st.User = &user
	})
}

// Profile fetches the remote profile, updating state and the local session.
func (s *Store) Profile(ctx context.Context) (api.User, error) {
	user, err := s.gw.Profile(ctx)
	if err != nil {
		return api.User{}, err
	}
	s.applyUser(ctx, user)
	return user, nil
}

// UpdateProfile applies profile changes remotely and locally.
func (s *Store) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (api.User, error) {
	user, err := s.gw.UpdateProfile(ctx, update)
	if err != nil {
		return api.User{}, err
	}
	s.applyUser(ctx, user)
	return user, nil
}

// UploadProfilePicture uploads a display picture and records its URL.
func (s *Store) UploadProfilePicture(ctx context.Context, filename string, picture io.Reader) (string, error) {
	pictureURL, err := s.gw.UploadProfilePicture(ctx, filename, picture)
	if err != nil {
		return "", err
	}
	if current := s.Snapshot().User; current != nil {
		updated := *current
		updated.ProfilePicture = pictureURL
		s.applyUser(ctx, updated)
	}
	return pictureURL, nil
}

// SetTransactionPIN sets the wallet transaction PIN.
func (s *Store) SetTransactionPIN(ctx context.Context, pin, confirmPIN string) (string, error) {
	return s.gw.SetTransactionPIN(ctx, pin, confirmPIN)
}

// Logout clears credentials, empties every local table, resets all
// registered stores and navigates to login.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.creds.Clear(ctx); err != nil {
		s.logger.Warn("clear credentials", "error", err)
	}
	if err := s.db.ClearAll(ctx); err != nil {
		s.logger.Warn("clear local data", "error", err)
	}
	s.state.Patch(func(st *State) {
		*st = State{}
	})
	for _, r := range s.resetters {
		r.Reset()
	}
	s.nav.Navigate(loginRoute)
	return nil
}

// ClearError drops the visible error message.
func (s *Store) ClearError() {
	s.state.Patch(func(st *State) {
		st.Error = ""
	})
}
