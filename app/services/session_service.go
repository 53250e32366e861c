package services

import (
	"context"
	"errors"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/pkg/event"
	"github.com/yellowrose/possrv/pkg/logger"
)

// SessionService owns the terminal's user: the startup session check,
// accepting a user after login, and logout.
type SessionService struct {
	backend   *repositories.Backend
	terminals *repositories.TerminalRepository
}

func NewSessionService(backend *repositories.Backend, terminals *repositories.TerminalRepository) *SessionService {
	return &SessionService{backend: backend, terminals: terminals}
}

// Terminal returns the stored terminal without any backend call.
func (s *SessionService) Terminal(ctx context.Context, id string) *models.Terminal {
	return s.terminals.Find(ctx, id)
}

// Start asks the backend whether the terminal's session is still active.
// An active session shows the sales screen; anything else, including a
// failed call, shows the login screen. Failures are only logged.
func (s *SessionService) Start(ctx context.Context, id string) (*models.Terminal, error) {
	jar := s.terminals.Find(ctx, id).Cookies
	status, err := s.backend.CheckSession(ctx, &jar)
	if err != nil && !errors.Is(err, repositories.ErrRejected) {
		logger.WithCtx(ctx).Warn("session check failed", "terminal", id, "error", err)
	}

	return s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.Cookies = jar
		switch {
		case err != nil || !status.LoggedIn:
			t.User = nil
			t.ShowLogin()
		case t.SignedIn():
			// A reload keeps the cart; only the user object is refreshed.
			t.User = status.User
		default:
			t.SignIn(status.User)
		}
		return nil
	})
}

// AcceptUser signs u in and switches to the sales screen.
func (s *SessionService) AcceptUser(ctx context.Context, id string, u models.User) (*models.Terminal, error) {
	t, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.SignIn(u)
		return nil
	})
	if err != nil {
		return t, err
	}
	event.Fire(ctx, EventLogin, AuthEvent{TerminalID: id, Username: u.DisplayName()})
	return t, nil
}

// Logout tells the backend, then clears the terminal whatever the backend
// answered.
func (s *SessionService) Logout(ctx context.Context, id string) (*models.Terminal, error) {
	before := s.terminals.Find(ctx, id)
	jar := before.Cookies
	if err := s.backend.Logout(ctx, &jar); err != nil {
		logger.WithCtx(ctx).Warn("logout failed", "terminal", id, "error", err)
	}

	t, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.SignOut()
		return nil
	})
	event.Fire(ctx, EventLogout, AuthEvent{TerminalID: id, Username: before.User.DisplayName()})
	return t, err
}
