package services

import (
	"context"
	"errors"
	"time"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/pkg/event"
	"github.com/yellowrose/possrv/pkg/logger"
)

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// LoginService submits credentials for a terminal.
type LoginService struct {
	backend    *repositories.Backend
	terminals  *repositories.TerminalRepository
	sessions   *SessionService
	staleAfter time.Duration
	now        func() time.Time
}

// NewLoginService returns a LoginService. A pending login older than
// staleAfter no longer blocks a new one.
func NewLoginService(backend *repositories.Backend, terminals *repositories.TerminalRepository, sessions *SessionService, staleAfter time.Duration) *LoginService {
	return &LoginService{
		backend:    backend,
		terminals:  terminals,
		sessions:   sessions,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Submit posts the credentials. Rejected credentials and connection errors
// set the terminal's inline login error; success signs the user in.
func (s *LoginService) Submit(ctx context.Context, id string, in LoginInput) (*models.Terminal, error) {
	log := logger.WithCtx(ctx)

	if in.Username == "" || in.Password == "" {
		t, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
			t.LoginError = MsgCredentialsMissing
			return nil
		})
		if err != nil {
			return t, err
		}
		return t, ErrValidation
	}

	var jar models.CookieJar
	t, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		if t.LoginPending && s.now().Sub(t.PendingAt) < s.staleAfter {
			return ErrInFlight
		}
		t.LoginPending = true
		t.PendingAt = s.now()
		t.LoginError = ""
		jar = t.Cookies
		return nil
	})
	if err != nil {
		return t, err
	}

	user, loginErr := s.backend.Login(ctx, &jar, in.Username, in.Password)

	if loginErr == nil {
		if _, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
			t.Cookies = jar
			return nil
		}); err != nil {
			return t, err
		}
		log.Info("login succeeded", "terminal", id, "username", in.Username)
		return s.sessions.AcceptUser(ctx, id, user)
	}

	msg := MsgConnectionError
	if errors.Is(loginErr, repositories.ErrRejected) {
		msg = MsgInvalidCredentials
		log.Info("login rejected", "terminal", id, "username", in.Username)
	} else {
		log.Warn("login failed", "terminal", id, "error", loginErr)
	}
	event.Fire(ctx, EventLoginFailed, AuthEvent{TerminalID: id, Username: in.Username})

	t, err = s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.Cookies = jar
		t.LoginPending = false
		t.PendingAt = time.Time{}
		t.LoginError = msg
		return nil
	})
	if err != nil {
		return t, err
	}
	return t, loginErr
}
