package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type AuthService struct {
	Users    repo.UserRepository
	Sessions repo.SessionRepository
	Tokens   *tokens.Issuer
	Events   events.Publisher
	Now      func() time.Time
}

// Session is a freshly opened login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		l.Warn("login_failed", "reason", reason(err), "error", err)
		return nil, err
	}
	return s.openSession(ctx, user)
}

// AdminLogin accepts only accounts flagged as administrators. A valid
// non-admin account fails exactly like a wrong password.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.admin_login", "username", username)

	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		l.Warn("login_failed", "reason", reason(err), "error", err)
		return nil, err
	}
	if !user.IsAdmin {
		l.Warn("login_failed", "reason", "not an administrator")
		return nil, ErrAuthentication
	}
	return s.openSession(ctx, user)
}

func (s *AuthService) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		hash.Burn(password)
		return nil, ErrAuthentication
	}

	user, err := s.Users.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		hash.Burn(password)
		return nil, ErrAuthentication
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrAuthentication
	}
	return user, nil
}

// PurgeSessions deletes revoked and expired session rows. A session that is
// no longer active fails Identify the same way whether or not its row exists.
func (s *AuthService) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.Sessions.DeleteEnded(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*Session, error) {
	token, claims, err := s.Tokens.Issue(user.ID, user.Username, user.IsAdmin, s.now())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	row := &models.Session{
		JTI:       claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if err := s.Sessions.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if _, err := s.PurgeSessions(ctx); err != nil {
		logging.FromContext(ctx).Warn("session_purge_failed", "error", err)
	}

	publish(ctx, s.Events, userKey(user.ID), events.Event{
		"type":    events.UserLoggedIn,
		"userID":  user.ID,
		"isAdmin": user.IsAdmin,
	})

	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Identity:  Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin},
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	if err := checkCredentials(username, password, false); err != nil {
		return nil, err
	}

	if _, err := s.Users.FindByUsername(ctx, username); err == nil {
		l.Warn("register_failed", "status", 409, "reason", "username taken")
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: pwHash}
	if err := s.Users.Insert(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_failed", "status", 409, "reason", "username taken concurrently")
			return nil, fmt.Errorf("%w: username already exists", ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	publish(ctx, s.Events, userKey(user.ID), events.Event{
		"type":     events.UserRegistered,
		"userID":   user.ID,
		"username": user.Username,
	})
	l.Info("user_registered", "user_id", user.ID)
	return user, nil
}

// Logout revokes the session behind token. Unparseable or unknown tokens are
// ignored, so calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.Sessions.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Identify resolves a session token into the identity of its current user.
// The token must verify and its session row must still be active.
func (s *AuthService) Identify(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	sess, err := s.Sessions.FindByJTI(ctx, claims.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown session", ErrAuthentication)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !sess.Active(s.now()) {
		return nil, fmt.Errorf("%w: session ended", ErrAuthentication)
	}

	uid, err := claims.UserID()
	if err != nil || uid != sess.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", ErrAuthentication)
	}

	user, err := s.Users.FindByID(ctx, uid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: user gone", ErrAuthentication)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// EnsureAdmin seeds the reserved admin account, or restores its admin flag.
// An existing password is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, password string) error {
	user, err := s.Users.FindByUsername(ctx, models.ReservedAdmin)
	switch {
	case err == nil:
		if user.IsAdmin {
			return nil
		}
		user.IsAdmin = true
		return s.Users.Update(ctx, user)
	case !errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("find admin: %w", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.Users.Insert(ctx, &models.User{Username: models.ReservedAdmin, PasswordHash: pwHash, IsAdmin: true})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

func reason(err error) string {
	if errors.Is(err, ErrAuthentication) {
		return "invalid credentials"
	}
	return "internal error"
}

func userKey(id uint) string {
	return "user-" + strconv.FormatUint(uint64(id), 10)
}
