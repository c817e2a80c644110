package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "pw", u.PasswordHash)
	assert.True(t, hash.CheckPassword(u.PasswordHash, "pw"))
	assert.Equal(t, []string{events.UserRegistered}, f.events.Types())

	_, err = f.auth.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.auth.Register(ctx, "Alice", "pw")
	assert.NoError(t, err, "usernames are case-sensitive")
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "secret"},
		{name: "blank username", username: "   ", password: "secret"},
		{name: "empty password", username: "user", password: ""},
		{name: "password over bcrypt limit", username: "user", password: strings.Repeat("x", 73)},
		{name: "username over column size", username: strings.Repeat("u", 81), password: "secret"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.auth.Register(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := f.auth.Register(context.Background(), strings.Repeat("u", 80), strings.Repeat("x", 72))
	assert.NoError(t, err, "limits are inclusive")
}

// racingUsers hides an existing row from the pre-check so Insert hits the
// unique constraint, as with two concurrent registrations.
type racingUsers struct {
	repo.UserRepository
}

func (racingUsers) FindByUsername(context.Context, string) (*models.User, error) {
	return nil, repo.ErrNotFound
}

func TestAuthService_Register_DuplicateKeyIsConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "bob", "pw", false)
	f.auth.Users = racingUsers{f.repos.Users}

	_, err := f.auth.Register(context.Background(), "bob", "pw2")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob", "pw", false)

	sess, err := f.auth.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, Identity{UserID: bob.ID, Username: "bob"}, sess.Identity)
	assert.Contains(t, f.events.Types(), events.UserLoggedIn)

	id, err := f.auth.Identify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, id.UserID)
	assert.False(t, id.IsAdmin)
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "bob", "pw", false)

	tests := []struct {
		name, username, password string
	}{
		{"unknown user", "nobody", "pw"},
		{"wrong password", "bob", "nope"},
		{"wrong case", "Bob", "pw"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess, err := f.auth.Login(context.Background(), tt.username, tt.password)
			assert.Nil(t, sess)
			assert.Same(t, ErrAuthentication, err)
			assert.Equal(t, "invalid username or password", err.Error())
		})
	}
}

func TestAuthService_AdminLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "root", "pw", true)
	f.addUser(t, "bob", "pw", false)

	sess, err := f.auth.AdminLogin(ctx, "root", "pw")
	require.NoError(t, err)
	assert.True(t, sess.Identity.IsAdmin)

	_, err = f.auth.AdminLogin(ctx, "bob", "pw")
	assert.Same(t, ErrAuthentication, err, "non-admins fail like a wrong password")

	_, err = f.auth.AdminLogin(ctx, "root", "bad")
	assert.Same(t, ErrAuthentication, err)
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "bob", "pw", false)

	sess, err := f.auth.Login(ctx, "bob", "pw")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, sess.Token))
	require.NoError(t, f.auth.Logout(ctx, sess.Token), "logout is idempotent")
	require.NoError(t, f.auth.Logout(ctx, ""))
	require.NoError(t, f.auth.Logout(ctx, "garbage"))

	_, err = f.auth.Identify(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrAuthentication, "a replayed token is rejected after logout")
}

func TestAuthService_Identify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("rejects a forged token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.auth.Identify(ctx, "eyJhbGciOiJIUzI1NiJ9.e30.x")
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("rejects a token without a session row", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := f.addUser(t, "bob", "pw", false)
		tok, _, err := f.auth.Tokens.Issue(u.ID, "bob", true, time.Now())
		require.NoError(t, err)
		_, err = f.auth.Identify(ctx, tok)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("rejects an expired session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.addUser(t, "bob", "pw", false)
		sess, err := f.auth.Login(ctx, "bob", "pw")
		require.NoError(t, err)

		f.auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = f.auth.Identify(ctx, sess.Token)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("reflects the current admin flag", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := f.addUser(t, "bob", "pw", true)
		sess, err := f.auth.Login(ctx, "bob", "pw")
		require.NoError(t, err)

		u.IsAdmin = false
		require.NoError(t, f.repos.Users.Update(ctx, u))
		id, err := f.auth.Identify(ctx, sess.Token)
		require.NoError(t, err)
		assert.False(t, id.IsAdmin)
	})

	t.Run("rejects a deleted user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := f.addUser(t, "bob", "pw", false)
		sess, err := f.auth.Login(ctx, "bob", "pw")
		require.NoError(t, err)

		require.NoError(t, f.repos.Users.Delete(ctx, u.ID))
		_, err = f.auth.Identify(ctx, sess.Token)
		assert.ErrorIs(t, err, ErrAuthentication)
	})
}

type failingSessions struct {
	repo.SessionRepository
}

func (failingSessions) FindByJTI(context.Context, string) (*models.Session, error) {
	return nil, errors.New("db down")
}

func TestAuthService_Identify_StoreFailureIsNotAuthError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "bob", "pw", false)
	sess, err := f.auth.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)

	f.auth.Sessions = failingSessions{f.repos.Sessions}
	_, err = f.auth.Identify(context.Background(), sess.Token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
}

func TestAuthService_PurgeSessions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "bob", "pw", false)

	first, err := f.auth.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	firstClaims, err := f.auth.Tokens.Parse(first.Token)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, first.Token))

	second, err := f.auth.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	_, err = f.repos.Sessions.FindByJTI(ctx, firstClaims.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound, "logging in clears revoked rows")

	n, err := f.auth.PurgeSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "an active session is kept")
	_, err = f.auth.Identify(ctx, second.Token)
	require.NoError(t, err)

	f.auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = f.auth.PurgeSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "an expired session is removed")
}

type stuckSessions struct {
	repo.SessionRepository
}

func (stuckSessions) DeleteEnded(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestAuthService_PurgeFailureDoesNotBlockLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addUser(t, "bob", "pw", false)
	f.auth.Sessions = stuckSessions{f.repos.Sessions}

	sess, err := f.auth.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)
	_, err = f.auth.Identify(context.Background(), sess.Token)
	require.NoError(t, err)

	_, err = f.auth.PurgeSessions(context.Background())
	require.Error(t, err)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, "123456"))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "changed"), "seeding is idempotent")

	admin, err := f.repos.Users.FindByUsername(ctx, models.ReservedAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.True(t, hash.CheckPassword(admin.PasswordHash, "123456"), "existing password is kept")

	users, err := f.repos.Users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	admin.IsAdmin = false
	require.NoError(t, f.repos.Users.Update(ctx, admin))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "123456"))
	admin, err = f.repos.Users.FindByUsername(ctx, models.ReservedAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin, "admin flag is restored")

	_, err = f.auth.AdminLogin(ctx, models.ReservedAdmin, "123456")
	assert.NoError(t, err)
}
