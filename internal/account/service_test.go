package account

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/UkralStul/strings-feed-service/internal/auth"
	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("secret", 0)
	return New(inmemory.New(), tokens, slog.New(slog.NewTextHandler(io.Discard, nil))), tokens
}

func register(t *testing.T, svc *Service, username string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), NewUser{
		Name:     "Name " + username,
		Username: username,
		Email:    username + "@mail.com",
		Password: "12345",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "alice")
	assert.NotEmpty(t, user.ID)
	assert.Empty(t, user.Password)

	stored, err := svc.store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "12345", stored.Password)
	assert.True(t, auth.CheckPassword("12345", stored.Password))
}

func TestRegister_Rules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice")

	cases := []struct {
		name string
		in   NewUser
		kind error
		msg  string
	}{
		{"no username", NewUser{Email: "x@mail.com", Password: "12345"}, domain.ErrValidation, "Username is required"},
		{"taken username", NewUser{Username: "alice", Email: "x@mail.com", Password: "12345"}, domain.ErrDuplicate, "Username already exists"},
		{"no email", NewUser{Username: "bob", Password: "12345"}, domain.ErrValidation, "Email is required"},
		{"bad email", NewUser{Username: "bob", Email: "bob@mail", Password: "12345"}, domain.ErrValidation, "Invalid email format"},
		{"taken email", NewUser{Username: "bob", Email: "alice@mail.com", Password: "12345"}, domain.ErrDuplicate, "Email already exists"},
		{"no password", NewUser{Username: "bob", Email: "bob@mail.com"}, domain.ErrValidation, "Password is required"},
		{"short password", NewUser{Username: "bob", Email: "bob@mail.com", Password: "1234"}, domain.ErrValidation, "Password must be at least 5 characters long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			require.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestLogin(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")

	for _, login := range []string{"alice", "alice@mail.com"} {
		res, err := svc.Login(ctx, login, "12345")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, res.UserID)
		assert.Equal(t, "Selamat datang, alice!", res.Message)

		claims, err := tokens.Verify(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, claims.ID)
	}

	_, err := svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.Equal(t, "Invalid username/email/password", err.Error())

	_, err = svc.Login(ctx, "nobody", "12345")
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = svc.Login(ctx, "", "12345")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Username/Email and password are required", err.Error())
}

func TestFollowAndUnfollow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")

	follow, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, follow.FollowerID)
	assert.Equal(t, bob.ID, follow.FollowingID)

	_, err = svc.Follow(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, "You are already following this user", err.Error())

	_, err = svc.Follow(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "You cannot follow yourself", err.Error())

	_, err = svc.Follow(ctx, alice.ID, "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found", err.Error())

	user, err := svc.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, user.Followings, 1)
	assert.Equal(t, "bob", user.Followings[0].Username)
	assert.Empty(t, user.Followings[0].Password)
	assert.Empty(t, user.Followers)

	msg, err := svc.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Successfully unfollowed the bob.", msg)

	_, err = svc.Unfollow(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "You are not following this user", err.Error())
}

func TestSearchUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	_, err := svc.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	users, err := svc.SearchUsers(ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].Password)
	require.Len(t, users[0].Followers, 1)
	assert.Equal(t, "bob", users[0].Followers[0].Username)

	_, err = svc.SearchUsers(ctx, "a.*")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "No users found matching the search criteria", err.Error())
}

func TestUserByID_Missing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UserByID(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found", err.Error())
}
