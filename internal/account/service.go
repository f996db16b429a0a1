package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/auth"
	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage"
)

const minPasswordLength = 5

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store - часть хранилища, с которой работает сервис аккаунтов.
type Store interface {
	storage.UserStorage
	storage.FollowStorage
}

// Service отвечает за регистрацию, вход, поиск пользователей и подписки.
type Service struct {
	store  Store
	tokens *auth.TokenService
	log    *slog.Logger
	now    func() time.Time
}

func New(store Store, tokens *auth.TokenService, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, tokens: tokens, log: log, now: domain.Now}
}

// NewUser - входные данные регистрации.
type NewUser struct {
	Name     string
	Username string
	Email    string
	Password string
}

// LoginResult - ответ на успешный вход.
type LoginResult struct {
	AccessToken string
	Message     string
	UserID      string
}

func (s *Service) Register(ctx context.Context, in NewUser) (*domain.User, error) {
	if in.Username == "" {
		return nil, domain.Validation("Username is required")
	}
	if _, err := s.store.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, domain.Duplicate("Username already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if in.Email == "" {
		return nil, domain.Validation("Email is required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, domain.Validation("Invalid email format")
	}
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, domain.Duplicate("Email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if in.Password == "" {
		return nil, domain.Validation("Password is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Validation(fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, &domain.User{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return withoutPassword(user), nil
}

// Login ищет пользователя по email, если ввод похож на email, иначе по username.
func (s *Service) Login(ctx context.Context, usernameEmail, password string) (*LoginResult, error) {
	if usernameEmail == "" || password == "" {
		return nil, domain.Validation("Username/Email and password are required")
	}

	var (
		user *domain.User
		err  error
	)
	if emailPattern.MatchString(usernameEmail) {
		user, err = s.store.GetUserByEmail(ctx, usernameEmail)
	} else {
		user, err = s.store.GetUserByUsername(ctx, usernameEmail)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Auth("Invalid username/email/password")
		}
		return nil, err
	}
	if !auth.CheckPassword(password, user.Password) {
		return nil, domain.Auth("Invalid username/email/password")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		Message:     fmt.Sprintf("Selamat datang, %s!", user.Username),
		UserID:      user.ID,
	}, nil
}

// SearchUsers ищет пользователей по подстроке имени или username без учета регистра.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	if query == "" {
		return nil, domain.Validation("name/username is required")
	}
	users, err := s.store.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.NotFound("No users found matching the search criteria")
	}
	for i, u := range users {
		if users[i], err = s.withFollows(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UserByID возвращает пользователя вместе с подписками и подписчиками.
func (s *Service) UserByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.Validation("ID is required")
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withFollows(ctx, user)
}

func (s *Service) withFollows(ctx context.Context, user *domain.User) (*domain.User, error) {
	followings, err := s.store.GetFollowings(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followers, err := s.store.GetFollowers(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	out := withoutPassword(user)
	out.Followings = make([]*domain.User, 0, len(followings))
	for _, u := range followings {
		out.Followings = append(out.Followings, withoutPassword(u))
	}
	out.Followers = make([]*domain.User, 0, len(followers))
	for _, u := range followers {
		out.Followers = append(out.Followers, withoutPassword(u))
	}
	return out, nil
}

func (s *Service) Follow(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	if followerID == "" || followingID == "" {
		return nil, domain.Validation("Follower ID and Following ID are required")
	}
	if followerID == followingID {
		return nil, domain.Validation("You cannot follow yourself")
	}
	if _, err := s.store.GetUserByID(ctx, followingID); err != nil {
		return nil, err
	}

	if _, err := s.store.GetFollow(ctx, followerID, followingID); err == nil {
		return nil, domain.Duplicate("You are already following this user")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	follow, err := s.store.CreateFollow(ctx, &domain.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user followed", "follower_id", followerID, "following_id", followingID)
	return follow, nil
}

// Unfollow удаляет подписку и возвращает сообщение с именем пользователя.
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) (string, error) {
	if followerID == "" || followingID == "" {
		return "", domain.Validation("Follower ID and Following ID are required")
	}
	if _, err := s.store.GetFollow(ctx, followerID, followingID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.NotFound("You are not following this user")
		}
		return "", err
	}
	if err := s.store.DeleteFollow(ctx, followerID, followingID); err != nil {
		return "", err
	}

	user, err := s.store.GetUserByID(ctx, followingID)
	if err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "user unfollowed", "follower_id", followerID, "following_id", followingID)
	return fmt.Sprintf("Successfully unfollowed the %s.", user.Username), nil
}

func withoutPassword(u *domain.User) *domain.User {
	out := *u
	out.Password = ""
	return &out
}
