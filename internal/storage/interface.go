package storage

import (
	"context"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/domain"
)

// PostStorage - контракт коллекции posts.
type PostStorage interface {
	// GetPosts возвращает все посты с данными автора, новые первыми.
	GetPosts(ctx context.Context) ([]*domain.Post, error)
	// GetPostByID возвращает пост с данными автора или ошибку domain.ErrNotFound.
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// CreatePost вставляет пост и возвращает запись, перечитанную из хранилища.
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)

	HasLike(ctx context.Context, postID, username string) (bool, error)
	// AppendComment добавляет комментарий и обновляет updatedAt поста.
	AppendComment(ctx context.Context, postID string, comment domain.Comment, updatedAt time.Time) (*domain.Comment, error)
	// AppendLike добавляет лайк. Повторный лайк того же username -
	// ошибка domain.ErrDuplicate, проверка атомарная на стороне хранилища.
	AppendLike(ctx context.Context, postID string, like domain.Like, updatedAt time.Time) (*domain.Like, error)
}

// UserStorage - контракт коллекции users.
type UserStorage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]*domain.User, error)

	GetFollowings(ctx context.Context, userID string) ([]*domain.User, error)
	GetFollowers(ctx context.Context, userID string) ([]*domain.User, error)

	// Методы для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
}

// FollowStorage - контракт коллекции follows.
type FollowStorage interface {
	GetFollow(ctx context.Context, followerID, followingID string) (*domain.Follow, error)
	CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error)
	DeleteFollow(ctx context.Context, followerID, followingID string) error
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	PostStorage
	UserStorage
	FollowStorage

	Close(ctx context.Context) error
}

func ErrPostNotFound() error { return domain.NotFound("Post not found") }
func ErrUserNotFound() error { return domain.NotFound("User not found") }
