package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
// Комментарии и лайки лежат в отдельных таблицах, уникальность лайка
// обеспечивает индекс (post_id, username).
type Store struct {
	db *gorm.DB
}

type userRow struct {
	ID       string `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name     string `gorm:"type:varchar(255)"`
	Username string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Password string `gorm:"type:varchar(255);not null"`
}

func (userRow) TableName() string { return "users" }

type postRow struct {
	ID        string       `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Content   string       `gorm:"type:text;not null"`
	Tags      []string     `gorm:"type:jsonb;serializer:json;not null"`
	ImgURL    *string      `gorm:"type:text"`
	AuthorID  string       `gorm:"type:uuid;not null;index"`
	Author    *userRow     `gorm:"foreignKey:AuthorID"`
	Comments  []commentRow `gorm:"foreignKey:PostID"`
	Likes     []likeRow    `gorm:"foreignKey:PostID"`
	CreatedAt time.Time    `gorm:"not null;index:idx_posts_created_at,sort:desc"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (postRow) TableName() string { return "posts" }

type commentRow struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    string    `gorm:"type:uuid;not null;index"`
	Content   string    `gorm:"type:text;not null"`
	Username  string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (commentRow) TableName() string { return "post_comments" }

type likeRow struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_likes_post_username"`
	Username  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_post_likes_post_username"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (likeRow) TableName() string { return "post_likes" }

type followRow struct {
	ID          string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FollowerID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair"`
	FollowingID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (followRow) TableName() string { return "follows" }

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true, // gorm.ErrDuplicatedKey для нарушений уникальности
		// Автор поста может быть удален, пост при этом остается (как в документной БД).
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&userRow{}, &postRow{}, &commentRow{}, &likeRow{}, &followRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Post Methods ===

// withChildren подгружает автора, комментарии и лайки в порядке добавления.
func withChildren(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	var rows []postRow
	err := withChildren(s.db.WithContext(ctx)).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, domain.StoreFailure("get posts", err)
	}

	posts := make([]*domain.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].toDomain(true))
	}
	return posts, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if !isUUID(id) {
		return nil, storage.ErrPostNotFound()
	}
	var row postRow
	if err := withChildren(s.db.WithContext(ctx)).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrPostNotFound()
		}
		return nil, domain.StoreFailure("get post", err)
	}
	return row.toDomain(true), nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	row := postRow{
		Content:   post.Content,
		Tags:      tags,
		ImgURL:    post.ImgURL,
		AuthorID:  post.AuthorID,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Omit("Author", "Comments", "Likes").Create(&row).Error; err != nil {
		return nil, domain.StoreFailure("create post", err)
	}

	// Перечитываем запись, чтобы вернуть то, что реально сохранено.
	var stored postRow
	err := s.db.WithContext(ctx).
		Preload("Comments").
		Preload("Likes").
		First(&stored, "id = ?", row.ID).Error
	if err != nil {
		return nil, domain.StoreFailure("read created post", err)
	}
	return stored.toDomain(false), nil
}

func (s *Store) HasLike(ctx context.Context, postID, username string) (bool, error) {
	if !isUUID(postID) {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&likeRow{}).
		Where("post_id = ? AND username = ?", postID, username).
		Count(&count).Error
	if err != nil {
		return false, domain.StoreFailure("check like", err)
	}
	return count > 0, nil
}

func (s *Store) AppendComment(ctx context.Context, postID string, comment domain.Comment, updatedAt time.Time) (*domain.Comment, error) {
	if !isUUID(postID) {
		return nil, storage.ErrPostNotFound()
	}
	row := commentRow{
		PostID:    postID,
		Content:   comment.Content,
		Username:  comment.Username,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchPost(tx, postID, updatedAt); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, domain.StoreFailure("append comment", err)
	}
	return &domain.Comment{Content: row.Content, Username: row.Username, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

func (s *Store) AppendLike(ctx context.Context, postID string, like domain.Like, updatedAt time.Time) (*domain.Like, error) {
	if !isUUID(postID) {
		return nil, storage.ErrPostNotFound()
	}
	row := likeRow{
		PostID:    postID,
		Username:  like.Username,
		CreatedAt: like.CreatedAt,
		UpdatedAt: like.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchPost(tx, postID, updatedAt); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Duplicate("User has already liked this post")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, domain.StoreFailure("append like", err)
	}
	return &domain.Like{Username: row.Username, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// touchPost обновляет updatedAt и заодно проверяет существование поста.
func touchPost(tx *gorm.DB, postID string, updatedAt time.Time) error {
	res := tx.Model(&postRow{}).Where("id = ?", postID).Update("updated_at", updatedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrPostNotFound()
	}
	return nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return nil, domain.Duplicate("Username already exists")
	}
	if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, domain.Duplicate("Email already exists")
	}

	row := userRow{Name: user.Name, Username: user.Username, Email: user.Email, Password: user.Password}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Duplicate("Username or email already exists")
		}
		return nil, domain.StoreFailure("create user", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if !isUUID(id) {
		return nil, storage.ErrUserNotFound()
	}
	return s.firstUser(ctx, "id = ?", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.firstUser(ctx, "username = ?", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.firstUser(ctx, "email = ?", email)
}

func (s *Store) firstUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound()
		}
		return nil, domain.StoreFailure("get user", err)
	}
	return row.toDomain(), nil
}

func (s *Store) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	var rows []userRow
	pattern := "%" + escapeLike(query) + "%"
	err := s.db.WithContext(ctx).
		Where("name ILIKE ? OR username ILIKE ?", pattern, pattern).
		Order("username ASC").
		Find(&rows).Error
	if err != nil {
		return nil, domain.StoreFailure("search users", err)
	}
	return usersToDomain(rows), nil
}

func (s *Store) GetFollowings(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.followPeers(ctx, "follows.following_id", "follows.follower_id", userID)
}

func (s *Store) GetFollowers(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.followPeers(ctx, "follows.follower_id", "follows.following_id", userID)
}

func (s *Store) followPeers(ctx context.Context, joinColumn, whereColumn, userID string) ([]*domain.User, error) {
	if !isUUID(userID) {
		return []*domain.User{}, nil
	}
	var rows []userRow
	err := s.db.WithContext(ctx).
		Joins("JOIN follows ON "+joinColumn+" = users.id").
		Where(whereColumn+" = ?", userID).
		Order("follows.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, domain.StoreFailure("get follow peers", err)
	}
	return usersToDomain(rows), nil
}

// === Dataloader Method ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	result := make(map[string]*domain.User, len(valid))
	if len(valid) == 0 {
		return result, nil
	}

	// Загружаем всех пользователей одним запросом
	var rows []userRow
	if err := s.db.WithContext(ctx).Where("id IN ?", valid).Find(&rows).Error; err != nil {
		return nil, domain.StoreFailure("get users by ids", err)
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].toDomain()
	}
	return result, nil
}

// === Follow Methods ===

func (s *Store) GetFollow(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	if !isUUID(followerID) || !isUUID(followingID) {
		return nil, domain.NotFound("follow not found")
	}
	var row followRow
	err := s.db.WithContext(ctx).First(&row, "follower_id = ? AND following_id = ?", followerID, followingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("follow not found")
		}
		return nil, domain.StoreFailure("get follow", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error) {
	row := followRow{
		FollowerID:  follow.FollowerID,
		FollowingID: follow.FollowingID,
		CreatedAt:   follow.CreatedAt,
		UpdatedAt:   follow.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Duplicate("You are already following this user")
		}
		return nil, domain.StoreFailure("create follow", err)
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&followRow{})
	if res.Error != nil {
		return domain.StoreFailure("delete follow", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("You are not following this user")
	}
	return nil
}
