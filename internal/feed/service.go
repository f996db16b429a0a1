package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/cache"
	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/events"
	"github.com/UkralStul/strings-feed-service/internal/storage"
)

// FeedCacheKey - единственный ключ кэша, под которым лежит вся лента.
const FeedCacheKey = "posts:all"

// Config - необязательные зависимости сервиса ленты.
type Config struct {
	// TTL записи ленты в кэше, 0 - без срока.
	TTL       time.Duration
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Service читает ленту через кэш и сбрасывает его после каждой записи в пост.
type Service struct {
	store     storage.PostStorage
	cache     cache.Cache
	publisher events.Publisher
	log       *slog.Logger
	ttl       time.Duration
	now       func() time.Time
}

func New(store storage.PostStorage, c cache.Cache, cfg Config) *Service {
	s := &Service{
		store:     store,
		cache:     c,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		ttl:       cfg.TTL,
		now:       domain.Now,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// NewPost - входные данные CreatePost.
type NewPost struct {
	Content  string
	Tags     []string
	ImgURL   *string
	AuthorID string
}

// ReadFeed возвращает все посты, новые первыми, с данными автора.
func (s *Service) ReadFeed(ctx context.Context) ([]*domain.Post, error) {
	data, ok, err := s.cache.Get(ctx, FeedCacheKey)
	switch {
	case err != nil:
		s.log.WarnContext(ctx, "feed cache read failed, reading from store", "key", FeedCacheKey, "error", err)
	case ok:
		var posts []*domain.Post
		err := json.Unmarshal(data, &posts)
		if err == nil {
			if posts == nil {
				posts = []*domain.Post{}
			}
			return posts, nil
		}
		s.log.WarnContext(ctx, "feed cache entry is corrupt, rebuilding", "key", FeedCacheKey, "error", err)
	}

	posts, err := s.store.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*domain.Post{}
	}

	encoded, err := json.Marshal(posts)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to encode feed for cache", "error", err)
		return posts, nil
	}
	if err := s.cache.Set(ctx, FeedCacheKey, encoded, s.ttl); err != nil {
		s.log.WarnContext(ctx, "failed to populate feed cache", "key", FeedCacheKey, "error", err)
	}
	return posts, nil
}

// GetPostByID читает пост напрямую из хранилища. Отсутствующий пост - nil без ошибки.
func (s *Service) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

func (s *Service) CreatePost(ctx context.Context, in NewPost) (*domain.Post, error) {
	if in.Content == "" {
		return nil, domain.Validation("Content is required")
	}
	if in.AuthorID == "" {
		return nil, domain.Validation("Author ID is required")
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	now := s.now()
	post, err := s.store.CreatePost(ctx, &domain.Post{
		Content:   in.Content,
		Tags:      tags,
		ImgURL:    in.ImgURL,
		AuthorID:  in.AuthorID,
		Comments:  []domain.Comment{},
		Likes:     []domain.Like{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectPostCreated, events.PostEvent{PostID: post.ID, Timestamp: now.Format(domain.TimestampLayout)})
	s.log.InfoContext(ctx, "post created", "post_id", post.ID, "author_id", post.AuthorID)
	return post, nil
}

func (s *Service) AddComment(ctx context.Context, postID, content, username string) (*domain.Comment, error) {
	if content == "" {
		return nil, domain.Validation("Content is required")
	}
	if username == "" {
		return nil, domain.Validation("Username is required")
	}
	if postID == "" {
		return nil, domain.Validation("Post ID is required")
	}

	now := s.now()
	comment, err := s.store.AppendComment(ctx, postID, domain.Comment{
		Content:   content,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectPostCommented, events.PostEvent{PostID: postID, Username: username, Timestamp: now.Format(domain.TimestampLayout)})
	return comment, nil
}

func (s *Service) AddLike(ctx context.Context, postID, username string) (*domain.Like, error) {
	if username == "" {
		return nil, domain.Validation("Username is required")
	}
	if postID == "" {
		return nil, domain.Validation("Post ID is required")
	}

	liked, err := s.store.HasLike(ctx, postID, username)
	if err != nil {
		return nil, err
	}
	if liked {
		return nil, domain.Duplicate("User has already liked this post")
	}

	// Хранилище повторно проверяет уникальность при вставке.
	now := s.now()
	like, err := s.store.AppendLike(ctx, postID, domain.Like{
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectPostLiked, events.PostEvent{PostID: postID, Username: username, Timestamp: now.Format(domain.TimestampLayout)})
	return like, nil
}

// Invalidate удаляет ленту из кэша. Отсутствие ключа - не ошибка.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, FeedCacheKey); err != nil {
		s.log.ErrorContext(ctx, "failed to invalidate feed cache", "key", FeedCacheKey, "error", err)
		return domain.StoreFailure("invalidate feed cache", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, subject string, event events.PostEvent) {
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.log.WarnContext(ctx, "failed to publish post event", "subject", subject, "post_id", event.PostID, "error", err)
	}
}
