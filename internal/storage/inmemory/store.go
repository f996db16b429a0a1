package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage"
	"github.com/google/uuid"
)

type postRecord struct {
	post domain.Post
	seq  uint64 // порядок вставки, разрешает равные createdAt
}

// Store реализует интерфейс Storage в памяти.
// Наружу всегда отдаются копии, чтобы вызывающий код не менял внутреннее состояние.
type Store struct {
	mu      sync.RWMutex
	seq     uint64
	posts   map[string]*postRecord
	users   map[string]*domain.User
	follows map[string]*domain.Follow // ключ: followerID + "/" + followingID
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:   make(map[string]*postRecord),
		users:   make(map[string]*domain.User),
		follows: make(map[string]*domain.Follow),
	}
}

func (s *Store) Close(ctx context.Context) error { return nil }

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &postRecord{post: clonePost(post)}
	rec.post.ID = uuid.NewString()
	rec.post.UserDetails = nil
	if rec.post.Tags == nil {
		rec.post.Tags = []string{}
	}
	if rec.post.Comments == nil {
		rec.post.Comments = []domain.Comment{}
	}
	if rec.post.Likes == nil {
		rec.post.Likes = []domain.Like{}
	}
	s.seq++
	rec.seq = s.seq
	s.posts[rec.post.ID] = rec

	// Как и findOne после insertOne: без данных автора.
	out := clonePost(&rec.post)
	return &out, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrPostNotFound()
	}
	out := s.joinAuthor(rec)
	return &out, nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*postRecord, 0, len(s.posts))
	for _, rec := range s.posts {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})

	posts := make([]*domain.Post, 0, len(recs))
	for _, rec := range recs {
		p := s.joinAuthor(rec)
		posts = append(posts, &p)
	}
	return posts, nil
}

func (s *Store) HasLike(ctx context.Context, postID, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[postID]
	if !ok {
		return false, nil
	}
	return hasLike(rec.post.Likes, username), nil
}

func (s *Store) AppendComment(ctx context.Context, postID string, comment domain.Comment, updatedAt time.Time) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[postID]
	if !ok {
		return nil, storage.ErrPostNotFound()
	}
	rec.post.Comments = append(rec.post.Comments, comment)
	rec.post.UpdatedAt = updatedAt

	out := rec.post.Comments[len(rec.post.Comments)-1]
	return &out, nil
}

func (s *Store) AppendLike(ctx context.Context, postID string, like domain.Like, updatedAt time.Time) (*domain.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[postID]
	if !ok {
		return nil, storage.ErrPostNotFound()
	}
	// Проверка и вставка под одной блокировкой.
	if hasLike(rec.post.Likes, like.Username) {
		return nil, domain.Duplicate("User has already liked this post")
	}
	rec.post.Likes = append(rec.post.Likes, like)
	rec.post.UpdatedAt = updatedAt

	out := rec.post.Likes[len(rec.post.Likes)-1]
	return &out, nil
}

// joinAuthor - аналог $lookup + $unwind(preserveNullAndEmptyArrays).
func (s *Store) joinAuthor(rec *postRecord) domain.Post {
	p := clonePost(&rec.post)
	if u, ok := s.users[p.AuthorID]; ok {
		p.UserDetails = u.Summary()
	}
	return p
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, domain.Duplicate("Username already exists")
		}
		if u.Email == user.Email {
			return nil, domain.Duplicate("Email already exists")
		}
	}

	u := &domain.User{
		ID:       uuid.NewString(),
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		Password: user.Password,
	}
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound()
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(func(u *domain.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(func(u *domain.User) bool { return u.Email == email })
}

func (s *Store) findUser(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound()
}

func (s *Store) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	users := make([]*domain.User, 0)
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Username), q) {
			users = append(users, cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) GetFollowings(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.followPeers(func(f *domain.Follow) (string, bool) {
		return f.FollowingID, f.FollowerID == userID
	}), nil
}

func (s *Store) GetFollowers(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.followPeers(func(f *domain.Follow) (string, bool) {
		return f.FollowerID, f.FollowingID == userID
	}), nil
}

func (s *Store) followPeers(pick func(*domain.Follow) (string, bool)) []*domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	follows := make([]*domain.Follow, 0)
	for _, f := range s.follows {
		if _, ok := pick(f); ok {
			follows = append(follows, f)
		}
	}
	sort.Slice(follows, func(i, j int) bool { return follows[i].CreatedAt.Before(follows[j].CreatedAt) })

	users := make([]*domain.User, 0, len(follows))
	for _, f := range follows {
		id, _ := pick(f)
		if u, ok := s.users[id]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			result[id] = cloneUser(u)
		}
	}
	return result, nil
}

// === Follow Methods ===

func followKey(followerID, followingID string) string {
	return followerID + "/" + followingID
}

func (s *Store) GetFollow(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.follows[followKey(followerID, followingID)]
	if !ok {
		return nil, domain.NotFound("follow not found")
	}
	out := *f
	return &out, nil
}

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey(follow.FollowerID, follow.FollowingID)
	if _, ok := s.follows[key]; ok {
		return nil, domain.Duplicate("You are already following this user")
	}
	f := *follow
	f.ID = uuid.NewString()
	s.follows[key] = &f

	out := f
	return &out, nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey(followerID, followingID)
	if _, ok := s.follows[key]; !ok {
		return domain.NotFound("You are not following this user")
	}
	delete(s.follows, key)
	return nil
}

// === helpers ===

func hasLike(likes []domain.Like, username string) bool {
	for _, l := range likes {
		if l.Username == username {
			return true
		}
	}
	return false
}

func clonePost(p *domain.Post) domain.Post {
	out := *p
	if p.Tags != nil {
		out.Tags = append([]string{}, p.Tags...)
	}
	if p.Comments != nil {
		out.Comments = append([]domain.Comment{}, p.Comments...)
	}
	if p.Likes != nil {
		out.Likes = append([]domain.Like{}, p.Likes...)
	}
	if p.ImgURL != nil {
		img := *p.ImgURL
		out.ImgURL = &img
	}
	if p.UserDetails != nil {
		ud := *p.UserDetails
		out.UserDetails = &ud
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	return &domain.User{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Password: u.Password,
	}
}
