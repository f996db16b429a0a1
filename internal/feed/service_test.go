package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/cache"
	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/events"
	"github.com/UkralStul/strings-feed-service/internal/storage"
	"github.com/UkralStul/strings-feed-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает обращения к ленте в хранилище.
type countingStore struct {
	storage.PostStorage
	mu       sync.Mutex
	getPosts int
}

func (c *countingStore) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	c.mu.Lock()
	c.getPosts++
	c.mu.Unlock()
	return c.PostStorage.GetPosts(ctx)
}

func (c *countingStore) reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getPosts
}

// recordingCache пишет журнал вызовов и умеет имитировать сбои.
type recordingCache struct {
	cache.Cache
	mu      sync.Mutex
	deletes int
	getErr  error
	setErr  error
	delErr  error
}

func (r *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	return r.Cache.Get(ctx, key)
}

func (r *recordingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.setErr != nil {
		return r.setErr
	}
	return r.Cache.Set(ctx, key, value, ttl)
}

func (r *recordingCache) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.deletes++
	r.mu.Unlock()
	if r.delErr != nil {
		return r.delErr
	}
	return r.Cache.Delete(ctx, key)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ events.PostEvent) error {
	p.mu.Lock()
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()
	return errors.New("broker unavailable")
}

type fixture struct {
	svc       *Service
	mem       storage.Storage
	store     *countingStore
	cache     *recordingCache
	publisher *recordingPublisher
	author    *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := inmemory.New()
	author, err := mem.CreateUser(context.Background(), &domain.User{Name: "U One", Username: "u1", Email: "u1@mail.com", Password: "hash"})
	require.NoError(t, err)

	f := &fixture{
		mem:       mem,
		store:     &countingStore{PostStorage: mem},
		cache:     &recordingCache{Cache: cache.NewMemory()},
		publisher: &recordingPublisher{},
		author:    author,
	}
	f.svc = New(f.store, f.cache, Config{
		Publisher: f.publisher,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) cached(t *testing.T) (string, bool) {
	t.Helper()
	data, ok, err := f.cache.Cache.Get(context.Background(), FeedCacheKey)
	require.NoError(t, err)
	return string(data), ok
}

func TestReadFeed_EmptyStoreCachesEmptyList(t *testing.T) {
	f := newFixture(t)

	posts, err := f.svc.ReadFeed(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	data, ok := f.cached(t)
	require.True(t, ok)
	assert.Equal(t, "[]", data)
}

func TestReadFeed_SecondReadIsCacheHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, NewPost{Content: "hello", AuthorID: f.author.ID})
	require.NoError(t, err)

	first, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	second, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.reads())
	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestCreatePost_ScenarioFromEmptyFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)

	post, err := f.svc.CreatePost(ctx, NewPost{Content: "hello", AuthorID: f.author.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{}, post.Tags)
	assert.True(t, post.CreatedAt.Equal(post.UpdatedAt))

	_, ok := f.cached(t)
	assert.False(t, ok, "create must invalidate the feed")

	posts, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Content)
	assert.Empty(t, posts[0].Comments)
	assert.Empty(t, posts[0].Likes)
	require.NotNil(t, posts[0].UserDetails)
	assert.Equal(t, "u1", posts[0].UserDetails.Username)
	assert.Equal(t, []string{events.SubjectPostCreated}, f.publisher.subjects)
}

func TestCreatePost_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, NewPost{AuthorID: f.author.ID})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Content is required", err.Error())

	_, err = f.svc.CreatePost(ctx, NewPost{Content: "hello"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Author ID is required", err.Error())

	assert.Zero(t, f.cache.deletes)
}

func TestWrites_AreVisibleToNextRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.svc.CreatePost(ctx, NewPost{Content: "hello", AuthorID: f.author.ID, Tags: []string{"go"}})
	require.NoError(t, err)

	_, err = f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, post.ID, "nice", "bob")
	require.NoError(t, err)

	posts, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	require.Len(t, posts[0].Comments, 1)
	assert.Equal(t, "bob", posts[0].Comments[0].Username)

	_, err = f.svc.AddLike(ctx, post.ID, "bob")
	require.NoError(t, err)

	posts, err = f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	require.Len(t, posts[0].Likes, 1)
	assert.Equal(t, 3, f.store.reads())
}

func TestAddLike_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.svc.CreatePost(ctx, NewPost{Content: "hello", AuthorID: f.author.ID})
	require.NoError(t, err)

	like, err := f.svc.AddLike(ctx, post.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", like.Username)

	_, err = f.svc.AddLike(ctx, post.ID, "alice")
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, "User has already liked this post", err.Error())

	_, err = f.svc.AddLike(ctx, post.ID, "bob")
	require.NoError(t, err)

	stored, err := f.mem.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Likes, 2)
}

func TestAddLike_ConcurrentSameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.svc.CreatePost(ctx, NewPost{Content: "hello", AuthorID: f.author.ID})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.AddLike(ctx, post.ID, "alice"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrDuplicate)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestAddComment_MissingPostLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddComment(ctx, "missing", "x", "alice")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Post not found", err.Error())

	assert.Zero(t, f.cache.deletes)
	_, ok := f.cached(t)
	assert.True(t, ok)
}

func TestAddComment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		postID, content, username, msg string
	}{
		{"p", "", "alice", "Content is required"},
		{"p", "x", "", "Username is required"},
		{"", "x", "alice", "Post ID is required"},
	}
	for _, tc := range cases {
		_, err := f.svc.AddComment(ctx, tc.postID, tc.content, tc.username)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, tc.msg, err.Error())
	}
}

func TestWrite_FailingInvalidationFailsOperation(t *testing.T) {
	f := newFixture(t)
	f.cache.delErr = errors.New("redis down")

	_, err := f.svc.CreatePost(context.Background(), NewPost{Content: "hello", AuthorID: f.author.ID})
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestReadFeed_CacheFailuresDegradeToStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, NewPost{Content: "hello", AuthorID: f.author.ID})
	require.NoError(t, err)

	f.cache.getErr = errors.New("redis down")
	f.cache.setErr = errors.New("redis down")

	posts, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestReadFeed_CorruptEntryIsRebuilt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Cache.Set(ctx, FeedCacheKey, []byte("{not json"), 0))

	posts, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	data, ok := f.cached(t)
	require.True(t, ok)
	assert.Equal(t, "[]", data)
}

func TestGetPostByID_MissingIsNil(t *testing.T) {
	f := newFixture(t)

	post, err := f.svc.GetPostByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestAddLike_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		postID, username, msg string
	}{
		{"p", "", "Username is required"},
		{"", "alice", "Post ID is required"},
		{"", "", "Username is required"},
	}
	for _, tc := range cases {
		_, err := f.svc.AddLike(ctx, tc.postID, tc.username)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, tc.msg, err.Error())
	}
	assert.Zero(t, f.cache.deletes)
	assert.Empty(t, f.publisher.subjects)
}

func TestAddLike_MissingPostLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ReadFeed(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddLike(ctx, "missing", "alice")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Post not found", err.Error())

	assert.Zero(t, f.cache.deletes)
	_, ok := f.cached(t)
	assert.True(t, ok)
	assert.Empty(t, f.publisher.subjects)
}
