// internal/storage/inmemory/store_test.go

package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore создает хранилище, автора и один пост для тестов
func newTestStore(t *testing.T) (storage.Storage, *domain.User, *domain.Post) {
	store := New()
	ctx := context.Background()
	author, err := store.CreateUser(ctx, &domain.User{Name: "Alice", Username: "alice", Email: "alice@mail.com", Password: "hash"})
	require.NoError(t, err)

	now := domain.Now()
	post, err := store.CreatePost(ctx, &domain.Post{
		Content:   "Test Post",
		AuthorID:  author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return store, author, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, author, post := newTestStore(t)
	ctx := context.Background()

	assert.NotEmpty(t, post.ID)
	assert.Empty(t, post.Tags)
	assert.NotNil(t, post.Comments)
	assert.NotNil(t, post.Likes)
	assert.Nil(t, post.UserDetails)

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Content, retrieved.Content)
	require.NotNil(t, retrieved.UserDetails)
	assert.Equal(t, author.Username, retrieved.UserDetails.Username)

	_, err = store.GetPostByID(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetPosts_NewestFirst(t *testing.T) {
	store, author, first := newTestStore(t)
	ctx := context.Background()

	later := first.CreatedAt.Add(time.Second)
	second, err := store.CreatePost(ctx, &domain.Post{Content: "later", AuthorID: author.ID, CreatedAt: later, UpdatedAt: later})
	require.NoError(t, err)

	posts, err := store.GetPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestStore_GetPosts_MissingAuthorKeepsPost(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.CreatePost(ctx, &domain.Post{Content: "orphan", AuthorID: "ghost", CreatedAt: domain.Now()})
	require.NoError(t, err)

	posts, err := store.GetPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Nil(t, posts[0].UserDetails)
}

func TestStore_ReturnedPostsAreCopies(t *testing.T) {
	store, _, post := newTestStore(t)
	ctx := context.Background()

	posts, err := store.GetPosts(ctx)
	require.NoError(t, err)
	posts[0].Content = "mutated"
	posts[0].Comments = append(posts[0].Comments, domain.Comment{Content: "ghost"})

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Post", retrieved.Content)
	assert.Empty(t, retrieved.Comments)
}

func TestStore_AppendComment(t *testing.T) {
	store, _, post := newTestStore(t)
	ctx := context.Background()

	now := domain.Now().Add(time.Minute)
	comment, err := store.AppendComment(ctx, post.ID, domain.Comment{Content: "First comment!", Username: "bob", CreatedAt: now, UpdatedAt: now}, now)
	require.NoError(t, err)
	assert.Equal(t, "First comment!", comment.Content)

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, retrieved.Comments, 1)
	assert.Equal(t, "bob", retrieved.Comments[0].Username)
	assert.True(t, retrieved.UpdatedAt.Equal(now))

	_, err = store.AppendComment(ctx, "missing", domain.Comment{Content: "x", Username: "bob"}, now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendLike_Unique(t *testing.T) {
	store, _, post := newTestStore(t)
	ctx := context.Background()
	now := domain.Now()

	_, err := store.AppendLike(ctx, post.ID, domain.Like{Username: "bob", CreatedAt: now, UpdatedAt: now}, now)
	require.NoError(t, err)

	liked, err := store.HasLike(ctx, post.ID, "bob")
	require.NoError(t, err)
	assert.True(t, liked)

	_, err = store.AppendLike(ctx, post.ID, domain.Like{Username: "bob", CreatedAt: now, UpdatedAt: now}, now)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = store.AppendLike(ctx, "missing", domain.Like{Username: "bob"}, now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendLike_Concurrent(t *testing.T) {
	store, _, post := newTestStore(t)
	ctx := context.Background()
	now := domain.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AppendLike(ctx, post.ID, domain.Like{Username: "bob", CreatedAt: now, UpdatedAt: now}, now)
		}()
	}
	wg.Wait()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, retrieved.Likes, 1)
}

func TestStore_CreateUser_Unique(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &domain.User{Username: "alice", Email: "other@mail.com"})
	require.Error(t, err)
	assert.Equal(t, "Username already exists", err.Error())

	_, err = store.CreateUser(ctx, &domain.User{Username: "other", Email: "alice@mail.com"})
	require.Error(t, err)
	assert.Equal(t, "Email already exists", err.Error())
}

func TestStore_SearchUsers(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &domain.User{Name: "Bob Builder", Username: "bob", Email: "bob@mail.com"})
	require.NoError(t, err)

	users, err := store.SearchUsers(ctx, "BUILD")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	users, err = store.SearchUsers(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStore_Follows(t *testing.T) {
	store, alice, _ := newTestStore(t)
	ctx := context.Background()

	bob, err := store.CreateUser(ctx, &domain.User{Name: "Bob", Username: "bob", Email: "bob@mail.com"})
	require.NoError(t, err)

	now := domain.Now()
	follow, err := store.CreateFollow(ctx, &domain.Follow{FollowerID: alice.ID, FollowingID: bob.ID, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.NotEmpty(t, follow.ID)

	_, err = store.CreateFollow(ctx, &domain.Follow{FollowerID: alice.ID, FollowingID: bob.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	followings, err := store.GetFollowings(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, followings, 1)
	assert.Equal(t, "bob", followings[0].Username)

	followers, err := store.GetFollowers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	require.NoError(t, store.DeleteFollow(ctx, alice.ID, bob.ID))
	assert.ErrorIs(t, store.DeleteFollow(ctx, alice.ID, bob.ID), domain.ErrNotFound)

	_, err = store.GetFollow(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetUsersByIDs(t *testing.T) {
	store, alice, _ := newTestStore(t)
	ctx := context.Background()

	users, err := store.GetUsersByIDs(ctx, []string{alice.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "alice", users[alice.ID].Username)
}
