package dataloader

import (
	"context"
	"sync"
	"testing"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage"
	"github.com/UkralStul/strings-feed-service/internal/storage/inmemory"
	"github.com/graph-gophers/dataloader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUsers struct {
	storage.UserStorage
	mu      sync.Mutex
	batches int
}

func (c *countingUsers) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	c.mu.Lock()
	c.batches++
	c.mu.Unlock()
	return c.UserStorage.GetUsersByIDs(ctx, ids)
}

func TestLoadUser_Batches(t *testing.T) {
	store := inmemory.New()
	ctx := context.Background()
	alice, err := store.CreateUser(ctx, &domain.User{Username: "alice", Email: "alice@mail.com"})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, &domain.User{Username: "bob", Email: "bob@mail.com"})
	require.NoError(t, err)

	users := &countingUsers{UserStorage: store}
	loaders := NewLoaders(users)

	// Все ключи ставятся в очередь до первого ожидания, поэтому уходят одним батчем.
	thunks := make([]dataloader.Thunk, 0, 3)
	for _, id := range []string{alice.ID, bob.ID, "ghost"} {
		thunks = append(thunks, loaders.UserByID.Load(ctx, dataloader.StringKey(id)))
	}
	got := make([]*domain.User, 0, 3)
	for _, thunk := range thunks {
		data, err := thunk()
		require.NoError(t, err)
		u, _ := data.(*domain.User)
		got = append(got, u)
	}

	assert.Equal(t, 1, users.batches)
	require.NotNil(t, got[0])
	assert.Equal(t, "alice", got[0].Username)
	require.NotNil(t, got[1])
	assert.Equal(t, "bob", got[1].Username)
	assert.Nil(t, got[2])
}

func TestLoadUser_Missing(t *testing.T) {
	user, err := NewLoaders(inmemory.New()).LoadUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestFor_WithoutMiddleware(t *testing.T) {
	assert.Nil(t, For(context.Background()))
	loaders := NewLoaders(inmemory.New())
	assert.Same(t, loaders, For(WithLoaders(context.Background(), loaders)))
}
