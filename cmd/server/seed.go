package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UkralStul/strings-feed-service/internal/account"
	"github.com/UkralStul/strings-feed-service/internal/feed"
)

// fillWithMockData заполняет хранилище демонстрационными данными.
func fillWithMockData(ctx context.Context, accounts *account.Service, posts *feed.Service, log *slog.Logger) error {
	// 1. Создаем двух пользователей. Пароль у обоих "12345".
	alice, err := accounts.Register(ctx, account.NewUser{Name: "Alice", Username: "alice", Email: "alice@mail.com", Password: "12345"})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create alice: %w", err)
	}
	bob, err := accounts.Register(ctx, account.NewUser{Name: "Bob", Username: "bob", Email: "bob@mail.com", Password: "12345"})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create bob: %w", err)
	}

	// 2. Пост Алисы с тегами.
	post, err := posts.CreatePost(ctx, feed.NewPost{
		Content:  "Это тестовый пост о GraphQL и Go.",
		Tags:     []string{"graphql", "go"},
		AuthorID: alice.ID,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}

	// 3. Боб комментирует, лайкает и подписывается на Алису.
	if _, err := posts.AddComment(ctx, post.ID, "Отличный пост! Очень информативно.", bob.Username); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment: %w", err)
	}
	if _, err := posts.AddLike(ctx, post.ID, bob.Username); err != nil {
		return fmt.Errorf("fillWithMockData: failed to like post: %w", err)
	}
	if _, err := accounts.Follow(ctx, bob.ID, alice.ID); err != nil {
		return fmt.Errorf("fillWithMockData: failed to follow: %w", err)
	}

	log.InfoContext(ctx, "Mock data filled successfully", "post_id", post.ID, "users", []string{alice.Username, bob.Username})
	return nil
}
