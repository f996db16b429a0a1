package events

import (
	"context"
)

// Темы событий о постах.
const (
	SubjectPostCreated   = "post.created"
	SubjectPostCommented = "post.commented"
	SubjectPostLiked     = "post.liked"

	subjectAllPosts = "post.*"
)

// PostEvent - событие об изменении поста.
// Origin - идентификатор экземпляра сервиса, опубликовавшего событие.
type PostEvent struct {
	Origin    string `json:"origin"`
	PostID    string `json:"post_id"`
	Username  string `json:"username,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher публикует события о постах.
type Publisher interface {
	Publish(ctx context.Context, subject string, event PostEvent) error
}

// Invalidator сбрасывает кэшированное представление ленты.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Nop - Publisher, который ничего не делает. Используется без NATS_URL.
type Nop struct{}

func (Nop) Publish(context.Context, string, PostEvent) error { return nil }
