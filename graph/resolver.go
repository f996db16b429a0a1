// graph/resolver.go

package graph

//go:generate go run github.com/99designs/gqlgen generate --config ../gqlgen.yml

import (
	"context"
	"sync"

	"github.com/UkralStul/strings-feed-service/internal/account"
	"github.com/UkralStul/strings-feed-service/internal/auth"
	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/feed"
	"github.com/UkralStul/strings-feed-service/internal/storage"
	"github.com/google/uuid"
)

// CommentObserver хранит каналы для подписчиков на комментарии.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Comment
}

// NewCommentObserver - конструктор для нашего наблюдателя.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[string]map[string]chan *domain.Comment),
	}
}

// Subscribe регистрирует подписчика на комментарии поста.
// Подписка снимается, когда завершается ctx.
func (o *CommentObserver) Subscribe(ctx context.Context, postID string) <-chan *domain.Comment {
	ch := make(chan *domain.Comment, 1)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[postID] == nil {
		o.subs[postID] = make(map[string]chan *domain.Comment)
	}
	o.subs[postID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if postSubs, ok := o.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, postID)
			}
		}
		o.mu.Unlock()
	}()

	return ch
}

// Publish рассылает комментарий подписчикам поста, не блокируя вызывающего.
func (o *CommentObserver) Publish(postID string, c *domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[postID] {
		select {
		case ch <- c:
		default:
			// Клиент не успевает читать, пропускаем событие
		}
	}
}

// subscribers возвращает число подписчиков поста.
func (o *CommentObserver) subscribers(postID string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postID])
}

// Resolver - это корневая структура резолвера.
// Она содержит все зависимости, которые нужны для выполнения запросов.
type Resolver struct {
	Feed     *feed.Service
	Accounts *account.Service
	Gate     *auth.Gate
	Users    storage.UserStorage
	Observer *CommentObserver
}
