package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATS публикует события в NATS и слушает события других экземпляров.
type NATS struct {
	conn   *nats.Conn
	origin string
	log    *slog.Logger
}

// NewNATS подключается к NATS по url.
func NewNATS(url string, log *slog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("strings-feed-service"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATS{conn: conn, origin: uuid.NewString(), log: log}, nil
}

// Origin возвращает идентификатор этого экземпляра.
func (n *NATS) Origin() string { return n.origin }

func (n *NATS) Publish(_ context.Context, subject string, event PostEvent) error {
	event.Origin = n.origin
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// ListenInvalidations сбрасывает ленту при событиях от других экземпляров,
// чтобы их записи не оставляли здесь устаревший кэш.
func (n *NATS) ListenInvalidations(ctx context.Context, inv Invalidator) (*nats.Subscription, error) {
	return n.conn.Subscribe(subjectAllPosts, func(msg *nats.Msg) {
		handleInvalidation(ctx, n.log, n.origin, msg.Subject, msg.Data, inv)
	})
}

func handleInvalidation(ctx context.Context, log *slog.Logger, origin, subject string, data []byte, inv Invalidator) {
	var event PostEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.WarnContext(ctx, "dropping malformed post event", "subject", subject, "error", err)
		return
	}
	if event.Origin == origin {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		log.ErrorContext(ctx, "failed to invalidate feed after remote event",
			"subject", subject, "post_id", event.PostID, "error", err)
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
