package graph

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/strings-feed-service/graph/runtime"
)

// NewServer собирает GraphQL handler: HTTP и websocket транспорты,
// интроспекция, презентер ошибок и перехват паник.
func NewServer(resolver *Resolver, log *slog.Logger) *handler.Server {
	schema := runtime.NewExecutableSchema(runtime.Config{Resolvers: resolver})

	srv := handler.New(schema)
	srv.AddTransport(&transport.Websocket{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		KeepAlivePingInterval: 10 * time.Second,
	})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.Use(extension.Introspection{})

	srv.SetErrorPresenter(ErrorPresenter(log))
	srv.SetRecoverFunc(RecoverFunc(log))
	return srv
}
