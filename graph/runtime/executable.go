// Package runtime исполняет GraphQL-операции над схемой schema.graphqls
// и делегирует поля резолверам из пакета graph.
package runtime

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/UkralStul/strings-feed-service/graph/model"
	"github.com/UkralStul/strings-feed-service/internal/domain"
)

//go:embed schema.graphqls
var sourceSchema string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: sourceSchema})

// === Интерфейсы резолверов ===

type ResolverRoot interface {
	Mutation() MutationResolver
	Post() PostResolver
	Query() QueryResolver
	Subscription() SubscriptionResolver
}

type MutationResolver interface {
	CreatePost(ctx context.Context, content string, tags []string, imgURL *string) (*domain.Post, error)
	AddComent(ctx context.Context, content string, postID string) (*domain.Comment, error)
	AddLike(ctx context.Context, postID string) (*domain.Like, error)
	CreateUser(ctx context.Context, name, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, usernameEmail, password string) (*model.LoginResponse, error)
	FollowUser(ctx context.Context, followingID string) (*domain.Follow, error)
	UnfollowUser(ctx context.Context, followingID string) (*model.UnfollowResponse, error)
}

type PostResolver interface {
	UserDetails(ctx context.Context, obj *domain.Post) (*domain.UserSummary, error)
}

type QueryResolver interface {
	GetPosts(ctx context.Context) ([]*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	UsersByName(ctx context.Context, nameUsername string) ([]*domain.User, error)
	UsersByID(ctx context.Context, id string) (*domain.User, error)
}

type SubscriptionResolver interface {
	CommentAdded(ctx context.Context, postID string) (<-chan *domain.Comment, error)
}

// Config - зависимости исполняемой схемы.
type Config struct {
	Resolvers ResolverRoot
}

// NewExecutableSchema создает graphql.ExecutableSchema для gqlgen handler.
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	return &executableSchema{resolvers: cfg.Resolvers, schema: parsedSchema}
}

type executableSchema struct {
	resolvers ResolverRoot
	schema    *ast.Schema
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.schema
}

func (e *executableSchema) Complexity(typeName, field string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	rc := graphql.GetOperationContext(ctx)
	ec := &executionContext{OperationContext: rc, executableSchema: e}

	switch rc.Operation.Operation {
	case ast.Query:
		first := true
		return func(ctx context.Context) *graphql.Response {
			if !first {
				return nil
			}
			first = false
			return marshalResponse(ec.rootQuery(ctx, rc.Operation.SelectionSet))
		}
	case ast.Mutation:
		first := true
		return func(ctx context.Context) *graphql.Response {
			if !first {
				return nil
			}
			first = false
			return marshalResponse(ec.rootMutation(ctx, rc.Operation.SelectionSet))
		}
	case ast.Subscription:
		next := ec.rootSubscription(ctx, rc.Operation.SelectionSet)
		return func(ctx context.Context) *graphql.Response {
			if next == nil {
				return nil
			}
			data := next(ctx)
			if data == nil {
				return nil
			}
			return marshalResponse(data)
		}
	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
}

func marshalResponse(data graphql.Marshaler) *graphql.Response {
	var buf bytes.Buffer
	data.MarshalGQL(&buf)
	return &graphql.Response{Data: buf.Bytes()}
}

type executionContext struct {
	*graphql.OperationContext
	*executableSchema
}

// === Корневые типы ===

func (ec *executionContext) rootQuery(ctx context.Context, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{"Query"})
	out := graphql.NewFieldSet(fields)

	// Поля Query независимы и резолвятся параллельно.
	var wg sync.WaitGroup
	for i, field := range fields {
		ctx := graphql.WithRootFieldContext(ctx, &graphql.RootFieldContext{Object: "Query", Field: field})
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Query")
		case "__schema", "__type":
			out.Values[i] = ec.introspectionField(ctx, field)
		default:
			i, field := i, field
			wg.Add(1)
			go func() {
				defer wg.Done()
				out.Values[i] = ec.rootField(ctx, func(ctx context.Context) graphql.Marshaler {
					return ec.queryField(ctx, field)
				})
			}()
		}
	}
	wg.Wait()
	return out
}

func (ec *executionContext) queryField(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	q := ec.resolvers.Query()
	switch field.Name {
	case "getPosts":
		return resolveField(ctx, ec, "Query", field, true,
			func(ctx context.Context, _ map[string]interface{}) ([]*domain.Post, error) {
				return q.GetPosts(ctx)
			}, ec.marshalPosts)
	case "getPostById":
		return resolveField(ctx, ec, "Query", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.Post, error) {
				return q.GetPostByID(ctx, idArg(args, "id"))
			}, ec.marshalPost)
	case "usersByName":
		return resolveField(ctx, ec, "Query", field, true,
			func(ctx context.Context, args map[string]interface{}) ([]*domain.User, error) {
				return q.UsersByName(ctx, stringArg(args, "nameUsername"))
			}, ec.marshalUsers)
	case "usersById":
		return resolveField(ctx, ec, "Query", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.User, error) {
				return q.UsersByID(ctx, idArg(args, "id"))
			}, ec.marshalUser)
	}
	return unknownField(ctx, "Query", field)
}

// rootMutation выполняет мутации строго по порядку.
func (ec *executionContext) rootMutation(ctx context.Context, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{"Mutation"})
	out := graphql.NewFieldSet(fields)

	for i, field := range fields {
		ctx := graphql.WithRootFieldContext(ctx, &graphql.RootFieldContext{Object: "Mutation", Field: field})
		if field.Name == "__typename" {
			out.Values[i] = graphql.MarshalString("Mutation")
			continue
		}
		out.Values[i] = ec.rootField(ctx, func(ctx context.Context) graphql.Marshaler {
			return ec.mutationField(ctx, field)
		})
	}
	return out
}

func (ec *executionContext) mutationField(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	m := ec.resolvers.Mutation()
	switch field.Name {
	case "createPost":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.Post, error) {
				return m.CreatePost(ctx, stringArg(args, "content"), stringListArg(args, "tags"), optionalStringArg(args, "imgUrl"))
			}, ec.marshalPost)
	case "addComent":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.Comment, error) {
				return m.AddComent(ctx, stringArg(args, "content"), idArg(args, "_id"))
			}, ec.marshalComment)
	case "addLike":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.Like, error) {
				return m.AddLike(ctx, idArg(args, "_id"))
			}, ec.marshalLike)
	case "createUser":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.User, error) {
				return m.CreateUser(ctx, stringArg(args, "name"), stringArg(args, "username"),
					stringArg(args, "email"), stringArg(args, "password"))
			}, ec.marshalUser)
	case "login":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*model.LoginResponse, error) {
				return m.Login(ctx, stringArg(args, "usernameEmail"), stringArg(args, "password"))
			}, ec.marshalLoginResponse)
	case "followUser":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*domain.Follow, error) {
				return m.FollowUser(ctx, idArg(args, "followingId"))
			}, ec.marshalFollow)
	case "unfollowUser":
		return resolveField(ctx, ec, "Mutation", field, true,
			func(ctx context.Context, args map[string]interface{}) (*model.UnfollowResponse, error) {
				return m.UnfollowUser(ctx, idArg(args, "followingId"))
			}, ec.marshalUnfollowResponse)
	}
	return unknownField(ctx, "Mutation", field)
}

// rootSubscription запускает подписку и возвращает функцию чтения следующего события.
// nil означает, что подписка не состоялась и ошибка уже добавлена в ответ.
func (ec *executionContext) rootSubscription(ctx context.Context, sel ast.SelectionSet) func(ctx context.Context) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{"Subscription"})
	if len(fields) != 1 {
		graphql.AddError(ctx, errors.New("must subscribe to exactly one stream"))
		return nil
	}

	field := fields[0]
	switch field.Name {
	case "commentAdded":
		return ec.subscriptionCommentAdded(ctx, field)
	}
	graphql.AddError(ctx, fmt.Errorf("unknown subscription field %q", field.Name))
	return nil
}

func (ec *executionContext) subscriptionCommentAdded(ctx context.Context, field graphql.CollectedField) func(ctx context.Context) graphql.Marshaler {
	args := field.ArgumentMap(ec.Variables)
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object:     "Subscription",
		Field:      field,
		Args:       args,
		IsMethod:   true,
		IsResolver: true,
	})

	ch, err := ec.resolvers.Subscription().CommentAdded(ctx, idArg(args, "_id"))
	if err != nil {
		graphql.AddError(ctx, err)
		return nil
	}

	return func(ctx context.Context) graphql.Marshaler {
		select {
		case comment, ok := <-ch:
			if !ok {
				return nil
			}
			out := graphql.NewFieldSet([]graphql.CollectedField{field})
			out.Values[0] = ec.marshalComment(ctx, field.Selections, comment)
			return out
		case <-ctx.Done():
			return nil
		}
	}
}

// === Общие помощники ===

// rootField пропускает корневое поле через middleware расширений.
func (ec *executionContext) rootField(ctx context.Context, next graphql.RootResolver) graphql.Marshaler {
	if ec.RootResolverMiddleware == nil {
		return next(ctx)
	}
	return ec.RootResolverMiddleware(ctx, next)
}

// resolveField вызывает резолвер поля в его FieldContext. Ошибка резолвера
// попадает в errors ответа, а значение поля становится null.
func resolveField[T any](
	ctx context.Context,
	ec *executionContext,
	object string,
	field graphql.CollectedField,
	isResolver bool,
	resolve func(ctx context.Context, args map[string]interface{}) (T, error),
	marshal func(ctx context.Context, sel ast.SelectionSet, v T) graphql.Marshaler,
) (ret graphql.Marshaler) {
	args := field.ArgumentMap(ec.Variables)
	fc := &graphql.FieldContext{
		Object:     object,
		Field:      field,
		Args:       args,
		IsMethod:   isResolver,
		IsResolver: isResolver,
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	defer func() {
		if r := recover(); r != nil {
			graphql.AddError(ctx, ec.Recover(ctx, r))
			ret = graphql.Null
		}
	}()

	next := func(ctx context.Context) (interface{}, error) {
		return resolve(ctx, args)
	}
	var (
		res interface{}
		err error
	)
	if isResolver && ec.ResolverMiddleware != nil {
		res, err = ec.ResolverMiddleware(ctx, next)
	} else {
		res, err = next(ctx)
	}
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null
	}

	fc.Result = res
	v, _ := res.(T)
	return marshal(ctx, field.Selections, v)
}

func unknownField(ctx context.Context, object string, field graphql.CollectedField) graphql.Marshaler {
	graphql.AddError(graphql.WithFieldContext(ctx, &graphql.FieldContext{Object: object, Field: field}),
		fmt.Errorf("unknown field %s.%s", object, field.Name))
	return graphql.Null
}

// object собирает выбранные поля типа typeName в упорядоченный JSON-объект.
func (ec *executionContext) object(
	ctx context.Context,
	typeName string,
	sel ast.SelectionSet,
	field func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler,
) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{typeName})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		if f.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(typeName)
			continue
		}
		if v := field(ctx, f); v != nil {
			out.Values[i] = v
		} else {
			out.Values[i] = graphql.Null
		}
	}
	return out
}

// marshalList сериализует элементы списка параллельно, чтобы дата-лоадеры
// успели собрать ключи всех элементов в один батч.
func marshalList[T any](ctx context.Context, items []T, marshal func(ctx context.Context, item T) graphql.Marshaler) graphql.Marshaler {
	if items == nil {
		return graphql.Null
	}
	ret := make(graphql.Array, len(items))
	if len(items) == 1 {
		ret[0] = marshal(graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: intPtr(0), Result: items[0]}), items[0])
		return ret
	}

	var wg sync.WaitGroup
	for i := range items {
		itemCtx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: intPtr(i), Result: items[i]})
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ret[i] = marshal(itemCtx, items[i])
		}()
	}
	wg.Wait()
	return ret
}

func intPtr(i int) *int { return &i }

// === Аргументы ===

func stringArg(args map[string]interface{}, name string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return ""
}

// idArg приводит аргумент типа ID к строке: литерал 12 и "12" равнозначны.
func idArg(args map[string]interface{}, name string) string {
	v, ok := args[name]
	if !ok || v == nil {
		return ""
	}
	id, err := graphql.UnmarshalID(v)
	if err != nil {
		return ""
	}
	return id
}

func optionalStringArg(args map[string]interface{}, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

// stringListArg пропускает null-элементы списка. Отсутствующий список - nil.
func stringListArg(args map[string]interface{}, name string) []string {
	switch v := args[name].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		// Одиночное значение на месте списка приводится к списку из одного элемента.
		return []string{v}
	}
	return nil
}
