package runtime

import (
	"context"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/UkralStul/strings-feed-service/graph/model"
	"github.com/UkralStul/strings-feed-service/internal/domain"
)

// === Post ===

func (ec *executionContext) marshalPosts(ctx context.Context, sel ast.SelectionSet, posts []*domain.Post) graphql.Marshaler {
	return marshalList(ctx, posts, func(ctx context.Context, p *domain.Post) graphql.Marshaler {
		return ec.marshalPost(ctx, sel, p)
	})
}

func (ec *executionContext) marshalPost(ctx context.Context, sel ast.SelectionSet, obj *domain.Post) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "Post", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "_id":
			return graphql.MarshalID(obj.ID)
		case "content":
			return graphql.MarshalString(obj.Content)
		case "tags":
			return marshalStrings(obj.Tags)
		case "imgUrl":
			return marshalOptionalString(obj.ImgURL)
		case "authorId":
			return graphql.MarshalID(obj.AuthorID)
		case "userDetails":
			return resolveField(ctx, ec, "Post", field, true,
				func(ctx context.Context, _ map[string]interface{}) (*domain.UserSummary, error) {
					return ec.resolvers.Post().UserDetails(ctx, obj)
				}, ec.marshalUserSummary)
		case "comments":
			return marshalList(ctx, obj.Comments, func(ctx context.Context, c domain.Comment) graphql.Marshaler {
				return ec.marshalComment(ctx, field.Selections, &c)
			})
		case "likes":
			return marshalList(ctx, obj.Likes, func(ctx context.Context, l domain.Like) graphql.Marshaler {
				return ec.marshalLike(ctx, field.Selections, &l)
			})
		case "createdAt":
			return marshalTime(obj.CreatedAt)
		case "updatedAt":
			return marshalTime(obj.UpdatedAt)
		}
		return graphql.Null
	})
}

// marshalUserSummary отдает автора поста как тип User без _id и подписок.
func (ec *executionContext) marshalUserSummary(ctx context.Context, sel ast.SelectionSet, obj *domain.UserSummary) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "User", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(obj.Name)
		case "username":
			return graphql.MarshalString(obj.Username)
		case "email":
			return graphql.MarshalString(obj.Email)
		}
		return graphql.Null
	})
}

func (ec *executionContext) marshalComment(ctx context.Context, sel ast.SelectionSet, obj *domain.Comment) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "Comment", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "content":
			return graphql.MarshalString(obj.Content)
		case "username":
			return graphql.MarshalString(obj.Username)
		case "createdAt":
			return marshalTime(obj.CreatedAt)
		case "updatedAt":
			return marshalTime(obj.UpdatedAt)
		}
		return graphql.Null
	})
}

func (ec *executionContext) marshalLike(ctx context.Context, sel ast.SelectionSet, obj *domain.Like) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "Like", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "username":
			return graphql.MarshalString(obj.Username)
		case "createdAt":
			return marshalTime(obj.CreatedAt)
		case "updatedAt":
			return marshalTime(obj.UpdatedAt)
		}
		return graphql.Null
	})
}

// === User ===

func (ec *executionContext) marshalUsers(ctx context.Context, sel ast.SelectionSet, users []*domain.User) graphql.Marshaler {
	return marshalList(ctx, users, func(ctx context.Context, u *domain.User) graphql.Marshaler {
		return ec.marshalUser(ctx, sel, u)
	})
}

func (ec *executionContext) marshalUser(ctx context.Context, sel ast.SelectionSet, obj *domain.User) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "User", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "_id":
			return graphql.MarshalID(obj.ID)
		case "name":
			return graphql.MarshalString(obj.Name)
		case "username":
			return graphql.MarshalString(obj.Username)
		case "email":
			return graphql.MarshalString(obj.Email)
		case "followings":
			return ec.marshalPeers(ctx, "following", field.Selections, obj.Followings)
		case "followers":
			return ec.marshalPeers(ctx, "follower", field.Selections, obj.Followers)
		}
		return graphql.Null
	})
}

// marshalPeers сериализует подписки и подписчиков (типы following и follower).
func (ec *executionContext) marshalPeers(ctx context.Context, typeName string, sel ast.SelectionSet, users []*domain.User) graphql.Marshaler {
	return marshalList(ctx, users, func(ctx context.Context, u *domain.User) graphql.Marshaler {
		if u == nil {
			return graphql.Null
		}
		return ec.object(ctx, typeName, sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
			switch field.Name {
			case "_id":
				return graphql.MarshalID(u.ID)
			case "name":
				return graphql.MarshalString(u.Name)
			case "username":
				return graphql.MarshalString(u.Username)
			case "email":
				return graphql.MarshalString(u.Email)
			}
			return graphql.Null
		})
	})
}

func (ec *executionContext) marshalFollow(ctx context.Context, sel ast.SelectionSet, obj *domain.Follow) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "Follow", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "_id":
			return graphql.MarshalID(obj.ID)
		case "followingId":
			return graphql.MarshalID(obj.FollowingID)
		case "followerId":
			return graphql.MarshalID(obj.FollowerID)
		case "createdAt":
			return marshalTime(obj.CreatedAt)
		case "updatedAt":
			return marshalTime(obj.UpdatedAt)
		}
		return graphql.Null
	})
}

func (ec *executionContext) marshalLoginResponse(ctx context.Context, sel ast.SelectionSet, obj *model.LoginResponse) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "LoginResponse", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "access_token":
			return graphql.MarshalString(obj.AccessToken)
		case "message":
			return graphql.MarshalString(obj.Message)
		case "userId":
			return graphql.MarshalString(obj.UserID)
		}
		return graphql.Null
	})
}

func (ec *executionContext) marshalUnfollowResponse(ctx context.Context, sel ast.SelectionSet, obj *model.UnfollowResponse) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "unfollowResponse", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		if field.Name == "message" {
			return graphql.MarshalString(obj.Message)
		}
		return graphql.Null
	})
}

// === Скаляры ===

func marshalStrings(values []string) graphql.Marshaler {
	if values == nil {
		return graphql.Null
	}
	ret := make(graphql.Array, len(values))
	for i, v := range values {
		ret[i] = graphql.MarshalString(v)
	}
	return ret
}

func marshalOptionalString(s *string) graphql.Marshaler {
	if s == nil {
		return graphql.Null
	}
	return graphql.MarshalString(*s)
}

// marshalTime отдает время в ISO-8601 с миллисекундами, нулевое время - null.
func marshalTime(t time.Time) graphql.Marshaler {
	if t.IsZero() {
		return graphql.Null
	}
	return graphql.MarshalString(t.UTC().Format(domain.TimestampLayout))
}
