package graph

import (
	"context"
	"errors"

	"github.com/UkralStul/strings-feed-service/graph/model"
	"github.com/UkralStul/strings-feed-service/graph/runtime"
	"github.com/UkralStul/strings-feed-service/internal/account"
	"github.com/UkralStul/strings-feed-service/internal/dataloader"
	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/feed"
	"github.com/UkralStul/strings-feed-service/internal/storage"
)

// === Mutation Resolvers ===

func (r *mutationResolver) CreatePost(ctx context.Context, content string, tags []string, imgURL *string) (*domain.Post, error) {
	user, err := r.Gate.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return r.Feed.CreatePost(ctx, feed.NewPost{
		Content:  content,
		Tags:     tags,
		ImgURL:   imgURL,
		AuthorID: user.ID,
	})
}

func (r *mutationResolver) AddComent(ctx context.Context, content string, postID string) (*domain.Comment, error) {
	user, err := r.Gate.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	comment, err := r.Feed.AddComment(ctx, postID, content, user.Username)
	if err != nil {
		return nil, err
	}

	// Асинхронно уведомляем подписчиков
	r.Observer.Publish(postID, comment)
	return comment, nil
}

func (r *mutationResolver) AddLike(ctx context.Context, postID string) (*domain.Like, error) {
	user, err := r.Gate.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return r.Feed.AddLike(ctx, postID, user.Username)
}

func (r *mutationResolver) CreateUser(ctx context.Context, name, username, email, password string) (*domain.User, error) {
	return r.Accounts.Register(ctx, account.NewUser{
		Name:     name,
		Username: username,
		Email:    email,
		Password: password,
	})
}

func (r *mutationResolver) Login(ctx context.Context, usernameEmail, password string) (*model.LoginResponse, error) {
	res, err := r.Accounts.Login(ctx, usernameEmail, password)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		AccessToken: res.AccessToken,
		Message:     res.Message,
		UserID:      res.UserID,
	}, nil
}

func (r *mutationResolver) FollowUser(ctx context.Context, followingID string) (*domain.Follow, error) {
	user, err := r.Gate.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return r.Accounts.Follow(ctx, user.ID, followingID)
}

func (r *mutationResolver) UnfollowUser(ctx context.Context, followingID string) (*model.UnfollowResponse, error) {
	user, err := r.Gate.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := r.Accounts.Unfollow(ctx, user.ID, followingID)
	if err != nil {
		return nil, err
	}
	return &model.UnfollowResponse{Message: msg}, nil
}

// === Post Resolvers ===

// UserDetails отдает присоединенного автора, а если его нет в записи,
// догружает автора через дата-лоадер одним батчем на запрос.
func (r *postResolver) UserDetails(ctx context.Context, obj *domain.Post) (*domain.UserSummary, error) {
	if obj.UserDetails != nil {
		return obj.UserDetails, nil
	}
	if obj.AuthorID == "" {
		return nil, nil
	}

	if loaders := dataloader.For(ctx); loaders != nil {
		user, err := loaders.LoadUser(ctx, obj.AuthorID)
		if err != nil {
			return nil, err
		}
		return user.Summary(), nil
	}

	user, err := r.Users.GetUserByID(ctx, obj.AuthorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.Summary(), nil
}

// === Query Resolvers ===

func (r *queryResolver) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	if _, err := r.Gate.Authenticate(ctx); err != nil {
		return nil, err
	}
	return r.Feed.ReadFeed(ctx)
}

func (r *queryResolver) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	return r.Feed.GetPostByID(ctx, id)
}

func (r *queryResolver) UsersByName(ctx context.Context, nameUsername string) ([]*domain.User, error) {
	if _, err := r.Gate.Authenticate(ctx); err != nil {
		return nil, err
	}
	return r.Accounts.SearchUsers(ctx, nameUsername)
}

func (r *queryResolver) UsersByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := r.Gate.Authenticate(ctx); err != nil {
		return nil, err
	}
	return r.Accounts.UserByID(ctx, id)
}

// === Subscription Resolvers ===

func (r *subscriptionResolver) CommentAdded(ctx context.Context, postID string) (<-chan *domain.Comment, error) {
	// Проверяем, существует ли пост, прежде чем подписываться
	post, err := r.Feed.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, storage.ErrPostNotFound()
	}
	return r.Observer.Subscribe(ctx, postID), nil
}

// === Связывание резолверов с интерфейсами runtime ===

// Mutation returns runtime.MutationResolver implementation.
func (r *Resolver) Mutation() runtime.MutationResolver { return &mutationResolver{r} }

// Post returns runtime.PostResolver implementation.
func (r *Resolver) Post() runtime.PostResolver { return &postResolver{r} }

// Query returns runtime.QueryResolver implementation.
func (r *Resolver) Query() runtime.QueryResolver { return &queryResolver{r} }

// Subscription returns runtime.SubscriptionResolver implementation.
func (r *Resolver) Subscription() runtime.SubscriptionResolver { return &subscriptionResolver{r} }

type mutationResolver struct{ *Resolver }
type postResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
