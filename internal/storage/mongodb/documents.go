package mongodb

import (
	"time"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type postDocument struct {
	ID          bson.ObjectID        `bson:"_id,omitempty"`
	Content     string               `bson:"content"`
	Tags        []string             `bson:"tags"`
	ImgURL      *string              `bson:"imgUrl,omitempty"`
	AuthorID    bson.ObjectID        `bson:"authorId"`
	UserDetails *userDetailsDocument `bson:"userDetails,omitempty"`
	Comments    []commentDocument    `bson:"comments"`
	Likes       []likeDocument       `bson:"likes"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type userDetailsDocument struct {
	Name     string `bson:"name"`
	Username string `bson:"username"`
	Email    string `bson:"email"`
}

type commentDocument struct {
	Content   string    `bson:"content"`
	Username  string    `bson:"username"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type likeDocument struct {
	Username  string    `bson:"username"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type userDocument struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	Name     string        `bson:"name"`
	Username string        `bson:"username"`
	Email    string        `bson:"email"`
	Password string        `bson:"password,omitempty"`
}

type followDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	FollowerID  bson.ObjectID `bson:"followerId"`
	FollowingID bson.ObjectID `bson:"followingId"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *postDocument) toDomain() *domain.Post {
	p := &domain.Post{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Tags:      d.Tags,
		ImgURL:    d.ImgURL,
		AuthorID:  d.AuthorID.Hex(),
		Comments:  make([]domain.Comment, 0, len(d.Comments)),
		Likes:     make([]domain.Like, 0, len(d.Likes)),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if d.UserDetails != nil {
		p.UserDetails = &domain.UserSummary{
			Name:     d.UserDetails.Name,
			Username: d.UserDetails.Username,
			Email:    d.UserDetails.Email,
		}
	}
	for _, c := range d.Comments {
		p.Comments = append(p.Comments, c.toDomain())
	}
	for _, l := range d.Likes {
		p.Likes = append(p.Likes, l.toDomain())
	}
	return p
}

func (c commentDocument) toDomain() domain.Comment {
	return domain.Comment{Content: c.Content, Username: c.Username, CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC()}
}

func (l likeDocument) toDomain() domain.Like {
	return domain.Like{Username: l.Username, CreatedAt: l.CreatedAt.UTC(), UpdatedAt: l.UpdatedAt.UTC()}
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Username: d.Username,
		Email:    d.Email,
		Password: d.Password,
	}
}

func usersToDomain(docs []userDocument) []*domain.User {
	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users
}

func (d *followDocument) toDomain() *domain.Follow {
	return &domain.Follow{
		ID:          d.ID.Hex(),
		FollowerID:  d.FollowerID.Hex(),
		FollowingID: d.FollowingID.Hex(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}
