package postgres

import (
	"strings"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/google/uuid"
)

// isUUID отсекает заведомо невалидные id до запроса: postgres вернул бы
// ошибку приведения типа, а клиенту нужен "не найдено".
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *postRow) toDomain(joinAuthor bool) *domain.Post {
	p := &domain.Post{
		ID:        r.ID,
		Content:   r.Content,
		Tags:      r.Tags,
		ImgURL:    r.ImgURL,
		AuthorID:  r.AuthorID,
		Comments:  make([]domain.Comment, 0, len(r.Comments)),
		Likes:     make([]domain.Like, 0, len(r.Likes)),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if joinAuthor && r.Author != nil {
		p.UserDetails = r.Author.toDomain().Summary()
	}
	for _, c := range r.Comments {
		p.Comments = append(p.Comments, domain.Comment{
			Content:   c.Content,
			Username:  c.Username,
			CreatedAt: c.CreatedAt.UTC(),
			UpdatedAt: c.UpdatedAt.UTC(),
		})
	}
	for _, l := range r.Likes {
		p.Likes = append(p.Likes, domain.Like{
			Username:  l.Username,
			CreatedAt: l.CreatedAt.UTC(),
			UpdatedAt: l.UpdatedAt.UTC(),
		})
	}
	return p
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:       r.ID,
		Name:     r.Name,
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
	}
}

func usersToDomain(rows []userRow) []*domain.User {
	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toDomain())
	}
	return users
}

func (r *followRow) toDomain() *domain.Follow {
	return &domain.Follow{
		ID:          r.ID,
		FollowerID:  r.FollowerID,
		FollowingID: r.FollowingID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}
