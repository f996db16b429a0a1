package domain

import "time"

// TimestampLayout - формат всех временных меток в ответах API.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Post представляет пост в ленте. Комментарии и лайки хранятся внутри поста и только дописываются.
type Post struct {
	ID          string       `json:"_id"`
	Content     string       `json:"content"`
	Tags        []string     `json:"tags"`
	ImgURL      *string      `json:"imgUrl"`
	AuthorID    string       `json:"authorId"`
	UserDetails *UserSummary `json:"userDetails"`
	Comments    []Comment    `json:"comments"`
	Likes       []Like       `json:"likes"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// UserSummary - данные автора, присоединяемые к посту. Без пароля и без _id.
type UserSummary struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Comment хранит username автора строкой, а не ссылкой на пользователя.
type Comment struct {
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Like: не больше одного на пару (пост, username).
type Like struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Password   string  `json:"-"`
	Followings []*User `json:"followings,omitempty"`
	Followers  []*User `json:"followers,omitempty"`
}

// Summary возвращает проекцию пользователя для поля userDetails.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{Name: u.Name, Username: u.Username, Email: u.Email}
}

type Follow struct {
	ID          string    `json:"_id"`
	FollowerID  string    `json:"followerId"`
	FollowingID string    `json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Now - текущее время с точностью, которую хранят документные БД (миллисекунды).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
