package domain

import "time"

// User - учетная запись из хранилища идентичностей.
// Пост и комментарий ссылаются на пользователя только по ID.
type User struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key"`
	Username     string    `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string    `json:"email" gorm:"type:varchar(254);not null"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(150);not null"`
	LastName     string    `json:"last_name" gorm:"type:varchar(150);not null"`
	PasswordHash []byte    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"date_joined" gorm:"not null"`
}

// Post представляет пост блога. PublishedDate == nil означает черновик.
// Колонки и JSON-ключи повторяют раскладку записи: create_date, published_date.
type Post struct {
	ID            string     `json:"id" gorm:"type:uuid;primary_key"`
	AuthorID      string     `json:"author_id" gorm:"column:author_id;type:uuid;not null;index"`
	Title         string     `json:"title" gorm:"type:varchar(100);not null"`
	Text          string     `json:"text" gorm:"type:text;not null"`
	CreateDate    time.Time  `json:"create_date" gorm:"column:create_date;not null;index"`
	PublishedDate *time.Time `json:"published_date" gorm:"column:published_date;index"`
	Comments      []*Comment `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"` // gorm only
}

// IsPublished сообщает, виден ли пост в публичной ленте на момент now.
func (p *Post) IsPublished(now time.Time) bool {
	return p.PublishedDate != nil && !p.PublishedDate.After(now)
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID              string    `json:"id" gorm:"type:uuid;primary_key"`
	PostID          string    `json:"post_id" gorm:"column:post_id;type:uuid;not null;index"`
	AuthorID        string    `json:"author_id" gorm:"column:author_id;type:uuid;not null"`
	Text            string    `json:"text" gorm:"type:text;not null"`
	CreateDate      time.Time `json:"create_date" gorm:"column:create_date;not null"`
	ApprovedComment bool      `json:"approved_comment" gorm:"column:approved_comment;not null;default:false"`
}

// Caller - идентичность, от имени которой выполняется операция.
// Нулевое значение - анонимный пользователь.
type Caller struct {
	UserID   string
	Username string
}

// Anonymous - вызывающий без входа в систему.
var Anonymous = Caller{}

// CallerFor строит Caller для аутентифицированного пользователя.
func CallerFor(u *User) Caller {
	return Caller{UserID: u.ID, Username: u.Username}
}

func (c Caller) Authenticated() bool {
	return c.UserID != ""
}
