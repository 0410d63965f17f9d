package storage

import (
	"context"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Storage определяет контракт для хранилищ.
// Каждый метод атомарен по отношению к записи, которую он меняет.
// Отсутствующие записи возвращаются как ошибка, оборачивающая domain.ErrNotFound.
type Storage interface {
	PostStorage
	CommentStorage
	UserStorage
}

type PostStorage interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// ListPublishedPosts - посты с published_date <= now, по убыванию published_date.
	ListPublishedPosts(ctx context.Context, now time.Time) ([]*domain.Post, error)
	// ListDraftPosts - посты без published_date, по возрастанию create_date.
	ListDraftPosts(ctx context.Context) ([]*domain.Post, error)
	UpdatePost(ctx context.Context, id, title, text string) (*domain.Post, error)
	PublishPost(ctx context.Context, id string, at time.Time) (*domain.Post, error)
	// DeletePost удаляет пост вместе со всеми его комментариями.
	DeletePost(ctx context.Context, id string) error
}

type CommentStorage interface {
	// CreateComment возвращает ErrNotFound, если поста нет.
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	// ApproveComment одобряет комментарий. changed == false, если он уже был одобрен.
	ApproveComment(ctx context.Context, id string) (comment *domain.Comment, changed bool, err error)
	DeleteComment(ctx context.Context, id string) error
	// GetCommentsByPostID - комментарии поста по возрастанию create_date.
	GetCommentsByPostID(ctx context.Context, postID string, approvedOnly bool) ([]*domain.Comment, error)

	// Метод для Dataloader'а
	GetApprovedCommentsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error)
}

type UserStorage interface {
	// CreateUser возвращает *domain.ValidationError, если имя пользователя занято.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// UsernameTakenError - общая ошибка для всех хранилищ.
func UsernameTakenError() error {
	return domain.NewValidationError("username", "a user with that username already exists")
}
