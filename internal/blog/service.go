// Package blog содержит операции над постами и комментариями:
// выборки по видимости, создание, правку, удаление и переходы жизненного цикла.
package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/policy"
	"github.com/UkralStul/blog-service/internal/storage"
)

// Clock возвращает текущее время. Подменяется в тестах.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// Service выполняет операции от имени вызывающего.
// Проверки доступа выполняются до любых изменений хранилища.
type Service struct {
	store      storage.Storage
	policy     policy.Policy
	now        Clock
	onApproved func(*domain.Comment)
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithPolicy(p policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithApprovalHook задает функцию, вызываемую при переходе комментария
// из ожидания в одобренные. Повторное одобрение ее не вызывает.
func WithApprovalHook(fn func(*domain.Comment)) Option {
	return func(s *Service) { s.onApproved = fn }
}

func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: policy.New(),
		now:    utcNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostDetail - пост и комментарии, видимые вызывающему.
type PostDetail struct {
	Post     *domain.Post      `json:"post"`
	Comments []*domain.Comment `json:"comments"`
}

// === Queries ===

// ListPublished возвращает опубликованные посты, новые первыми.
func (s *Service) ListPublished(ctx context.Context) ([]*domain.Post, error) {
	posts, err := s.store.ListPublishedPosts(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}
	return posts, nil
}

// ListDrafts возвращает все черновики в порядке создания.
// Черновики не фильтруются по автору.
func (s *Service) ListDrafts(ctx context.Context, caller domain.Caller) ([]*domain.Post, error) {
	if !s.policy.CanViewDrafts(caller) {
		return nil, domain.ErrAuthenticationRequired
	}
	posts, err := s.store.ListDraftPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return posts, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return s.store.GetPostByID(ctx, id)
}

// GetPostDetail возвращает пост вместе с комментариями, см. CommentsOf.
func (s *Service) GetPostDetail(ctx context.Context, caller domain.Caller, id string) (*PostDetail, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.CommentsOf(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

// ApprovedCommentsOf возвращает одобренные комментарии поста по времени создания.
func (s *Service) ApprovedCommentsOf(ctx context.Context, postID string) ([]*domain.Comment, error) {
	comments, err := s.store.GetCommentsByPostID(ctx, postID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved comments: %w", err)
	}
	return comments, nil
}

// CommentsOf - модераторы (любой вошедший) видят и неодобренные комментарии,
// анонимный вызывающий только одобренные.
func (s *Service) CommentsOf(ctx context.Context, caller domain.Caller, postID string) ([]*domain.Comment, error) {
	approvedOnly := !s.policy.CanSeePendingComments(caller)
	comments, err := s.store.GetCommentsByPostID(ctx, postID, approvedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get post comments: %w", err)
	}
	return comments, nil
}

// === Post mutations ===

func (s *Service) CreatePost(ctx context.Context, caller domain.Caller, title, text string) (*domain.Post, error) {
	if !s.policy.CanCreatePost(caller) {
		return nil, domain.ErrAuthenticationRequired
	}
	title, text, err := policy.CleanPost(title, text)
	if err != nil {
		return nil, err
	}
	return s.store.CreatePost(ctx, &domain.Post{
		AuthorID:   caller.UserID,
		Title:      title,
		Text:       text,
		CreateDate: s.now(),
	})
}

// AuthorizePostChange проверяет, что пост существует и вызывающий может его менять.
// Порядок ошибок: ErrAuthenticationRequired, ErrNotFound, ErrForbidden.
func (s *Service) AuthorizePostChange(ctx context.Context, caller domain.Caller, id string) (*domain.Post, error) {
	if err := policy.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireOwner(caller, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost меняет только заголовок и текст; автор и даты не трогаются.
func (s *Service) UpdatePost(ctx context.Context, caller domain.Caller, id, title, text string) (*domain.Post, error) {
	if _, err := s.AuthorizePostChange(ctx, caller, id); err != nil {
		return nil, err
	}
	title, text, err := policy.CleanPost(title, text)
	if err != nil {
		return nil, err
	}
	return s.store.UpdatePost(ctx, id, title, text)
}

// DeletePost удаляет пост и все его комментарии.
func (s *Service) DeletePost(ctx context.Context, caller domain.Caller, id string) error {
	if _, err := s.AuthorizePostChange(ctx, caller, id); err != nil {
		return err
	}
	return s.store.DeletePost(ctx, id)
}

// === Comment mutations ===

// AddComment создает неодобренный комментарий к существующему посту.
func (s *Service) AddComment(ctx context.Context, caller domain.Caller, postID, text string) (*domain.Comment, error) {
	if !s.policy.CanComment(caller) {
		return nil, domain.ErrAuthenticationRequired
	}
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	text, err := policy.CleanComment(text)
	if err != nil {
		return nil, err
	}
	return s.store.CreateComment(ctx, &domain.Comment{
		PostID:     postID,
		AuthorID:   caller.UserID,
		Text:       text,
		CreateDate: s.now(),
	})
}
