package blog

import (
	"context"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Post:    Draft -> Published (Publish). Обратного перехода нет.
// Comment: Pending -> Approved (ApproveComment); любое состояние -> удален (RemoveComment).

// Publish ставит published_date = now. Повторный вызов переносит дату на более позднюю,
// пост остается опубликованным.
func (s *Service) Publish(ctx context.Context, caller domain.Caller, postID string) (*domain.Post, error) {
	if !s.policy.CanPublish(caller) {
		return nil, domain.ErrAuthenticationRequired
	}
	return s.store.PublishPost(ctx, postID, s.now())
}

// ApproveComment идемпотентен: повторное одобрение успешно и ничего не меняет,
// хук одобрения срабатывает только на первом.
func (s *Service) ApproveComment(ctx context.Context, caller domain.Caller, commentID string) (*domain.Comment, error) {
	if !s.policy.CanModerateComment(caller) {
		return nil, domain.ErrAuthenticationRequired
	}
	comment, changed, err := s.store.ApproveComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if changed && s.onApproved != nil {
		s.onApproved(comment)
	}
	return comment, nil
}

// RemoveComment удаляет комментарий и возвращает его последнее состояние,
// чтобы вызывающий мог вернуться к посту.
func (s *Service) RemoveComment(ctx context.Context, caller domain.Caller, commentID string) (*domain.Comment, error) {
	if !s.policy.CanModerateComment(caller) {
		return nil, domain.ErrAuthenticationRequired
	}
	comment, err := s.store.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return nil, err
	}
	return comment, nil
}
