// Package policy решает, какие операции доступны вызывающему,
// и хранит статические правила валидации сущностей.
package policy

import (
	"fmt"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Policy - набор проверок доступа. Все методы вызываются до мутаций хранилища.
type Policy struct {
	// OwnerChecks включает проверку "вызывающий == автор" для правки и удаления поста.
	// Выключенная проверка оставляет только требование аутентификации.
	OwnerChecks bool
}

// New возвращает политику с включенной проверкой владельца.
func New() Policy {
	return Policy{OwnerChecks: true}
}

func (Policy) CanCreatePost(c domain.Caller) bool { return c.Authenticated() }

// CanViewDrafts не ограничивает черновики автором: любой вошедший видит все.
func (Policy) CanViewDrafts(c domain.Caller) bool { return c.Authenticated() }

// CanModerateComment - ролей нет, модерировать может любой вошедший.
func (Policy) CanModerateComment(c domain.Caller) bool { return c.Authenticated() }

func (Policy) CanPublish(c domain.Caller) bool { return c.Authenticated() }

func (Policy) CanComment(c domain.Caller) bool { return c.Authenticated() }

// CanSeePendingComments - неодобренные комментарии видны только вошедшим.
func (Policy) CanSeePendingComments(c domain.Caller) bool { return c.Authenticated() }

// CanEditPost - правка и удаление поста.
func (p Policy) CanEditPost(c domain.Caller, post *domain.Post) bool {
	if !c.Authenticated() {
		return false
	}
	return !p.OwnerChecks || post.AuthorID == c.UserID
}

// RequireAuthenticated возвращает ErrAuthenticationRequired для анонимного вызывающего.
func RequireAuthenticated(c domain.Caller) error {
	if !c.Authenticated() {
		return domain.ErrAuthenticationRequired
	}
	return nil
}

// RequireOwner проверяет право вызывающего менять пост.
func (p Policy) RequireOwner(c domain.Caller, post *domain.Post) error {
	if err := RequireAuthenticated(c); err != nil {
		return err
	}
	if !p.CanEditPost(c, post) {
		return fmt.Errorf("post %s belongs to another user: %w", post.ID, domain.ErrForbidden)
	}
	return nil
}
