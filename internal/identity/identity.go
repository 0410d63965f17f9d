// Package identity - учетные записи: регистрация, проверка пароля
// и определение вызывающего по ID из сессии.
package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/policy"
	"github.com/UkralStul/blog-service/internal/storage"
)

type Service struct {
	store storage.UserStorage
	cost  int
}

// New создает сервис. cost - стоимость bcrypt, вне допустимого диапазона берется bcrypt.DefaultCost.
func New(store storage.UserStorage, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost}
}

// CanRegister проверяет поля формы и свободно ли имя пользователя.
// Имя сравнивается после обрезки пробелов, в том виде, в каком оно будет сохранено.
func (s *Service) CanRegister(ctx context.Context, r policy.Registration) error {
	_, err := s.cleanRegistration(ctx, r)
	return err
}

func (s *Service) cleanRegistration(ctx context.Context, r policy.Registration) (policy.Registration, error) {
	r, err := policy.CleanRegistration(r)
	if err != nil {
		return r, err
	}
	_, err = s.store.GetUserByUsername(ctx, r.Username)
	switch {
	case err == nil:
		return r, storage.UsernameTakenError()
	case errors.Is(err, domain.ErrNotFound):
		return r, nil
	default:
		return r, fmt.Errorf("failed to look up username: %w", err)
	}
}

// Register создает пользователя. Пароль хранится только в виде bcrypt-хеша.
func (s *Service) Register(ctx context.Context, r policy.Registration) (*domain.User, error) {
	r, err := s.cleanRegistration(ctx, r)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.NewValidationError("password", "password is too long")
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Хранилище повторно проверяет уникальность: между проверкой и CreateUser
	// имя мог занять параллельный запрос.
	return s.store.CreateUser(ctx, &domain.User{
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: hash,
	})
}

// Authenticate возвращает пользователя при совпадении пароля,
// иначе domain.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.GetUserByUsername(ctx, policy.CleanUsername(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := passwordMatches(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func passwordMatches(hash []byte, input string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(input))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// CurrentCaller определяет вызывающего по ID пользователя из сессии.
// Пустой ID или удаленный пользователь дают анонимного вызывающего.
func (s *Service) CurrentCaller(ctx context.Context, userID string) (domain.Caller, error) {
	if userID == "" {
		return domain.Anonymous, nil
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Anonymous, nil
		}
		return domain.Anonymous, err
	}
	return domain.CallerFor(user), nil
}
