package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/google/uuid"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, logLevel logger.LogLevel) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // нужен gorm.ErrDuplicatedKey для уникальности username
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы. Comment после Post: внешний ключ с ON DELETE CASCADE.
	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Comment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// notFound приводит ошибку GORM к domain.ErrNotFound.
// Некорректный UUID тоже означает "нет такой записи".
func notFound(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s with id %s: %w", kind, id, domain.ErrNotFound)
	}
	return err
}

func validID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s with id %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	stored := *post
	stored.ID = uuid.NewString()
	if stored.CreateDate.IsZero() {
		stored.CreateDate = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if err := validID("post", id); err != nil {
		return nil, err
	}
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound("post", id, err)
	}
	return &post, nil
}

func (s *Store) ListPublishedPosts(ctx context.Context, now time.Time) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0)
	err := s.db.WithContext(ctx).
		Where("published_date IS NOT NULL AND published_date <= ?", now).
		Order("published_date DESC").
		Find(&posts).Error
	return posts, err
}

func (s *Store) ListDraftPosts(ctx context.Context) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0)
	err := s.db.WithContext(ctx).
		Where("published_date IS NULL").
		Order("create_date ASC").
		Find(&posts).Error
	return posts, err
}

// updatePost - чтение-изменение-запись одной строки в транзакции
func (s *Store) updatePost(ctx context.Context, id string, apply func(*domain.Post)) (*domain.Post, error) {
	if err := validID("post", id); err != nil {
		return nil, err
	}
	var post domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return err
		}
		apply(&post)
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, notFound("post", id, err)
	}
	return &post, nil
}

func (s *Store) UpdatePost(ctx context.Context, id, title, text string) (*domain.Post, error) {
	return s.updatePost(ctx, id, func(p *domain.Post) {
		p.Title = title
		p.Text = text
	})
}

func (s *Store) PublishPost(ctx context.Context, id string, at time.Time) (*domain.Post, error) {
	return s.updatePost(ctx, id, func(p *domain.Post) {
		p.PublishedDate = &at
	})
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := validID("post", id); err != nil {
		return err
	}
	// Внешний ключ уже каскадный, но удаляем комментарии явно в той же транзакции
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := validID("post", comment.PostID); err != nil {
		return nil, err
	}
	stored := *comment
	stored.ID = uuid.NewString()
	if stored.CreateDate.IsZero() {
		stored.CreateDate = time.Now().UTC()
	}

	// Проверяем существование поста и создаем комментарий в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", stored.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post with id %s: %w", stored.PostID, domain.ErrNotFound)
		}
		return tx.Create(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	if err := validID("comment", id); err != nil {
		return nil, err
	}
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound("comment", id, err)
	}
	return &comment, nil
}

func (s *Store) ApproveComment(ctx context.Context, id string) (*domain.Comment, bool, error) {
	if err := validID("comment", id); err != nil {
		return nil, false, err
	}
	var comment domain.Comment
	var changed bool
	// SELECT ... FOR UPDATE: два параллельных одобрения не увидят changed == true оба
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, "id = ?", id).Error; err != nil {
			return err
		}
		if comment.ApprovedComment {
			return nil
		}
		changed = true
		comment.ApprovedComment = true
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, false, notFound("comment", id, err)
	}
	return &comment, changed, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	if err := validID("comment", id); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, approvedOnly bool) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	if _, err := uuid.Parse(postID); err != nil {
		return comments, nil
	}
	query := s.db.WithContext(ctx).Where("post_id = ?", postID)
	if approvedOnly {
		query = query.Where("approved_comment = ?", true)
	}
	err := query.Order("create_date ASC").Find(&comments).Error
	return comments, err
}

// === Dataloader Method ===

func (s *Store) GetApprovedCommentsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	valid := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}

	result := make(map[string][]*domain.Comment, len(postIDs))
	if len(valid) == 0 {
		return result, nil
	}

	var comments []*domain.Comment
	// Загружаем одобренные комментарии всех постов одним запросом
	err := s.db.WithContext(ctx).
		Where("post_id IN ? AND approved_comment = ?", valid, true).
		Order("post_id, create_date ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		result[c.PostID] = append(result[c.PostID], c)
	}
	return result, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	stored := *user
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.UsernameTakenError()
		}
		return nil, err
	}
	return &stored, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if err := validID("user", id); err != nil {
		return nil, err
	}
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound("user", id, err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}
