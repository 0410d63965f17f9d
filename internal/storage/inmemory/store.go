package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются только копии записей.
type Store struct {
	mu             sync.RWMutex
	posts          map[string]*domain.Post
	comments       map[string]*domain.Comment
	commentsByPost map[string][]string // map[postID][]commentID
	users          map[string]*domain.User
	usersByName    map[string]string // map[username]userID
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:          make(map[string]*domain.Post),
		comments:       make(map[string]*domain.Comment),
		commentsByPost: make(map[string][]string),
		users:          make(map[string]*domain.User),
		usersByName:    make(map[string]string),
	}
}

func copyPost(p *domain.Post) *domain.Post {
	c := *p
	if p.PublishedDate != nil {
		t := *p.PublishedDate
		c.PublishedDate = &t
	}
	c.Comments = nil
	return &c
}

func copyComment(c *domain.Comment) *domain.Comment {
	cc := *c
	return &cc
}

func postNotFound(id string) error {
	return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
}

func commentNotFound(id string) error {
	return fmt.Errorf("comment with id %s: %w", id, domain.ErrNotFound)
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyPost(post)
	stored.ID = uuid.NewString()
	if stored.CreateDate.IsZero() {
		stored.CreateDate = time.Now().UTC()
	}
	s.posts[stored.ID] = stored
	return copyPost(stored), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, postNotFound(id)
	}
	return copyPost(post), nil
}

func (s *Store) ListPublishedPosts(ctx context.Context, now time.Time) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*domain.Post, 0)
	for _, p := range s.posts {
		if p.IsPublished(now) {
			posts = append(posts, copyPost(p))
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedDate.After(*posts[j].PublishedDate)
	})
	return posts, nil
}

func (s *Store) ListDraftPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*domain.Post, 0)
	for _, p := range s.posts {
		if p.PublishedDate == nil {
			posts = append(posts, copyPost(p))
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreateDate.Before(posts[j].CreateDate)
	})
	return posts, nil
}

func (s *Store) UpdatePost(ctx context.Context, id, title, text string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, postNotFound(id)
	}
	post.Title = title
	post.Text = text
	return copyPost(post), nil
}

func (s *Store) PublishPost(ctx context.Context, id string, at time.Time) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, postNotFound(id)
	}
	post.PublishedDate = &at
	return copyPost(post), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return postNotFound(id)
	}
	// Каскадное удаление комментариев в той же критической секции
	for _, cID := range s.commentsByPost[id] {
		delete(s.comments, cID)
	}
	delete(s.commentsByPost, id)
	delete(s.posts, id)
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, postNotFound(comment.PostID)
	}

	stored := copyComment(comment)
	stored.ID = uuid.NewString()
	if stored.CreateDate.IsZero() {
		stored.CreateDate = time.Now().UTC()
	}
	s.comments[stored.ID] = stored
	s.commentsByPost[stored.PostID] = append(s.commentsByPost[stored.PostID], stored.ID)
	return copyComment(stored), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, commentNotFound(id)
	}
	return copyComment(comment), nil
}

func (s *Store) ApproveComment(ctx context.Context, id string) (*domain.Comment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, false, commentNotFound(id)
	}
	changed := !comment.ApprovedComment
	comment.ApprovedComment = true
	return copyComment(comment), changed, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return commentNotFound(id)
	}
	ids := s.commentsByPost[comment.PostID]
	for i, cID := range ids {
		if cID == id {
			s.commentsByPost[comment.PostID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, approvedOnly bool) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.commentsOf(postID, approvedOnly), nil
}

// commentsOf - вспомогательная функция, вызывается под блокировкой
func (s *Store) commentsOf(postID string, approvedOnly bool) []*domain.Comment {
	ids := s.commentsByPost[postID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		c, ok := s.comments[id]
		if !ok || (approvedOnly && !c.ApprovedComment) {
			continue
		}
		comments = append(comments, copyComment(c))
	}
	// Сортируем по времени создания, порядок вставки сохраняется при равенстве
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreateDate.Before(comments[j].CreateDate)
	})
	return comments
}

// === Dataloader Methods ===

func (s *Store) GetApprovedCommentsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Comment, len(postIDs))
	for _, pID := range postIDs {
		results[pID] = s.commentsOf(pID, true)
	}
	return results, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByName[user.Username]; taken {
		return nil, storage.UsernameTakenError()
	}

	stored := *user
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.users[stored.ID] = &stored
	s.usersByName[stored.Username] = stored.ID

	out := stored
	return &out, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, domain.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	out := *s.users[id]
	return &out, nil
}
