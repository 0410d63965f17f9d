package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/blog-service/internal/domain"
)

// CommentObserver хранит каналы подписчиков на одобренные комментарии.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Comment
}

// NewCommentObserver - конструктор наблюдателя.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[string]map[string]chan *domain.Comment),
	}
}

// Subscribe регистрирует подписчика на комментарии поста.
func (o *CommentObserver) Subscribe(postID string) (string, <-chan *domain.Comment) {
	ch := make(chan *domain.Comment, 8)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[postID] == nil {
		o.subs[postID] = make(map[string]chan *domain.Comment)
	}
	o.subs[postID][subID] = ch
	o.mu.Unlock()

	return subID, ch
}

// Unsubscribe удаляет подписчика и закрывает его канал.
func (o *CommentObserver) Unsubscribe(postID, subID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	postSubs, ok := o.subs[postID]
	if !ok {
		return
	}
	if ch, ok := postSubs[subID]; ok {
		close(ch)
		delete(postSubs, subID)
	}
	if len(postSubs) == 0 {
		delete(o.subs, postID)
	}
}

// Notify рассылает комментарий подписчикам его поста. Не блокируется:
// если клиент не успевает читать, сообщение для него пропускается.
func (o *CommentObserver) Notify(c *domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[c.PostID] {
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribers возвращает число подписчиков поста.
func (o *CommentObserver) Subscribers(postID string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postID])
}
