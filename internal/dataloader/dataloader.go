package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	ApprovedCommentsByPostID *dataloader.Loader
}

// NewLoaders создает лоадеры на один запрос: кеш лоадера живет вместе с запросом.
func NewLoaders(store storage.CommentStorage) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		postIDs := keys.Keys()

		// Один запрос к хранилищу на весь батч
		commentsMap, err := store.GetApprovedCommentsByPostIDs(ctx, postIDs)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результат в том же порядке, что и ключи
		for i, postID := range postIDs {
			comments := commentsMap[postID]
			if comments == nil {
				comments = []*domain.Comment{}
			}
			results[i] = &dataloader.Result{Data: comments}
		}
		return results
	}

	return &Loaders{
		ApprovedCommentsByPostID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.CommentStorage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста. nil, если middleware не подключен.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// ApprovedComments загружает одобренные комментарии сразу для нескольких постов.
func (l *Loaders) ApprovedComments(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	thunk := l.ApprovedCommentsByPostID.LoadMany(ctx, dataloader.NewKeysFromStrings(postIDs))
	data, errs := thunk()

	result := make(map[string][]*domain.Comment, len(postIDs))
	for i, postID := range postIDs {
		if i < len(errs) && errs[i] != nil {
			return nil, fmt.Errorf("failed to load comments of post %s: %w", postID, errs[i])
		}
		comments, ok := data[i].([]*domain.Comment)
		if !ok {
			return nil, fmt.Errorf("unexpected loader result %T for post %s", data[i], postID)
		}
		result[postID] = comments
	}
	return result, nil
}
