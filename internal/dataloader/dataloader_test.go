package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
)

// countingStore считает обращения к батч-методу.
type countingStore struct {
	*inmemory.Store
	calls atomic.Int32
}

func (s *countingStore) GetApprovedCommentsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	s.calls.Add(1)
	return s.Store.GetApprovedCommentsByPostIDs(ctx, postIDs)
}

func TestLoaders_ApprovedCommentsBatchesPosts(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: inmemory.New()}

	var postIDs []string
	for i := 0; i < 3; i++ {
		p, err := store.CreatePost(ctx, &domain.Post{Title: "t", Text: "t", AuthorID: "u"})
		require.NoError(t, err)
		postIDs = append(postIDs, p.ID)
	}
	c, err := store.CreateComment(ctx, &domain.Comment{PostID: postIDs[1], AuthorID: "u", Text: "ok"})
	require.NoError(t, err)
	_, _, err = store.ApproveComment(ctx, c.ID)
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: postIDs[1], AuthorID: "u", Text: "pending"})
	require.NoError(t, err)

	loaders := NewLoaders(store)
	result, err := loaders.ApprovedComments(ctx, postIDs)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.calls.Load())
	assert.Empty(t, result[postIDs[0]])
	require.Len(t, result[postIDs[1]], 1)
	assert.Equal(t, c.ID, result[postIDs[1]][0].ID)
	assert.NotNil(t, result[postIDs[2]])
}

func TestMiddleware_InjectsLoaders(t *testing.T) {
	assert.Nil(t, For(context.Background()))

	var got *Loaders
	h := Middleware(inmemory.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotNil(t, got)
}
