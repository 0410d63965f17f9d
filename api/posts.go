package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/blog-service/internal/dataloader"
	"github.com/UkralStul/blog-service/internal/domain"
)

type postInput struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// publishedPost - элемент публичной ленты вместе с одобренными комментариями.
type publishedPost struct {
	*domain.Post
	ApprovedComments []*domain.Comment `json:"approved_comments"`
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Blog.ListPublished(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	comments, err := h.approvedComments(r.Context(), posts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]publishedPost, len(posts))
	for i, p := range posts {
		out[i] = publishedPost{Post: p, ApprovedComments: comments[p.ID]}
	}
	writeJSON(w, http.StatusOK, out)
}

// approvedComments грузит комментарии всех постов одним батчем через Dataloader,
// без него - по одному запросу на пост.
func (h *Handler) approvedComments(ctx context.Context, posts []*domain.Post) (map[string][]*domain.Comment, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	if loaders := dataloader.For(ctx); loaders != nil {
		return loaders.ApprovedComments(ctx, ids)
	}

	result := make(map[string][]*domain.Comment, len(ids))
	for _, id := range ids {
		comments, err := h.Blog.ApprovedCommentsOf(ctx, id)
		if err != nil {
			return nil, err
		}
		result[id] = comments
	}
	return result, nil
}

func (h *Handler) listDrafts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Blog.ListDrafts(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Blog.GetPostDetail(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	// Аутентификация проверяется до разбора тела, как и в сервисе
	if !caller.Authenticated() {
		respondError(w, r, domain.ErrAuthenticationRequired)
		return
	}
	var in postInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	post, err := h.Blog.CreatePost(r.Context(), caller, in.Title, in.Text)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !caller.Authenticated() {
		respondError(w, r, domain.ErrAuthenticationRequired)
		return
	}
	postID := chi.URLParam(r, "postID")
	var in postInput
	err := decodeInput(w, r, &in, func() error {
		_, err := h.Blog.AuthorizePostChange(r.Context(), caller, postID)
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	post, err := h.Blog.UpdatePost(r.Context(), caller, postID, in.Title, in.Text)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.Blog.DeletePost(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "postID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.Blog.Publish(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
