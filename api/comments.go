package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/blog-service/internal/domain"
)

type commentInput struct {
	Text string `json:"text"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !caller.Authenticated() {
		respondError(w, r, domain.ErrAuthenticationRequired)
		return
	}
	postID := chi.URLParam(r, "postID")
	var in commentInput
	err := decodeInput(w, r, &in, func() error {
		_, err := h.Blog.GetPost(r.Context(), postID)
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	comment, err := h.Blog.AddComment(r.Context(), caller, postID, in.Text)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) approveComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.Blog.ApproveComment(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "commentID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *Handler) removeComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.Blog.RemoveComment(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "commentID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"post_id": comment.PostID})
}
