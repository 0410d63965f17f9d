package api

import (
	"net/http"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/policy"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func viewOf(u *domain.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in policy.Registration
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.Identity.Register(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.Identity.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Новый токен сессии при смене привилегий
	if err := h.Sessions.RenewToken(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	h.Sessions.Put(r.Context(), sessionUserID, user.ID)
	writeJSON(w, http.StatusOK, viewOf(user))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Destroy(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !caller.Authenticated() {
		respondError(w, r, domain.ErrAuthenticationRequired)
		return
	}
	writeJSON(w, http.StatusOK, userView{ID: caller.UserID, Username: caller.Username})
}
