package api

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/blog-service/internal/blog"
	"github.com/UkralStul/blog-service/internal/dataloader"
	"github.com/UkralStul/blog-service/internal/identity"
	"github.com/UkralStul/blog-service/internal/storage"
)

// Handler - корневая структура HTTP-слоя.
// Она содержит все зависимости, которые нужны для обработки запросов.
type Handler struct {
	Blog     *blog.Service
	Identity *identity.Service
	Store    storage.Storage
	Sessions *scs.SessionManager
	Observer *CommentObserver
	Upgrader websocket.Upgrader
}

// NewRouter собирает chi-роутер со всеми маршрутами и middleware.
func (h *Handler) NewRouter() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Websocket вне сессий: обертка ответа scs не поддерживает Hijack.
	router.Get("/ws/posts/{postID}/comments", h.commentFeed)

	router.Group(func(router chi.Router) {
		router.Use(h.Sessions.LoadAndSave)
		router.Use(h.loadCaller)

		router.Post("/register", h.register)
		router.Post("/login", h.login)
		router.Post("/logout", h.logout)
		router.Get("/me", h.me)

		router.Route("/posts", func(r chi.Router) {
			r.With(dataloader.Middleware(h.Store)).Get("/", h.listPublished)
			r.Post("/", h.createPost)
			r.Get("/drafts", h.listDrafts)

			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", h.getPost)
				r.Put("/", h.updatePost)
				r.Delete("/", h.deletePost)
				r.Post("/publish", h.publishPost)
				r.Post("/comments", h.addComment)
			})
		})

		router.Route("/comments/{commentID}", func(r chi.Router) {
			r.Post("/approve", h.approveComment)
			r.Delete("/", h.removeComment)
		})
	})

	return router
}
