package api

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/blog-service/internal/domain"
)

type contextKey string

const (
	callerKey     = contextKey("caller")
	sessionUserID = "userID"
)

// CallerFrom возвращает вызывающего текущего запроса.
func CallerFrom(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(callerKey).(domain.Caller)
	return caller
}

// loadCaller кладет в контекст вызывающего, определенного по сессии.
// Должен стоять после Sessions.LoadAndSave.
func (h *Handler) loadCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := h.Sessions.GetString(r.Context(), sessionUserID)
		caller, err := h.Identity.CurrentCaller(r.Context(), userID)
		if err != nil {
			log.Printf("[%s] failed to resolve caller: %v", middleware.GetReqID(r.Context()), err)
			caller = domain.Anonymous
		}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
