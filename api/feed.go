package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

// commentFeed отдает по websocket комментарии поста в момент их одобрения.
func (h *Handler) commentFeed(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	// Проверяем, существует ли пост, прежде чем подписываться
	if _, err := h.Blog.GetPost(r.Context(), postID); err != nil {
		respondError(w, r, err)
		return
	}

	// Подписка до Upgrade: к моменту ответа на handshake клиент уже подписан
	subID, ch := h.Observer.Subscribe(postID)
	defer h.Observer.Unsubscribe(postID, subID)

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам пишет ответ с ошибкой
		log.Printf("[%s] websocket upgrade failed: %v", middleware.GetReqID(r.Context()), err)
		return
	}
	defer conn.Close()

	// Читаем входящие кадры только чтобы заметить закрытие соединения клиентом
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(c); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
