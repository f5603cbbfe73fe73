package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Adilbek99/volunteer-system/middleware"
	"github.com/Adilbek99/volunteer-system/notifications"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true // Для разработки разрешаем все
	},
}

// WebSocketHandler подключает пользователя к его персональному каналу
// уведомлений. Браузерный WebSocket API не умеет выставлять заголовок
// Authorization, поэтому токен передаётся параметром запроса и проверяется
// здесь, минуя общий middleware.
type WebSocketHandler struct {
	hub  *notifications.Hub
	auth *middleware.Auth
}

func NewWebSocketHandler(hub *notifications.Hub, auth *middleware.Auth) *WebSocketHandler {
	return &WebSocketHandler{
		hub:  hub,
		auth: auth,
	}
}

// ServeWs обрабатывает подключение к /ws?token=<jwt>.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ParseClaims(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := middleware.GetUserIDFromContext(middleware.ContextWithClaims(r.Context(), claims))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade websocket connection",
			slog.Int("user_id", userID), slog.Any("error", err))
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		return
	}

	client := &notifications.Client{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 256), // Буферизированный канал
		UserID: userID,
	}
	client.Hub.Register <- client

	// Горутины работают, пока клиент не отключится.
	go client.WritePump()
	go client.ReadPump()

	slog.Debug("websocket client registered", slog.Int("user_id", userID))
}
