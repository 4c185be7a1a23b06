package handler

import (
	"net/http"
	"strings"

	"noteforge-server/internal/websocket"
	"noteforge-server/pkg/jwt"
	"noteforge-server/pkg/response"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, readBufferSize, writeBufferSize int) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection authenticates with ?token= or a Bearer header, then hands
// the upgraded connection to the manager.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			token = header[7:]
		}
	}

	if token == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		log.Debug().Err(err).Msg("websocket token rejected")
		response.Unauthorized(w, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, conn, h.manager)
	if !h.manager.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers client frames. Clients only ever send ping.
type WebSocketMessageHandler struct {
	manager *websocket.Manager
}

func NewWebSocketMessageHandler(manager *websocket.Manager) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		manager: manager,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		pong, err := websocket.NewMessage(websocket.TypePong, nil)
		if err != nil {
			return err
		}
		return h.manager.SendToClient(client, pong)

	default:
		errMsg, err := websocket.NewMessage(websocket.TypeError, &websocket.ErrorPayload{
			Message: "unsupported message type: " + string(msg.Type),
		})
		if err != nil {
			return err
		}
		return h.manager.SendToClient(client, errMsg)
	}
}
