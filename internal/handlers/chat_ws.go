package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/moodjournal-backend/internal/middleware"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/internal/services"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

const (
	chatReadLimit    = 16 * 1024
	chatPongWait     = 90 * time.Second
	chatPingInterval = 30 * time.Second
	chatMaxContent   = 4000
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers can't set headers on a WebSocket; the JWT in the query string
	// is what authenticates the socket, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatWebSocket relays direct messages between a patient and their therapist.
// The JWT arrives as ?token= (or a bearer header); an invalid token closes the
// socket with 1008. Messages to anyone other than a chat partner are dropped.
func ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	authCtx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	u, err := services.UserFromToken(authCtx, token)
	cancel()
	if err != nil {
		closePolicyViolation(conn)
		return
	}

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	partners, err := loadPartners(ctx, u)
	if err != nil {
		logger.L().Warn("chat partners lookup failed", "user_id", u.ID, "error", err)
		closePolicyViolation(conn)
		return
	}

	uc := services.RegisterUserConnection(u.ID, conn)
	defer services.UnregisterUserConnection(uc)

	conn.SetReadLimit(chatReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(chatPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatPongWait))
	})
	go keepAlive(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(chatPongWait))

		var msg models.ChatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		msg.Content = strings.TrimSpace(msg.Content)
		if msg.Content == "" || len(msg.Content) > chatMaxContent {
			continue
		}

		if _, ok := partners[msg.RecipientID]; !ok {
			// Assignments can change while the socket is open.
			if partners, err = loadPartners(ctx, u); err != nil {
				logger.L().Warn("chat partners refresh failed", "user_id", u.ID, "error", err)
				return
			}
			if _, ok := partners[msg.RecipientID]; !ok {
				continue
			}
		}

		handleIncomingChatMessage(ctx, u, msg)
	}
}

func handleIncomingChatMessage(ctx context.Context, sender *models.User, msg models.ChatClientMessage) {
	writeCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	stored, err := services.InsertChatMessage(writeCtx, sender.ID, msg.RecipientID, msg.Content)
	if err != nil {
		logger.L().Error("failed to persist chat message", "sender_id", sender.ID, "error", err)
		return
	}
	services.DeliverChatMessage(writeCtx, *stored)
}

func loadPartners(ctx context.Context, u *models.User) (map[int64]struct{}, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return services.ChatPartners(c, u)
}

func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(chatPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func closePolicyViolation(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
		time.Now().Add(time.Second))
}
