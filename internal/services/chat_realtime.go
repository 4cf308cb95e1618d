package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

const chatChannelPrefix = "chat:user:"

// ChatConn is the minimal interface our WebSocket implementation must satisfy.
type ChatConn interface {
	WriteJSON(v interface{}) error
	ReadJSON(dest interface{}) error
	Close() error
}

// UserConnection tracks a single user's WebSocket connection. Writes are
// serialized since a socket supports only one concurrent writer.
type UserConnection struct {
	UserID  int64
	Conn    ChatConn
	writeMu sync.Mutex
}

// Send writes v to the socket.
func (uc *UserConnection) Send(v interface{}) error {
	uc.writeMu.Lock()
	defer uc.writeMu.Unlock()
	return uc.Conn.WriteJSON(v)
}

// ChatHub is a registry of the user connections held by this instance.
type ChatHub struct {
	mu          sync.RWMutex
	connections map[int64]*UserConnection
}

var (
	chatHub      = &ChatHub{connections: make(map[int64]*UserConnection)}
	redisStarted sync.Once
)

// RegisterUserConnection registers or replaces a user's connection.
func RegisterUserConnection(userID int64, conn ChatConn) *UserConnection {
	uc := &UserConnection{UserID: userID, Conn: conn}

	chatHub.mu.Lock()
	chatHub.connections[userID] = uc
	chatHub.mu.Unlock()

	metrics.ChatConnectionOpened()
	return uc
}

// UnregisterUserConnection removes uc unless a newer connection for the same
// user has replaced it.
func UnregisterUserConnection(uc *UserConnection) {
	chatHub.mu.Lock()
	if current, ok := chatHub.connections[uc.UserID]; ok && current == uc {
		delete(chatHub.connections, uc.UserID)
	}
	chatHub.mu.Unlock()

	metrics.ChatConnectionClosed()
}

// deliverLocal writes msg to the user's socket on this instance, if any.
func deliverLocal(userID int64, msg models.ChatMessage, path string) bool {
	chatHub.mu.RLock()
	uc, ok := chatHub.connections[userID]
	chatHub.mu.RUnlock()
	if !ok {
		return false
	}
	if err := uc.Send(msg); err != nil {
		logger.L().Warn("error writing chat message to websocket", "user_id", userID, "error", err)
		return false
	}
	metrics.RecordChatDelivery(path)
	return true
}

// DeliverChatMessage sends a persisted message to both participants. With
// Redis configured it goes through the per-user channels so that users
// connected to other instances receive it too.
func DeliverChatMessage(ctx context.Context, msg models.ChatMessage) {
	for _, userID := range []int64{msg.RecipientID, msg.SenderID} {
		if database.RedisClient == nil {
			deliverLocal(userID, msg, "local")
			continue
		}
		if err := publishChatMessage(ctx, userID, msg); err != nil {
			logger.L().Warn("chat publish failed, delivering locally", "user_id", userID, "error", err)
			deliverLocal(userID, msg, "local")
		}
	}
}

func publishChatMessage(ctx context.Context, userID int64, msg models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, chatChannelPrefix+strconv.FormatInt(userID, 10), data).Err()
}

// StartRedisChatSubscriber ensures a single shared Redis listener per instance.
func StartRedisChatSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runRedisSubscriber(ctx)
	})
}

func runRedisSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		logger.L().Info("Redis client not initialized; chat subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, chatChannelPrefix+"*")
			defer pubsub.Close()

			logger.L().Info("✅ Chat Redis subscriber started", "pattern", chatChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.L().Warn("Redis subscriber error", "error", err, "retry_in", backoff.String())
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				userID, err := strconv.ParseInt(strings.TrimPrefix(msg.Channel, chatChannelPrefix), 10, 64)
				if err != nil {
					continue
				}
				var chat models.ChatMessage
				if err := json.Unmarshal([]byte(msg.Payload), &chat); err != nil {
					logger.L().Warn("failed to unmarshal chat message", "error", err)
					continue
				}
				deliverLocal(userID, chat, "pubsub")
			}
		}()
	}
}
