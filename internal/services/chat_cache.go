package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

const (
	chatFirstPageKeyPrefix = "chat:dm:"
	chatFirstPageMaxLen    = 50
	chatFirstPageTTL       = 10 * time.Minute
)

// chatFirstPageKey is the same for both participants of a conversation.
func chatFirstPageKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%d:%d:first", chatFirstPageKeyPrefix, a, b)
}

// InvalidateChatCache drops the cached first page of a conversation. Call
// after a message is persisted.
func InvalidateChatCache(ctx context.Context, a, b int64) {
	if database.RedisClient == nil {
		return
	}
	if err := database.RedisClient.Del(ctx, chatFirstPageKey(a, b)).Err(); err != nil {
		logger.L().Warn("chat cache invalidate failed", "key", chatFirstPageKey(a, b), "error", err)
	}
}

func cachedChatFirstPage(ctx context.Context, a, b int64, limit int) ([]models.ChatMessage, bool) {
	raw, err := database.RedisClient.LRange(ctx, chatFirstPageKey(a, b), 0, int64(limit)-1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	msgs := make([]models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m models.ChatMessage
		if json.Unmarshal([]byte(item), &m) != nil {
			return nil, false
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// warmChatFirstPage stores msgs oldest first.
func warmChatFirstPage(ctx context.Context, a, b int64, msgs []models.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	key := chatFirstPageKey(a, b)
	pipe := database.RedisClient.TxPipeline()
	pipe.Del(ctx, key)
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, chatFirstPageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Warn("chat cache warm failed", "key", key, "error", err)
	}
}

// LoadChatMessagesWithCache serves the first page of a conversation from
// Redis when it can. Later pages and oversized limits always hit Postgres.
func LoadChatMessagesWithCache(ctx context.Context, userID, otherUserID int64, page Pagination) ([]models.ChatMessage, error) {
	if database.RedisClient == nil || page.Skip != 0 || page.Limit > chatFirstPageMaxLen {
		return GetChatMessages(ctx, userID, otherUserID, page)
	}
	if msgs, ok := cachedChatFirstPage(ctx, userID, otherUserID, page.Limit); ok {
		return msgs, nil
	}

	msgs, err := GetChatMessages(ctx, userID, otherUserID, Pagination{Skip: 0, Limit: chatFirstPageMaxLen})
	if err != nil {
		return nil, err
	}
	warmChatFirstPage(ctx, userID, otherUserID, msgs)
	if len(msgs) > page.Limit {
		msgs = msgs[:page.Limit]
	}
	return msgs, nil
}
