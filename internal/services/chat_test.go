package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	received []models.ChatMessage
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, v.(models.ChatMessage))
	return nil
}

func (c *fakeConn) ReadJSON(dest interface{}) error { return io.EOF }
func (c *fakeConn) Close() error                    { return nil }

func (c *fakeConn) messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.received...)
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	prev := database.RedisClient
	database.RedisClient = client
	t.Cleanup(func() {
		database.RedisClient = prev
		client.Close()
	})
	return mr
}

func TestDeliverChatMessageLocalFallback(t *testing.T) {
	sender, recipient := &fakeConn{}, &fakeConn{}
	ucS := RegisterUserConnection(1, sender)
	ucR := RegisterUserConnection(2, recipient)
	defer UnregisterUserConnection(ucS)
	defer UnregisterUserConnection(ucR)

	msg := models.ChatMessage{ID: 10, Content: "hi", SenderID: 1, RecipientID: 2, Timestamp: time.Now().UTC()}
	DeliverChatMessage(context.Background(), msg)

	require.Len(t, recipient.messages(), 1)
	require.Len(t, sender.messages(), 1)
	assert.Equal(t, "hi", recipient.messages()[0].Content)
}

func TestUnregisterKeepsNewerConnection(t *testing.T) {
	old := RegisterUserConnection(3, &fakeConn{})
	newer := &fakeConn{}
	current := RegisterUserConnection(3, newer)
	defer UnregisterUserConnection(current)

	UnregisterUserConnection(old)
	DeliverChatMessage(context.Background(), models.ChatMessage{Content: "still here", SenderID: 4, RecipientID: 3})
	assert.Len(t, newer.messages(), 1)
}

func TestDeliverChatMessageThroughRedis(t *testing.T) {
	mr := setupMiniredis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runRedisSubscriber(ctx)

	require.Eventually(t, func() bool { return mr.PubSubNumPat() > 0 }, 2*time.Second, 10*time.Millisecond)

	recipient := &fakeConn{}
	uc := RegisterUserConnection(22, recipient)
	defer UnregisterUserConnection(uc)

	DeliverChatMessage(ctx, models.ChatMessage{ID: 1, Content: "across instances", SenderID: 21, RecipientID: 22})

	require.Eventually(t, func() bool { return len(recipient.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "across instances", recipient.messages()[0].Content)
}

func TestGetChatMessagesBothDirections(t *testing.T) {
	mock := setupMockDB(t)
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`\(sender_id = \$1 AND recipient_id = \$2\) OR \(sender_id = \$2 AND recipient_id = \$1\)\s+ORDER BY timestamp ASC`).
		WithArgs(1, 2, 0, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "timestamp", "sender_id", "recipient_id"}).
			AddRow(1, "hello", ts, 1, 2).
			AddRow(2, "hi back", ts.Add(time.Minute), 2, 1))

	msgs, err := GetChatMessages(context.Background(), 1, 2, Pagination{Skip: 0, Limit: 50})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(2), msgs[1].SenderID)
}

func TestChatPartners(t *testing.T) {
	mock := setupMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM patient_data WHERE user_id = \$1`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(patientDataColumnNames).AddRow(1, 7, 3, 9, true, "None", nil))
	partners, err := ChatPartners(ctx, patient())
	require.NoError(t, err)
	assert.Contains(t, partners, int64(9))
	assert.Len(t, partners, 1)

	mock.ExpectQuery(`SELECT user_id FROM patient_data WHERE therapist_user_id = \$1`).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7).AddRow(8))
	partners, err = ChatPartners(ctx, &models.User{ID: 9, Role: models.RoleTherapist})
	require.NoError(t, err)
	assert.Len(t, partners, 2)
}

func TestGetUserStatsIsCached(t *testing.T) {
	setupMiniredis(t)
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT COUNT`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"journals", "guided", "streak", "last_login"}).
			AddRow(4, 2, 3, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))

	ctx := context.Background()
	first, err := GetUserStats(ctx, 7)
	require.NoError(t, err)
	second, err := GetUserStats(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "2024-03-10", second.LastLogin)
	require.NoError(t, mock.ExpectationsWereMet())

	invalidateStats(ctx, 7)
	hit, err := Cache.Get(ctx, statsCacheKey(7), &models.UserStats{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestChatFirstPageCache(t *testing.T) {
	mr := setupMiniredis(t)
	mock := setupMockDB(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "content", "timestamp", "sender_id", "recipient_id"}

	mock.ExpectQuery(`FROM chat_messages`).WithArgs(2, 1, 0, 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "hello", ts, 1, 2).
			AddRow(2, "hi back", ts.Add(time.Minute), 2, 1))

	msgs, err := LoadChatMessagesWithCache(ctx, 2, 1, Pagination{Skip: 0, Limit: 1})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, mr.Exists("chat:dm:1:2:first"))

	// Served from Redis for the other participant, no query expected.
	msgs, err = LoadChatMessagesWithCache(ctx, 1, 2, Pagination{Skip: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi back", msgs[1].Content)

	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	_, err = InsertChatMessage(ctx, 1, 2, "new")
	require.NoError(t, err)
	assert.False(t, mr.Exists("chat:dm:1:2:first"))

	mock.ExpectQuery(`FROM chat_messages`).WithArgs(1, 2, 50, 10).
		WillReturnRows(sqlmock.NewRows(cols))
	msgs, err = LoadChatMessagesWithCache(ctx, 1, 2, Pagination{Skip: 50, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}
