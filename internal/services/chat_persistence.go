package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

// InsertChatMessage persists a message and returns it with its id and
// server-side timestamp.
func InsertChatMessage(ctx context.Context, senderID, recipientID int64, content string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		Content:     content,
		Timestamp:   time.Now().UTC(),
		SenderID:    senderID,
		RecipientID: recipientID,
	}
	err := database.PostgresDB.QueryRowContext(ctx, `
		INSERT INTO chat_messages (content, timestamp, sender_id, recipient_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		msg.Content, msg.Timestamp, msg.SenderID, msg.RecipientID).Scan(&msg.ID)
	if err != nil {
		return nil, err
	}
	InvalidateChatCache(ctx, senderID, recipientID)
	return &msg, nil
}

// GetChatMessages returns the conversation between two users in both
// directions, oldest first.
func GetChatMessages(ctx context.Context, userID, otherUserID int64, page Pagination) ([]models.ChatMessage, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, content, timestamp, sender_id, recipient_id
		FROM chat_messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY timestamp ASC, id ASC
		OFFSET $3 LIMIT $4`, userID, otherUserID, page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.Content, &m.Timestamp, &m.SenderID, &m.RecipientID); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ChatPartners returns the user ids the given user may message: a patient's
// assigned therapist, or a therapist's patients.
func ChatPartners(ctx context.Context, u *models.User) (map[int64]struct{}, error) {
	partners := make(map[int64]struct{})
	if u.IsTherapist() {
		ids, err := PatientUserIDs(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			partners[id] = struct{}{}
		}
		return partners, nil
	}

	pd, err := GetPatientData(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if pd.TherapistUserID != nil {
		partners[*pd.TherapistUserID] = struct{}{}
	}
	return partners, nil
}
