package models

import "time"

// ChatMessage is a direct message between a patient and their therapist.
type ChatMessage struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
}

// ChatClientMessage is what a client sends over the chat WebSocket.
type ChatClientMessage struct {
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}
