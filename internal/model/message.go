package model

import "time"

// Message сообщение в диалоге. После создания меняется только ReadBy.
type Message struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id"`
	SenderID       string    `json:"sender_id" bson:"sender_id"`
	SenderName     string    `json:"sender_name" bson:"sender_name"`
	SenderPhoto    string    `json:"sender_photo" bson:"sender_photo"`
	Text           string    `json:"text" bson:"text"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	ReadBy         []string  `json:"read_by" bson:"read_by"`
}
