package model

import (
	"sort"
	"strings"
	"time"
)

// Conversation диалог двух пользователей (хранится в MongoDB)
type Conversation struct {
	ID                string            `json:"id" bson:"_id"`
	PairKey           string            `json:"-" bson:"pair_key"`
	Participants      []string          `json:"participants" bson:"participants"`
	ParticipantNames  map[string]string `json:"participant_names" bson:"participant_names"`
	ParticipantPhotos map[string]string `json:"participant_photos" bson:"participant_photos"`
	LastMessage       string            `json:"last_message" bson:"last_message"`
	LastMessageAt     time.Time         `json:"last_message_at" bson:"last_message_at"`
	UnreadCount       map[string]int    `json:"unread_count" bson:"unread_count"`
	CreatedAt         time.Time         `json:"created_at" bson:"created_at"`
}

// PairKey детерминированный ключ пары участников, не зависит от порядка
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// HasParticipant проверяет участие пользователя в диалоге
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Recipients все участники, кроме отправителя
func (c *Conversation) Recipients(senderID string) []string {
	recipients := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != senderID {
			recipients = append(recipients, p)
		}
	}
	return recipients
}
