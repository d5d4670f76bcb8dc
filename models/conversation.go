package models

import "time"

// One coach conversation per user; messages ordered by creation time.
type Conversation struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChatMessage struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID string `gorm:"type:uuid;index;not null"`
	Role           string `gorm:"size:20;not null"` // "user" | "assistant"
	Content        string `gorm:"type:text"`
	CreatedAt      time.Time
}
