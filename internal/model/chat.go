package model

import "time"

// ChatMessage is one entry of the append-only chat log.
type ChatMessage struct {
	Nickname string    `json:"nickname"`
	Icon     *string   `json:"icon"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}
