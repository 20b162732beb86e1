package models

import "time"

// Upload is a file handed to the session, either from disk, a websocket
// client or the fetcher.
type Upload struct {
	Name string
	Data []byte
}

type RetrievedChunk struct {
	Text     string
	Position int
	Score    float64
}

type GeneratedAnswer struct {
	Text  string
	Model string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationEntry struct {
	ID   string
	Role Role
	Text string
	Time time.Time
}

// Clock returns the entry time formatted the way the chat shells print it.
func (e ConversationEntry) Clock() string {
	return e.Time.Format("15:04")
}
