package models

import "time"

// Intent is one entry of the classifier's response table.
type Intent struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Responses []string `json:"responses" yaml:"responses"`
}

// Conversation is a single handled user message as persisted by a store.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
