package model

import "time"

// ChatMessage is one entry of the shared station chat log. Messages are
// append-only: once written they are never edited, only deleted by id.
type ChatMessage struct {
	ID          string    `json:"id"`
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name"`
	Sender      string    `json:"sender"`
	BaristaName string    `json:"barista_name,omitempty"`
	Content     string    `json:"content"`
	IsUrgent    bool      `json:"is_urgent"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatPostRequest is the payload for sending a new chat message.
type ChatPostRequest struct {
	Content  string `json:"content"`
	IsUrgent bool   `json:"is_urgent"`
}
