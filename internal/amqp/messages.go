package amqp

import (
	"encoding/json"
	"time"
)

// Notification is the message fanned out to delivery channels (push, email)
// by a downstream consumer. The producer only knows the user and the text.
type Notification struct {
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotification creates a notification stamped with the current time.
func NewNotification(userID, title, body string) *Notification {
	return &Notification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the notification to JSON bytes.
func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// NotificationFromJSON parses a notification from JSON bytes.
func NotificationFromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
