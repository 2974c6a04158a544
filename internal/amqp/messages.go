package amqp

import (
	"encoding/json"
	"time"
)

// AlertEventMessage carries one persisted alert to downstream consumers.
// It holds only the alert id and its display fields; consumers that need the
// structured payload fetch the alert from the database.
type AlertEventMessage struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAlertEventMessage(id int64, typ, message string) *AlertEventMessage {
	return &AlertEventMessage{
		ID:        id,
		Type:      typ,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func (m *AlertEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertEventMessageFromJSON(data []byte) (*AlertEventMessage, error) {
	var msg AlertEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
