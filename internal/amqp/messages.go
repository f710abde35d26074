package amqp

import (
	"encoding/json"
	"time"
)

// ForecastRequestMessage asks the worker to compute a forecast and store it
// under ID. The pending record is created by the publisher before sending.
type ForecastRequestMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category,omitempty"`
	ModelType string    `json:"model_type"`
	DaysAhead int       `json:"days_ahead"`
	Timestamp time.Time `json:"timestamp"`
}

// NewForecastRequestMessage creates a request message stamped with the current time
func NewForecastRequestMessage(id, userID, category, modelType string, daysAhead int) *ForecastRequestMessage {
	return &ForecastRequestMessage{
		ID:        id,
		UserID:    userID,
		Category:  category,
		ModelType: modelType,
		DaysAhead: daysAhead,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ForecastRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ForecastRequestMessageFromJSON creates a message from JSON bytes
func ForecastRequestMessageFromJSON(data []byte) (*ForecastRequestMessage, error) {
	var msg ForecastRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
