package amqp

import (
	"encoding/json"
	"time"
)

// CollectionChangedMessage announces that a stored collection was rewritten.
// It carries no payload; consumers reload the collection from the store.
type CollectionChangedMessage struct {
	Collection string    `json:"collection"`
	Count      int       `json:"count"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewCollectionChangedMessage(collection string, count int) *CollectionChangedMessage {
	return &CollectionChangedMessage{
		Collection: collection,
		Count:      count,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CollectionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CollectionChangedMessageFromJSON creates a message from JSON bytes
func CollectionChangedMessageFromJSON(data []byte) (*CollectionChangedMessage, error) {
	var msg CollectionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
