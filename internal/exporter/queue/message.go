// Package queue delivers "export requested" notifications to the export
// service. Delivery is at-least-once: a message is acknowledged only after
// the export reached a terminal state.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
)

// Message asks for one upload to be exported.
type Message struct {
	UploadID string `json:"uploadId"`
	AppID    string `json:"appId"`
	Redrive  bool   `json:"redrive,omitempty"`
}

// Delivery is a received message together with the handle used to ack it.
type Delivery struct {
	ID   string
	Body []byte
}

// Source yields deliveries. Receive blocks for at most block and may return
// an empty slice.
type Source interface {
	Receive(ctx context.Context, max int, block time.Duration) ([]Delivery, error)
	Ack(ctx context.Context, id string) error
}

// Publisher enqueues messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// Decode parses and validates a message body.
func Decode(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", common.ErrInvalidMessage, err)
	}
	if strings.TrimSpace(m.UploadID) == "" || strings.TrimSpace(m.AppID) == "" {
		return Message{}, fmt.Errorf("%w: uploadId and appId are required", common.ErrInvalidMessage)
	}
	return m, nil
}

func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}
