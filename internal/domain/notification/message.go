// internal/domain/notification/message.go
package notification

import (
	"encoding/json"
	"fmt"
)

// DefaultBody is delivered when a message arrives without text.
const DefaultBody = "Your application status has been updated."

// Message is a fire-and-forget instruction to contact a candidate. The JSON
// field names are the queue wire format.
type Message struct {
	CandidateEmail string `json:"candidate_email"`
	Body           string `json:"msg"`
	ApplicationID  string `json:"application_id,omitempty"`
	JobID          int64  `json:"job_id,omitempty"`
	Stage          string `json:"stage,omitempty"`
}

// Text returns the body to deliver, falling back to DefaultBody.
func (m Message) Text() string {
	if m.Body == "" {
		return DefaultBody
	}
	return m.Body
}

func (m Message) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("error encoding notification message: %w", err)
	}
	return string(b), nil
}

func Decode(body string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return Message{}, fmt.Errorf("error decoding notification message: %w", err)
	}
	return m, nil
}

// Envelope is a message as received from the queue, before it is decoded.
// Handle is whatever the queue needs to acknowledge it.
type Envelope struct {
	ID     string
	Handle string
	Body   string
}
