// internal/domain/notification/queue.go
package notification

import "context"

// Producer enqueues messages on a durable at-least-once channel. A nil error
// means the channel has accepted the message.
type Producer interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Consumer hands out bounded batches of queued messages. Messages that are not
// acknowledged are redelivered later.
type Consumer interface {
	ReceiveBatch(ctx context.Context) ([]Envelope, error)
	Ack(ctx context.Context, envs []Envelope) error
}

// Sender delivers one message to its destination address.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Alerter pushes short operational alerts to whoever watches degraded paths.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}
