// Package rabbitmq publishes diary activity to a work queue.
package rabbitmq

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// MessageType is the AMQP type set on every activity message.
const MessageType = "diary.activity"

// JSONPublisher is satisfied by *helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

type ActivityPublisher struct {
	pub JSONPublisher
}

func NewActivityPublisher(pub JSONPublisher) *ActivityPublisher {
	return &ActivityPublisher{pub: pub}
}

func (p *ActivityPublisher) Publish(ctx context.Context, a entity.Activity) error {
	return p.pub.PublishJSON(ctx, MessageType, a)
}
