package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

const defaultHandleTimeout = 15 * time.Second

// ActivityHandler processes one activity event.
type ActivityHandler func(ctx context.Context, a entity.Activity) error

// Consumer feeds activity deliveries to a handler. Malformed or foreign
// messages are dropped. A failed message is requeued once, then dropped.
type Consumer struct {
	Handle  ActivityHandler
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewConsumer(handle ActivityHandler, logger *logrus.Logger) *Consumer {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &Consumer{Handle: handle, Logger: logger, Timeout: defaultHandleTimeout}
}

// Run processes deliveries until the channel closes or ctx is done.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	log := c.Logger.WithFields(logrus.Fields{"message_id": d.MessageId, "type": d.Type})

	if d.Type != "" && d.Type != MessageType {
		log.Warn("dropping message of unknown type")
		_ = d.Nack(false, false)
		return
	}
	var a entity.Activity
	if err := json.Unmarshal(d.Body, &a); err != nil || a.Kind == "" {
		log.WithError(err).Warn("dropping malformed activity")
		_ = d.Nack(false, false)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	if err := c.Handle(hctx, a); err != nil {
		requeue := !d.Redelivered
		log.WithError(err).WithFields(logrus.Fields{"kind": a.Kind, "requeue": requeue}).Error("activity handling failed")
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
