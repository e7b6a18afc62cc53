package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/example/ec-cart/internal/logger"
	"github.com/segmentio/kafka-go"
)

// ErrSkip tells the consumer a message can never succeed; it is committed
// without retrying.
var ErrSkip = errors.New("skip message")

type MessageHandler func(ctx context.Context, key, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group. A message is committed
// once its handler succeeds or its retries run out.
type Consumer struct {
	reader   messageReader
	maxTries uint
	log      *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, maxTries uint, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, maxTries, log)
}

func newConsumer(r messageReader, maxTries uint, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	if maxTries == 0 {
		maxTries = 1
	}
	return &Consumer{reader: r, maxTries: maxTries, log: log.Component("KafkaConsumer")}
}

func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("error reading message", "error", err)
			continue
		}

		c.handle(ctx, msg, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("error committing message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) {
	op := func() (struct{}, error) {
		err := handler(ctx, msg.Key, msg.Value)
		if errors.Is(err, ErrSkip) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn("retrying message", "key", string(msg.Key), "offset", msg.Offset, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		c.log.Error("error handling message", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset, "error", err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
