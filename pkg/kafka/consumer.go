package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
)

// handlerAttempts bounds how often one message is handed to the Handler
// before it is committed anyway.
const handlerAttempts = 3

// Handler processes one decoded event. Returning ErrDuplicate marks the
// event as already seen.
type Handler func(ctx context.Context, event *Event) error

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	// StartOffset is used when the group has no committed offset yet;
	// zero means kafka.FirstOffset.
	StartOffset int64
}

// messageReader is the part of *kafka.Reader the consumer loop drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds one topic through a Handler inside a consumer group,
// committing every message once it is handled or given up on.
type Consumer struct {
	reader    messageReader
	logger    *slog.Logger
	handler   Handler
	topic     string
	group     string
	backoff   time.Duration
	closeOnce sync.Once
	closeErr  error
}

func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	start := cfg.StartOffset
	if start == 0 {
		start = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: start,
	})
	return newConsumer(reader, cfg.Topic, cfg.GroupID, handler, logger)
}

func newConsumer(r messageReader, topic, group string, h Handler, l *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		logger:  l.With(slog.String("topic", topic), slog.String("group", group)),
		handler: h,
		topic:   topic,
		group:   group,
		backoff: 100 * time.Millisecond,
	}
}

// Start fetches until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")

	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			}
			continue
		}
		if !c.process(ctx, msg) {
			break
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed",
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
	return c.Close()
}

// process reports false only when ctx ended before the message was settled;
// the message is then left uncommitted for the next group member.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.count(outcomeUndecodable)
		c.logger.Error("dropping undecodable message",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return true
	}

	msgCtx := extractTraceContext(ctx, &msg)
	if event.CorrelationID != "" {
		msgCtx = logger.WithCorrelationID(msgCtx, event.CorrelationID)
	}
	log := c.logger.With(
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	start := time.Now()
	defer func() {
		handleDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())
	}()

	for attempt := 1; ; attempt++ {
		err := c.handler(msgCtx, event)
		switch {
		case err == nil:
			c.count(outcomeProcessed)
			return true
		case errors.Is(err, ErrDuplicate):
			c.count(outcomeDuplicate)
			return true
		case attempt == handlerAttempts:
			c.count(outcomeFailed)
			log.ErrorContext(msgCtx, "giving up on message", slog.String("error", err.Error()))
			return true
		}

		log.WarnContext(msgCtx, "handler failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		t := time.NewTimer(time.Duration(attempt) * c.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

func (c *Consumer) count(outcome string) {
	consumedTotal.WithLabelValues(c.topic, c.group, outcome).Inc()
}

// Close is idempotent.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.reader.Close() })
	return c.closeErr
}
