package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultLogPath is where the consumer appends one line per seating run.
var DefaultLogPath = filepath.Join("logs", "seating.log")

// Consumer drains the seating.allocated queue into an append-only audit log.
type Consumer struct {
	URL     string
	LogPath string
	Logger  *zap.Logger
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Broker failures are retried with exponential backoff capped
// at 30s, so the HTTP server keeps serving while the broker is down.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("seating consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warn("seating consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("seating consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(SeatingQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(SeatingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.Logger.Error("seating consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // poison messages are dropped, not requeued
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one event and appends its audit line to LogPath.
func (c *Consumer) Handle(body []byte) error {
	var ev SeatingAllocatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	path := c.LogPath
	if path == "" {
		path = DefaultLogPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders the single-line audit record of a seating event.
func FormatLine(ev SeatingAllocatedEvent) string {
	venues := make([]string, 0, len(ev.Venues))
	for _, v := range ev.Venues {
		fill := fmt.Sprintf("%s:%d/%d", v.Name, v.Used, v.Capacity)
		if v.Overflow > 0 {
			fill += fmt.Sprintf("+%d", v.Overflow)
		}
		venues = append(venues, fill)
	}
	return fmt.Sprintf("[%s] Seating allocated | run_id=%s | exam_id=%d | mode=%s | placed=%d | overflow=%d | capacity=%d | adjacent_conflicts=%d | row_errors=%d | by=%q | venues=[%s]\n",
		ev.AllocatedAt, ev.RunID, ev.ExamID, ev.Mode, ev.Placed, ev.Overflow, ev.Capacity,
		ev.AdjacentConflicts, ev.RowErrors, ev.AllocatedBy, strings.Join(venues, ","))
}
