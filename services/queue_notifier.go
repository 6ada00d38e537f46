package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultNotifyQueueKey = "formdrop:notifications"

// QueuedNotification is the wire format of a queued message.
type QueuedNotification struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Attempts int       `json:"attempts"`
	QueuedAt time.Time `json:"queuedAt"`
}

// QueueNotifier pushes messages onto a redis list for QueueWorker.
type QueueNotifier struct {
	client *redis.Client
	key    string
}

func NewQueueNotifier(client *redis.Client, key string) *QueueNotifier {
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultNotifyQueueKey
	}
	return &QueueNotifier{client: client, key: key}
}

func (q *QueueNotifier) Send(ctx context.Context, to, subject, body string) error {
	return q.push(ctx, QueuedNotification{
		To:       to,
		Subject:  subject,
		Body:     body,
		QueuedAt: time.Now().UTC(),
	})
}

func (q *QueueNotifier) push(ctx context.Context, msg QueuedNotification) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// QueueWorker pops queued notifications and delivers them.
type QueueWorker struct {
	queue       *QueueNotifier
	notifier    Notifier
	block       time.Duration
	sendTimeout time.Duration
	maxAttempts int
}

type QueueWorkerConfig struct {
	Block       time.Duration
	SendTimeout time.Duration
	MaxAttempts int
}

func NewQueueWorker(queue *QueueNotifier, notifier Notifier, cfg QueueWorkerConfig) *QueueWorker {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &QueueWorker{
		queue:       queue,
		notifier:    notifier,
		block:       cfg.Block,
		sendTimeout: cfg.SendTimeout,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Run processes messages until ctx is cancelled.
func (w *QueueWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if _, err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("notify-worker: %v", err)
			time.Sleep(time.Second)
		}
	}
}

// ProcessOne waits up to the block interval for a message and delivers it.
// It reports whether a message was taken off the queue.
func (w *QueueWorker) ProcessOne(ctx context.Context) (bool, error) {
	res, err := w.queue.client.BRPop(ctx, w.block, w.queue.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pop notification: %w", err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("pop notification: unexpected reply %v", res)
	}

	var msg QueuedNotification
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		log.Printf("notify-worker: dropping malformed message: %v", err)
		return true, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	err = w.notifier.Send(sendCtx, msg.To, msg.Subject, msg.Body)
	cancel()
	if err == nil {
		return true, nil
	}

	msg.Attempts++
	if msg.Attempts >= w.maxAttempts {
		log.Printf("notify-worker: giving up after %d attempts: %v", msg.Attempts, err)
		return true, nil
	}
	log.Printf("notify-worker: delivery failed (attempt %d), requeueing: %v", msg.Attempts, err)
	if perr := w.queue.push(ctx, msg); perr != nil {
		return true, fmt.Errorf("requeue notification: %w", perr)
	}
	return true, nil
}
