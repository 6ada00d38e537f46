package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNotifierBusy is returned when the async buffer is full or closed.
var ErrNotifierBusy = errors.New("notifier busy")

type notifyJob struct {
	to      string
	subject string
	body    string
}

// AsyncNotifier hands messages to a fixed pool of workers. Send never
// blocks; each delivery is bounded by timeout.
type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	jobs    chan notifyJob

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncNotifier(next Notifier, workers, buffer int, timeout time.Duration) *AsyncNotifier {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	a := &AsyncNotifier{
		next:    next,
		timeout: timeout,
		jobs:    make(chan notifyJob, buffer),
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.work()
	}
	return a
}

func (a *AsyncNotifier) Send(_ context.Context, to, subject, body string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrNotifierBusy
	}
	select {
	case a.jobs <- notifyJob{to: to, subject: subject, body: body}:
		return nil
	default:
		return ErrNotifierBusy
	}
}

// Close stops accepting messages and waits for queued ones to finish.
func (a *AsyncNotifier) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *AsyncNotifier) work() {
	defer a.wg.Done()
	for job := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Send(ctx, job.to, job.subject, job.body); err != nil {
			log.Printf("notify: delivery failed: %v", err)
		}
		cancel()
	}
}
