package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/memledger/internal/domain"
	"github.com/iho/memledger/internal/usecase"
)

// Publisher delivers a notification to an external system.
type Publisher interface {
	Publish(ctx context.Context, notification *domain.Notification) error
}

// Observer is told about the fate of every notification.
type Observer interface {
	NotificationDelivered()
	NotificationFailed()
	NotificationDropped()
}

// Config for Dispatcher.
type Config struct {
	Publisher Publisher
	IDGen     usecase.IDGenerator
	Observer  Observer
	Logger    zerolog.Logger

	QueueSize  int           // Pending notifications before new ones are dropped
	Workers    int           // Concurrent deliveries
	MaxRetries uint64        // Retries after the first failed attempt
	RetryDelay time.Duration // Initial backoff interval
	Timeout    time.Duration // Per-attempt publish timeout

	BreakerFailures   uint32        // Consecutive failures that open the breaker
	BreakerOpenPeriod time.Duration // Time the breaker stays open
}

// Dispatcher is an asynchronous usecase.Notifier. Notify never blocks: it queues
// the notification and returns, and worker goroutines deliver it.
type Dispatcher struct {
	publisher Publisher
	idGen     usecase.IDGenerator
	observer  Observer
	logger    zerolog.Logger
	breaker   *gobreaker.CircuitBreaker

	workers    int
	maxRetries uint64
	retryDelay time.Duration
	timeout    time.Duration

	mu      sync.RWMutex
	queue   chan *domain.Notification
	closed  bool
	started bool
	wg      sync.WaitGroup
}

var _ usecase.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 50 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenPeriod <= 0 {
		cfg.BreakerOpenPeriod = 30 * time.Second
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	d := &Dispatcher{
		publisher:  cfg.Publisher,
		idGen:      cfg.IDGen,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		queue:      make(chan *domain.Notification, cfg.QueueSize),
	}

	failures := cfg.BreakerFailures
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notification circuit breaker state changed")
		},
	})

	return d
}

// Notify queues a notification for account. When the queue is full or the
// dispatcher is stopped the notification is dropped.
func (d *Dispatcher) Notify(ctx context.Context, account *domain.Account, message string) {
	notification := &domain.Notification{
		AccountID: account.ID(),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if d.idGen != nil {
		notification.ID = d.idGen.Generate()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(notification, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- notification:
	default:
		d.drop(notification, "queue full")
	}
}

// Start launches the workers. Deliveries inherit ctx values but not its
// cancellation so queued notifications are still delivered during Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for range d.workers {
		d.wg.Add(1)
		go d.run(base)
	}

	d.logger.Info().
		Int("workers", d.workers).
		Int("queue_size", cap(d.queue)).
		Msg("notification dispatcher started")
}

// Stop stops accepting notifications and waits until the queue is drained.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for notification := range d.queue {
			d.drop(notification, "dispatcher never started")
		}
	}

	d.wg.Wait()
	d.logger.Info().Msg("notification dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for notification := range d.queue {
		d.deliver(ctx, notification)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, notification *domain.Notification) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryDelay
	b.MaxInterval = 20 * d.retryDelay
	b.MaxElapsedTime = 0

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return d.publishOnce(ctx, notification)
	}, backoff.WithMaxRetries(b, d.maxRetries))

	if err != nil {
		d.observer.NotificationFailed()
		d.logger.Error().
			Err(err).
			Str("notification_id", notification.ID).
			Str("account_id", notification.AccountID).
			Int("attempts", attempts).
			Msg("notification delivery failed")
		return
	}

	d.observer.NotificationDelivered()
	d.logger.Debug().
		Str("notification_id", notification.ID).
		Str("account_id", notification.AccountID).
		Msg("notification delivered")
}

func (d *Dispatcher) publishOnce(ctx context.Context, notification *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.breaker.Execute(func() (any, error) {
		return nil, d.publisher.Publish(ctx, notification)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return backoff.Permanent(fmt.Errorf("publisher unavailable: %w", err))
	}

	return err
}

func (d *Dispatcher) drop(notification *domain.Notification, reason string) {
	d.observer.NotificationDropped()
	d.logger.Warn().
		Str("account_id", notification.AccountID).
		Str("reason", reason).
		Msg("notification dropped")
}

type nopObserver struct{}

func (nopObserver) NotificationDelivered() {}
func (nopObserver) NotificationFailed()    {}
func (nopObserver) NotificationDropped()   {}
