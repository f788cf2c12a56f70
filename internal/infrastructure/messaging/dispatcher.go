package messaging

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// Registers named handlers on the bus with a middleware chain and retry.
// Events whose handlers keep failing land in the dead letter queue for
// later inspection instead of being dropped silently.
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher wires named event handlers onto an event bus.
type Dispatcher struct {
	bus         shared.EventBus
	middlewares []Middleware
	retry       RetryConfig
	dlq         *DeadLetterQueue
	logger      *slog.Logger
	mu          sync.Mutex
}

// RetryConfig controls handler retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (1 = no retry).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier grows the delay between attempts.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	Bus             shared.EventBus
	Retry           RetryConfig
	DeadLetterLimit int
	Logger          *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.DeadLetterLimit <= 0 {
		config.DeadLetterLimit = 100
	}

	return &Dispatcher{
		bus:    config.Bus,
		retry:  config.Retry,
		dlq:    NewDeadLetterQueue(config.DeadLetterLimit),
		logger: config.Logger,
	}
}

// Middleware wraps an event handler.
type Middleware func(shared.EventHandler) shared.EventHandler

// Use appends a middleware to the chain. Middlewares apply to handlers
// registered after the call.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// Register subscribes a named handler for an event type, wrapped in the
// middleware chain and the retry loop.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	wrapped := d.wrap(name, handler)

	if err := d.bus.Subscribe(eventType, wrapped); err != nil {
		return fmt.Errorf("dispatcher: register %s for %s: %w", name, eventType, err)
	}

	d.logger.Debug("handler registered", "handler", name, "event_type", eventType)
	return nil
}

// RegisterAll subscribes a named handler for every event.
func (d *Dispatcher) RegisterAll(name string, handler shared.EventHandler) error {
	wrapped := d.wrap(name, handler)

	if err := d.bus.SubscribeAll(wrapped); err != nil {
		return fmt.Errorf("dispatcher: register %s: %w", name, err)
	}

	d.logger.Debug("global handler registered", "handler", name)
	return nil
}

// DeadLetterQueue returns the queue of events that exhausted retries.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.dlq
}

func (d *Dispatcher) wrap(name string, handler shared.EventHandler) shared.EventHandler {
	d.mu.Lock()
	chain := handler
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		chain = d.middlewares[i](chain)
	}
	d.mu.Unlock()

	return func(event shared.Event) error {
		var lastErr error
		backoff := d.retry.InitialBackoff

		for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
			if lastErr = chain(event); lastErr == nil {
				return nil
			}

			if attempt < d.retry.MaxAttempts {
				time.Sleep(backoff)
				backoff = time.Duration(float64(backoff) * d.retry.BackoffMultiplier)
			}
		}

		d.logger.Error("handler exhausted retries",
			"handler", name,
			"event_type", event.EventType(),
			"attempts", d.retry.MaxAttempts,
			"error", lastErr,
		)
		d.dlq.Add(DeadLetterEntry{
			Handler:  name,
			Event:    event,
			Error:    lastErr.Error(),
			FailedAt: time.Now().UTC(),
			Attempts: d.retry.MaxAttempts,
		})

		return lastErr
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic",
						"event_type", event.EventType(),
						"panic", r,
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs each handler invocation with its duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			if err != nil {
				logger.Error("event handled with error",
					"event_type", event.EventType(),
					"duration", time.Since(start),
					"error", err,
				)
			} else {
				logger.Debug("event handled",
					"event_type", event.EventType(),
					"duration", time.Since(start),
				)
			}
			return err
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry records an event whose handler exhausted retries.
type DeadLetterEntry struct {
	Handler  string
	Event    shared.Event
	Error    string
	FailedAt time.Time
	Attempts int
}

// DeadLetterQueue is a bounded in-memory queue of failed events.
// When full, the oldest entry is evicted.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a dead letter queue with the given capacity.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{
		entries: make([]DeadLetterEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest when at capacity.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of the current entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size returns the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear empties the queue.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[:0]
}
