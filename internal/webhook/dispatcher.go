// Package webhook delivers targeting change events to HTTP endpoints with
// HMAC signatures and exponential-backoff retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hopekit/targeting/internal/events"
	"github.com/hopekit/targeting/internal/telemetry"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 1000

	// maxResponseBodySize limits how much of the response body is logged (1KB)
	maxResponseBodySize = 1024
)

var _ events.Publisher = (*Dispatcher)(nil)

// ErrQueueFull is returned by Publish when the event had to be dropped.
var ErrQueueFull = errors.New("webhook queue full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("webhook dispatcher closed")

// Dispatcher queues events and delivers them to every matching endpoint
// from a single background worker.
type Dispatcher struct {
	endpoints []Endpoint
	secret    string
	client    *http.Client
	logger    zerolog.Logger
	queue     chan events.Event
	done      chan struct{}
	// mu guards closed and the send on queue against a concurrent Close.
	mu     sync.RWMutex
	closed bool
	// backoff is the delay before the first retry; it doubles per attempt.
	backoff time.Duration
}

// NewDispatcher creates a dispatcher. Call Start to begin delivering.
func NewDispatcher(endpoints []Endpoint, secret string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoints: endpoints,
		secret:    secret,
		client:    &http.Client{Timeout: defaultTimeout},
		logger:    logger.With().Str("component", "webhook").Logger(),
		queue:     make(chan events.Event, queueSize),
		done:      make(chan struct{}),
		backoff:   time.Second,
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close stops accepting events and waits for queued deliveries to finish.
// It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return nil
}

// Publish queues event for delivery without blocking. It implements
// events.Publisher.
func (d *Dispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- event:
		d.logger.Debug().Str("event", event.Type).Str("targeting_id", event.Resource.ID).Int("queue_size", len(d.queue)).Msg("event queued")
		return nil
	default:
		d.logger.Error().Str("event", event.Type).Str("targeting_id", event.Resource.ID).Msg("queue full, dropping event")
		telemetry.Deliveries.WithLabelValues("webhook", "dropped").Inc()
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		for _, ep := range d.endpoints {
			if matches(ep, event) {
				d.deliverWithRetry(context.Background(), ep, event)
			}
		}
	}
}

// matches checks the endpoint's event-type and programme filters.
func matches(ep Endpoint, event events.Event) bool {
	if len(ep.Events) > 0 && !slices.Contains(ep.Events, event.Type) {
		return false
	}
	if len(ep.Programmes) > 0 && !slices.Contains(ep.Programmes, event.Resource.ProgrammeID) {
		return false
	}
	return true
}

// deliverWithRetry posts event to ep, retrying non-2xx answers and transport
// errors up to ep.MaxRetries times.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, ep Endpoint, event events.Event) bool {
	log := d.logger.With().Str("url", ep.URL).Str("event", event.Type).Str("event_id", event.ID).Logger()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event payload")
		telemetry.Deliveries.WithLabelValues("webhook", "failure").Inc()
		return false
	}

	signature := ComputeHMAC(payload, d.secret)
	deliveryID := uuid.NewString()
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	for attempt := 0; attempt <= ep.MaxRetries; attempt++ {
		start := time.Now()
		statusCode, body, err := d.post(ctx, ep.URL, timeout, payload, signature, event.Type, deliveryID)
		duration := time.Since(start)

		if err == nil && statusCode >= 200 && statusCode < 300 {
			log.Info().Int("status", statusCode).Dur("duration", duration).Int("attempt", attempt+1).Msg("delivery succeeded")
			telemetry.Deliveries.WithLabelValues("webhook", "success").Inc()
			return true
		}

		evt := log.Warn().Int("status", statusCode).Str("response", body).Int("attempt", attempt+1).Int("max_attempts", ep.MaxRetries+1)
		if err != nil {
			evt = evt.Err(err)
		}
		if attempt < ep.MaxRetries {
			wait := d.backoff << attempt
			evt.Dur("retry_in", wait).Msg("delivery failed")
			time.Sleep(wait)
		} else {
			evt.Msg("delivery failed permanently")
		}
	}

	telemetry.Deliveries.WithLabelValues("webhook", "failure").Inc()
	return false
}

func (d *Dispatcher) post(ctx context.Context, url string, timeout time.Duration, payload []byte, signature, eventType, deliveryID string) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderDelivery, deliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	return resp.StatusCode, string(body), nil
}
