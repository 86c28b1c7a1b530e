package audit

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumohealth/companion/backend/internal/model/audit"
)

// Sink is the analytics collaborator the pipeline appends records to. All
// records are append-only; implementations must be safe for concurrent
// writers.
type Sink interface {
	AppendSafety(ctx context.Context, rec audit.SafetyLog) error
	AppendEmergency(ctx context.Context, rec audit.EmergencyLog) error
	AppendMetrics(ctx context.Context, rec audit.QueryMetrics) error
}

// MemorySink keeps records in process. It backs tests and single-node
// deployments; a remote analytics sink satisfies the same interface.
type MemorySink struct {
	mu        sync.RWMutex
	safety    []audit.SafetyLog
	emergency []audit.EmergencyLog
	metrics   []audit.QueryMetrics
}

// NewMemorySink returns an empty in-process sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) AppendSafety(_ context.Context, rec audit.SafetyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safety = append(s.safety, rec)
	return nil
}

func (s *MemorySink) AppendEmergency(_ context.Context, rec audit.EmergencyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergency = append(s.emergency, rec)
	return nil
}

func (s *MemorySink) AppendMetrics(_ context.Context, rec audit.QueryMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, rec)
	return nil
}

// SafetyRecords returns a copy of the stored safety logs.
func (s *MemorySink) SafetyRecords() []audit.SafetyLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.SafetyLog(nil), s.safety...)
}

// EmergencyRecords returns a copy of the stored emergency logs.
func (s *MemorySink) EmergencyRecords() []audit.EmergencyLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.EmergencyLog(nil), s.emergency...)
}

// MetricsRecords returns a copy of the stored query metrics.
func (s *MemorySink) MetricsRecords() []audit.QueryMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.QueryMetrics(nil), s.metrics...)
}

// ErrRecorderClosed is returned for appends after Close.
var ErrRecorderClosed = errors.New("audit recorder closed")

// Recorder wraps a Sink with the delivery guarantees the pipeline needs:
// emergency records are written synchronously with bounded retry and must
// land before the caller proceeds; safety and metrics records are queued
// and drained by a background worker, best-effort relative to response
// delivery.
type Recorder struct {
	sink    Sink
	queue   chan queued
	done    chan struct{}
	retries int

	closeOnce sync.Once
	closed    chan struct{}
}

type queued struct {
	safety  *audit.SafetyLog
	metrics *audit.QueryMetrics
}

// NewRecorder starts the drain worker over the given sink.
func NewRecorder(sink Sink) *Recorder {
	r := &Recorder{
		sink:    sink,
		queue:   make(chan queued, 256),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
		retries: 3,
	}
	go r.drain()
	return r
}

// RecordEmergency writes synchronously, retrying with short backoff. The
// emergency response must not be returned before this lands.
func (r *Recorder) RecordEmergency(ctx context.Context, rec audit.EmergencyLog) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	var err error
	for attempt := 0; attempt < r.retries; attempt++ {
		if err = r.sink.AppendEmergency(ctx, rec); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(50<<attempt) * time.Millisecond):
		}
	}
	return err
}

// RecordSafety queues a safety log for asynchronous delivery.
func (r *Recorder) RecordSafety(rec audit.SafetyLog) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return r.enqueue(queued{safety: &rec}, rec.SessionID)
}

// RecordMetrics queues per-turn metrics for asynchronous delivery.
func (r *Recorder) RecordMetrics(rec audit.QueryMetrics) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return r.enqueue(queued{metrics: &rec}, rec.SessionID)
}

// enqueue hands one record to the drain worker. The queue channel is never
// closed, so a record racing Close can at worst be dropped after the worker
// has exited; it cannot panic the producer.
func (r *Recorder) enqueue(item queued, sessionID string) error {
	select {
	case <-r.closed:
		return ErrRecorderClosed
	default:
	}

	select {
	case r.queue <- item:
		return nil
	default:
		// Queue full: drop rather than stall response delivery.
		log.Printf("[audit] queue full, dropping record session=%s", sessionID)
		return nil
	}
}

// Close stops intake, drains what is queued and waits for the worker.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for {
		select {
		case item := <-r.queue:
			r.deliver(item)
		case <-r.closed:
			// Final sweep of whatever intake won the race.
			for {
				select {
				case item := <-r.queue:
					r.deliver(item)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) deliver(item queued) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	switch {
	case item.safety != nil:
		if err := r.sink.AppendSafety(ctx, *item.safety); err != nil {
			log.Printf("[audit] safety log append failed: %v", err)
		}
	case item.metrics != nil:
		if err := r.sink.AppendMetrics(ctx, *item.metrics); err != nil {
			log.Printf("[audit] metrics append failed: %v", err)
		}
	}
}
