package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	model "github.com/lumohealth/companion/backend/internal/model/audit"
	"github.com/lumohealth/companion/backend/internal/model/safety"
	audit "github.com/lumohealth/companion/backend/internal/service/audit"
)

// flakySink fails the first n emergency appends, then delegates to a
// MemorySink.
type flakySink struct {
	*audit.MemorySink
	mu       sync.Mutex
	failures int
	attempts int
}

func (s *flakySink) AppendEmergency(ctx context.Context, rec model.EmergencyLog) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failures
	s.mu.Unlock()
	if fail {
		return errors.New("sink unavailable")
	}
	return s.MemorySink.AppendEmergency(ctx, rec)
}

func TestRecordEmergencyIsSynchronous(t *testing.T) {
	sink := audit.NewMemorySink()
	rec := audit.NewRecorder(sink)
	defer rec.Close()

	err := rec.RecordEmergency(context.Background(), model.EmergencyLog{
		SessionID:    "sess-1",
		Category:     "cardiac",
		UrgencyLevel: safety.UrgencyImmediate,
	})
	if err != nil {
		t.Fatalf("RecordEmergency err: %v", err)
	}

	// Visible immediately, no draining involved.
	records := sink.EmergencyRecords()
	if len(records) != 1 {
		t.Fatalf("expected 1 record right after the call, got %d", len(records))
	}
	if records[0].ID == "" {
		t.Fatal("record should be assigned an id")
	}
	if records[0].Timestamp.IsZero() {
		t.Fatal("record should be assigned a timestamp")
	}
}

func TestRecordEmergencyRetries(t *testing.T) {
	sink := &flakySink{MemorySink: audit.NewMemorySink(), failures: 2}
	rec := audit.NewRecorder(sink)
	defer rec.Close()

	if err := rec.RecordEmergency(context.Background(), model.EmergencyLog{SessionID: "sess-1"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := len(sink.EmergencyRecords()); got != 1 {
		t.Fatalf("expected 1 record after retries, got %d", got)
	}
}

func TestRecordEmergencyGivesUp(t *testing.T) {
	sink := &flakySink{MemorySink: audit.NewMemorySink(), failures: 10}
	rec := audit.NewRecorder(sink)
	defer rec.Close()

	if err := rec.RecordEmergency(context.Background(), model.EmergencyLog{SessionID: "sess-1"}); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
}

func TestRecordSafetyIsAsynchronous(t *testing.T) {
	sink := audit.NewMemorySink()
	rec := audit.NewRecorder(sink)

	if err := rec.RecordSafety(model.SafetyLog{
		SessionID: "sess-1",
		Action:    model.ActionBlocked,
		Severity:  safety.SeverityHigh,
	}); err != nil {
		t.Fatalf("RecordSafety err: %v", err)
	}
	if err := rec.RecordMetrics(model.QueryMetrics{SessionID: "sess-1", ResponseTimeMs: 120}); err != nil {
		t.Fatalf("RecordMetrics err: %v", err)
	}

	// Close drains the queue before returning.
	rec.Close()

	if got := len(sink.SafetyRecords()); got != 1 {
		t.Fatalf("expected 1 safety record after drain, got %d", got)
	}
	if got := len(sink.MetricsRecords()); got != 1 {
		t.Fatalf("expected 1 metrics record after drain, got %d", got)
	}
}

func TestRecorderRejectsAfterClose(t *testing.T) {
	rec := audit.NewRecorder(audit.NewMemorySink())
	rec.Close()

	if err := rec.RecordSafety(model.SafetyLog{SessionID: "sess-1"}); !errors.Is(err, audit.ErrRecorderClosed) {
		t.Fatalf("expected ErrRecorderClosed, got %v", err)
	}
	if err := rec.RecordMetrics(model.QueryMetrics{SessionID: "sess-1"}); !errors.Is(err, audit.ErrRecorderClosed) {
		t.Fatalf("expected ErrRecorderClosed, got %v", err)
	}
}

func TestRecorderCloseRacesWithWriters(t *testing.T) {
	sink := audit.NewMemorySink()
	rec := audit.NewRecorder(sink)

	// Writers keep recording while Close runs. A late record may be
	// rejected or dropped, but it must never panic the writer.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				err := rec.RecordSafety(model.SafetyLog{SessionID: "sess-r", Action: model.ActionAllowed})
				if err != nil && !errors.Is(err, audit.ErrRecorderClosed) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}

	rec.Close()
	wg.Wait()

	// After Close has returned, rejection is deterministic.
	for i := 0; i < 20; i++ {
		if err := rec.RecordSafety(model.SafetyLog{SessionID: "sess-r"}); !errors.Is(err, audit.ErrRecorderClosed) {
			t.Fatalf("expected ErrRecorderClosed after Close, got %v", err)
		}
	}
}

func TestRecorderConcurrentWriters(t *testing.T) {
	sink := audit.NewMemorySink()
	rec := audit.NewRecorder(sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = rec.RecordSafety(model.SafetyLog{SessionID: "sess-c", Action: model.ActionAllowed})
			}
		}()
	}
	wg.Wait()
	rec.Close()

	// Queue capacity comfortably exceeds 80 records, so nothing drops.
	if got := len(sink.SafetyRecords()); got != 80 {
		t.Fatalf("expected 80 records, got %d", got)
	}
}
