package obs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// memorySink накапливает доставленные события
type memorySink struct {
	name string
	mu   sync.Mutex
	got  []Event

	// Опциональные режимы отказа
	failErr   error
	panicking bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Write(ctx context.Context, e Event) error {
	if s.panicking {
		panic("sink exploded")
	}
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
	return nil
}

func (s *memorySink) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.got))
	copy(out, s.got)
	return out
}

func validEvent(id string) Event {
	return Event{
		Level:     LevelInfo,
		Source:    "test",
		Message:   "m",
		RequestID: id,
		Category:  CategoryAPIPerformance,
	}
}

func TestWriterDeliversToAllSinks(t *testing.T) {
	a := &memorySink{name: "a"}
	b := &memorySink{name: "b"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, a, b)
	w.Start()

	for i := 0; i < 10; i++ {
		w.Publish(validEvent(NewRequestID()))
	}
	w.Stop()

	if len(a.events()) != 10 || len(b.events()) != 10 {
		t.Fatalf("delivery incomplete: a=%d b=%d", len(a.events()), len(b.events()))
	}
}

func TestWriterPerSinkOrdering(t *testing.T) {
	s := &memorySink{name: "ordered"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, s)
	w.Start()

	ids := []string{"r-1", "r-2", "r-3", "r-4", "r-5"}
	for _, id := range ids {
		w.Publish(validEvent(id))
	}
	w.Stop()

	got := s.events()
	if len(got) != len(ids) {
		t.Fatalf("expected %d events, got %d", len(ids), len(got))
	}
	for i, id := range ids {
		if got[i].RequestID != id {
			t.Fatalf("order broken at %d: got %s, want %s", i, got[i].RequestID, id)
		}
	}
}

func TestWriterFailingSinkDoesNotAffectOthers(t *testing.T) {
	bad := &memorySink{name: "bad", failErr: errors.New("connection refused")}
	good := &memorySink{name: "good"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, bad, good)
	w.Start()

	for i := 0; i < 5; i++ {
		w.Publish(validEvent(NewRequestID()))
	}
	w.Stop()

	if len(good.events()) != 5 {
		t.Fatalf("healthy sink starved: got %d events", len(good.events()))
	}
}

func TestWriterPanickingSinkIsIsolated(t *testing.T) {
	bad := &memorySink{name: "bad", panicking: true}
	good := &memorySink{name: "good"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, bad, good)
	w.Start()

	w.Publish(validEvent("r-1"))
	w.Publish(validEvent("r-2"))
	w.Stop()

	if len(good.events()) != 2 {
		t.Fatalf("panic leaked across sinks: got %d events", len(good.events()))
	}
}

func TestWriterDropsMalformedEvent(t *testing.T) {
	s := &memorySink{name: "s"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, s)
	w.Start()

	w.Publish(Event{Level: LevelInfo, Category: CategoryApp}) // нет request_id
	w.Publish(validEvent("ok"))
	w.Stop()

	got := s.events()
	if len(got) != 1 || got[0].RequestID != "ok" {
		t.Fatalf("malformed event was not dropped: %+v", got)
	}
}

func TestWriterStampsTimestamp(t *testing.T) {
	s := &memorySink{name: "s"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, s)
	w.Start()

	w.Publish(validEvent("r-1")) // Timestamp нулевой — writer проставит сам
	w.Stop()

	got := s.events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	ts := got[0].Timestamp
	if ts.IsZero() {
		t.Fatal("timestamp not stamped")
	}
	if ts.Location() != time.UTC {
		t.Fatalf("timestamp not UTC: %v", ts.Location())
	}
	if ts.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("timestamp not truncated to milliseconds: %v", ts)
	}
}

func TestWriterRejectsAfterStop(t *testing.T) {
	s := &memorySink{name: "s"}
	w := NewWriter(zap.NewNop(), NewMetrics(nil), time.Second, s)
	w.Start()
	w.Stop()

	// Не должно паниковать записью в закрытый канал
	w.Publish(validEvent("late"))

	if len(s.events()) != 0 {
		t.Fatal("event delivered after Stop")
	}
}
