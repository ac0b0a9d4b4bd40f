package obs

import (
	"context"
	"sync"
	"testing"
)

func TestNewRequestIDUnique(t *testing.T) {
	const n = 1000
	var mu sync.Mutex
	seen := make(map[string]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewRequestID()
			if id == "" {
				t.Error("empty request id")
				return
			}
			mu.Lock()
			if seen[id] {
				t.Errorf("duplicate request id: %s", id)
			}
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFrom(ctx); got != "" {
		t.Fatalf("expected empty id from bare context, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestIDFrom(ctx); got != "req-123" {
		t.Fatalf("expected req-123, got %q", got)
	}
}

func TestUserTrackingVisibleToParent(t *testing.T) {
	// Interceptor ставит ячейку, auth-middleware пишет в дочернем контексте,
	// перехватчик должен увидеть значение через свою копию контекста
	parent := WithUserTracking(context.Background())
	child := context.WithValue(parent, ctxKey("other"), "x")

	SetUserID(child, "user-42")

	if got := UserIDFrom(parent); got != "user-42" {
		t.Fatalf("expected user-42 visible from parent context, got %q", got)
	}
}

func TestSetUserIDWithoutTrackingIsNoop(t *testing.T) {
	ctx := context.Background()
	SetUserID(ctx, "user-1") // не должно паниковать
	if got := UserIDFrom(ctx); got != "" {
		t.Fatalf("expected empty user id, got %q", got)
	}
}

func TestLevelAtLeast(t *testing.T) {
	cases := []struct {
		level Level
		min   Level
		want  bool
	}{
		{LevelDebug, LevelInfo, false},
		{LevelInfo, LevelInfo, true},
		{LevelError, LevelWarn, true},
		{LevelCritical, LevelError, true},
		{LevelWarn, LevelError, false},
	}
	for _, c := range cases {
		if got := c.level.AtLeast(c.min); got != c.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", c.level, c.min, got, c.want)
		}
	}
}

func TestEventValidate(t *testing.T) {
	base := Event{
		Level:     LevelInfo,
		RequestID: "r-1",
		Category:  CategoryAPIPerformance,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	noID := base
	noID.RequestID = ""
	if err := noID.Validate(); err != ErrMissingRequestID {
		t.Fatalf("expected ErrMissingRequestID, got %v", err)
	}

	noCat := base
	noCat.Category = ""
	if err := noCat.Validate(); err != ErrMissingCategory {
		t.Fatalf("expected ErrMissingCategory, got %v", err)
	}

	badLevel := base
	badLevel.Level = Level("TRACE")
	if err := badLevel.Validate(); err != ErrInvalidLevel {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}

	negDur := base
	negDur.DurationMS = -5
	if err := negDur.Validate(); err != ErrNegativeDuration {
		t.Fatalf("expected ErrNegativeDuration, got %v", err)
	}
}
