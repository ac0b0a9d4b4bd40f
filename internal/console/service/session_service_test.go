package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xela07ax/userhub/internal/domain"
	"go.uber.org/zap"
)

// fakeSessionRepo — in-memory реализация SessionRepository. В отличие от
// SQL-реализации фильтрует активные только по флагу is_active, что
// позволяет проверить отсев просроченных на уровне сервиса.
type fakeSessionRepo struct {
	sessions map[string]*domain.Session
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeSessionRepo) ListUserSessions(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSessionRepo) RevokeSession(ctx context.Context, id string) (bool, error) {
	s := f.sessions[id]
	if s == nil || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (f *fakeSessionRepo) RevokeUserSessions(ctx context.Context, userID, excludeID string) ([]string, error) {
	var ids []string
	for id, s := range f.sessions {
		if s.UserID == userID && s.IsActive && id != excludeID {
			s.IsActive = false
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeSessionRepo) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func newTestSessionService(repo *fakeSessionRepo) *SessionService {
	// Redis и кэш отзыва в путях List/Cleanup не участвуют
	return NewSessionService(repo, nil, nil, zap.NewNop())
}

func TestSessionListHidesExpired(t *testing.T) {
	now := time.Now()
	repo := &fakeSessionRepo{sessions: map[string]*domain.Session{
		"fresh": {ID: "fresh", UserID: "u1", IsActive: true, ExpiresAt: now.Add(time.Hour)},
		// Просрочена, но флаг еще не снят: зачистка по расписанию не успела
		"stale": {ID: "stale", UserID: "u1", IsActive: true, ExpiresAt: now.Add(-time.Minute)},
	}}
	s := newTestSessionService(repo)
	owner := &domain.CustomClaims{UserID: "u1"}

	active, err := s.List(context.Background(), owner, "u1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != "fresh" {
		t.Fatalf("active list = %+v, want only the fresh session", active)
	}

	// Полный список (история) отдаёт и просроченные
	all, err := s.List(context.Background(), owner, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("full list has %d sessions, want 2", len(all))
	}
}

func TestSessionListForbidden(t *testing.T) {
	s := newTestSessionService(&fakeSessionRepo{sessions: map[string]*domain.Session{}})

	stranger := &domain.CustomClaims{UserID: "u2"}
	if _, err := s.List(context.Background(), stranger, "u1", true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	admin := &domain.CustomClaims{UserID: "u2", IsSuperuser: true}
	if _, err := s.List(context.Background(), admin, "u1", true); err != nil {
		t.Fatalf("superuser list failed: %v", err)
	}
}

func TestSessionCleanupRemovesExpired(t *testing.T) {
	now := time.Now()
	repo := &fakeSessionRepo{sessions: map[string]*domain.Session{
		"fresh": {ID: "fresh", UserID: "u1", IsActive: true, ExpiresAt: now.Add(time.Hour)},
		"old1":  {ID: "old1", UserID: "u1", IsActive: false, ExpiresAt: now.Add(-time.Hour)},
		"old2":  {ID: "old2", UserID: "u2", IsActive: true, ExpiresAt: now.Add(-time.Minute)},
	}}
	s := newTestSessionService(repo)

	n, err := s.Cleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("cleanup removed %d, want 2", n)
	}
	if repo.sessions["fresh"] == nil {
		t.Fatal("live session must survive cleanup")
	}
}
