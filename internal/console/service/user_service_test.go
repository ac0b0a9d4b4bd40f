package service

import (
	"context"
	"errors"
	"testing"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/repository/postgres"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserRepo — in-memory реализация UserRepository для unit-тестов
type fakeUserRepo struct {
	users      map[string]*domain.User
	byUsername map[string]*domain.User
	types      map[string]*domain.UserType // имя -> тип
	conflict   bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]*domain.User),
		types:      make(map[string]*domain.UserType),
	}
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return f.byUsername[username], nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	if f.conflict || f.byUsername[u.Username] != nil {
		return postgres.ErrConflict
	}
	f.users[u.ID] = u
	f.byUsername[u.Username] = u
	return nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate, newHash string) (*domain.User, error) {
	u := f.users[id]
	if u == nil {
		return nil, nil
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.UserTypeID != nil {
		u.UserTypeID = *upd.UserTypeID
	}
	if newHash != "" {
		u.PasswordHash = newHash
	}
	return u, nil
}

func (f *fakeUserRepo) ListUserTypes(ctx context.Context) ([]*domain.UserType, error) {
	var out []*domain.UserType
	for _, ut := range f.types {
		out = append(out, ut)
	}
	return out, nil
}

func (f *fakeUserRepo) CreateUserType(ctx context.Context, ut *domain.UserType) error {
	if f.types[ut.Name] != nil {
		return postgres.ErrConflict
	}
	f.types[ut.Name] = ut
	return nil
}

func (f *fakeUserRepo) DeleteUser(ctx context.Context, id string, hard bool) (bool, error) {
	if f.users[id] == nil {
		return false, nil
	}
	if hard {
		delete(f.users, id)
	} else {
		f.users[id].IsDeleted = true
	}
	return true, nil
}

func newTestUserService(repo *fakeUserRepo) *UserService {
	// MinCost, чтобы тесты не жгли CPU на bcrypt
	return NewUserService(repo, bcrypt.MinCost, zap.NewNop())
}

func TestUserCreateValidation(t *testing.T) {
	s := newTestUserService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		in   domain.UserCreate
	}{
		{"short username", domain.UserCreate{Username: "ab", Email: "a@b.io", Password: "longenough"}},
		{"bad email", domain.UserCreate{Username: "alice", Email: "not-an-email", Password: "longenough"}},
		{"short password", domain.UserCreate{Username: "alice", Email: "a@b.io", Password: "short"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := s.Create(ctx, c.in); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUserCreateHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	s := newTestUserService(repo)

	u, err := s.Create(context.Background(), domain.UserCreate{
		Username: "alice", Email: "alice@example.com", Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash == "s3cret-pass" || u.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if !u.IsActive {
		t.Fatal("new user must be active")
	}
}

func TestUserCreateConflict(t *testing.T) {
	repo := newFakeUserRepo()
	s := newTestUserService(repo)
	ctx := context.Background()

	in := domain.UserCreate{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"}
	if _, err := s.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, in); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserUpdatePermissions(t *testing.T) {
	repo := newFakeUserRepo()
	s := newTestUserService(repo)
	ctx := context.Background()

	u, err := s.Create(ctx, domain.UserCreate{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatal(err)
	}

	self := &domain.CustomClaims{UserID: u.ID}
	other := &domain.CustomClaims{UserID: "someone-else"}
	admin := &domain.CustomClaims{UserID: "admin", IsSuperuser: true}

	newMail := "new@example.com"
	if _, err := s.Update(ctx, other, u.ID, domain.UserUpdate{Email: &newMail}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign update allowed: %v", err)
	}

	// is_active может менять только суперпользователь
	inactive := false
	if _, err := s.Update(ctx, self, u.ID, domain.UserUpdate{IsActive: &inactive}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self-deactivation allowed: %v", err)
	}
	if _, err := s.Update(ctx, admin, u.ID, domain.UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("admin deactivation failed: %v", err)
	}

	got, err := s.Update(ctx, self, u.ID, domain.UserUpdate{Email: &newMail})
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != newMail {
		t.Fatalf("email not updated: %s", got.Email)
	}
}

func TestUserTypeAssignment(t *testing.T) {
	repo := newFakeUserRepo()
	s := newTestUserService(repo)
	ctx := context.Background()

	u, err := s.Create(ctx, domain.UserCreate{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatal(err)
	}

	self := &domain.CustomClaims{UserID: u.ID}
	admin := &domain.CustomClaims{UserID: "admin", IsSuperuser: true}

	ut, err := s.CreateUserType(ctx, "customer", "обычный клиент")
	if err != nil {
		t.Fatal(err)
	}

	// Тип аккаунта назначает только суперпользователь
	if _, err := s.Update(ctx, self, u.ID, domain.UserUpdate{UserTypeID: &ut.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self type change allowed: %v", err)
	}
	got, err := s.Update(ctx, admin, u.ID, domain.UserUpdate{UserTypeID: &ut.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got.UserTypeID != ut.ID {
		t.Fatalf("user_type_id not assigned: %q", got.UserTypeID)
	}

	types, err := s.UserTypes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0].Name != "customer" {
		t.Fatalf("unexpected types listing: %+v", types)
	}
}

func TestUserTypeCreateRules(t *testing.T) {
	s := newTestUserService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := s.CreateUserType(ctx, "", "без имени"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := s.CreateUserType(ctx, "admin", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateUserType(ctx, "admin", "дубль"); !errors.Is(err, ErrUserTypeExists) {
		t.Fatalf("expected ErrUserTypeExists, got %v", err)
	}
}

func TestUserDelete(t *testing.T) {
	repo := newFakeUserRepo()
	s := newTestUserService(repo)
	ctx := context.Background()

	u, err := s.Create(ctx, domain.UserCreate{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, u.ID, false); err != nil {
		t.Fatal(err)
	}
	if !repo.users[u.ID].IsDeleted {
		t.Fatal("soft delete must keep the row")
	}

	if err := s.Delete(ctx, "missing", false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
