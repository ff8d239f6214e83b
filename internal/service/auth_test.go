package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/auth"
	"github.com/zegrana/finance-core-go/internal/service"

	"go.uber.org/zap"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*domain.User{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	out := copied
	return &out, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	copied := *user
	return &copied, nil
}

func newAuthService() (*service.AuthService, *fakeUserStore, *auth.JWTIssuer) {
	users := newFakeUserStore()
	issuer := auth.NewJWTIssuer("test-secret", time.Hour)
	// Minimum bcrypt cost keeps the suite fast.
	svc := service.NewAuthService(users, auth.NewBcryptHasher(4), issuer, zap.NewNop())
	return svc, users, issuer
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, issuer := newAuthService()

	user, err := svc.Register(context.Background(), &domain.RegisterInput{
		Name:     "Maria",
		Email:    "  Maria@Example.com ",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "maria@example.com" {
		t.Errorf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("the password must never be stored in plaintext")
	}

	result, err := svc.Login(context.Background(), &domain.LoginInput{
		Email:    "maria@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Errorf("token expiry should be in the future, got %s", result.ExpiresAt)
	}

	subject, err := issuer.Verify(result.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if subject != user.ID {
		t.Errorf("token subject should be the user id, got %q", subject)
	}
}

func TestRegister_DuplicateEmailRefused(t *testing.T) {
	svc, _, _ := newAuthService()

	in := &domain.RegisterInput{Name: "Maria", Email: "maria@example.com", Password: "correct-horse"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), in)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newAuthService()

	cases := []struct {
		name string
		in   domain.RegisterInput
	}{
		{"empty name", domain.RegisterInput{Email: "a@b.com", Password: "long-enough"}},
		{"bad email", domain.RegisterInput{Name: "Maria", Email: "not-an-email", Password: "long-enough"}},
		{"short password", domain.RegisterInput{Name: "Maria", Email: "a@b.com", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var invalid *domain.ErrInvalidInput
			_, err := svc.Register(context.Background(), &tc.in)
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc, _, _ := newAuthService()

	if _, err := svc.Register(context.Background(), &domain.RegisterInput{
		Name:     "Maria",
		Email:    "maria@example.com",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, wrongPass := svc.Login(context.Background(), &domain.LoginInput{
		Email:    "maria@example.com",
		Password: "battery-staple",
	})
	_, unknownEmail := svc.Login(context.Background(), &domain.LoginInput{
		Email:    "nobody@example.com",
		Password: "battery-staple",
	})

	var unauthorized *domain.ErrUnauthorized
	if !errors.As(wrongPass, &unauthorized) {
		t.Fatalf("wrong password should be ErrUnauthorized, got %v", wrongPass)
	}
	if !errors.As(unknownEmail, &unauthorized) {
		t.Fatalf("unknown email should be ErrUnauthorized, got %v", unknownEmail)
	}
	if wrongPass.Error() != unknownEmail.Error() {
		t.Errorf("both failures must be indistinguishable: %q vs %q", wrongPass, unknownEmail)
	}
}

func TestVerify_RejectsForeignToken(t *testing.T) {
	issuer := auth.NewJWTIssuer("secret-a", time.Hour)
	other := auth.NewJWTIssuer("secret-b", time.Hour)

	token, _, err := other.Issue("user-1", "maria@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = issuer.Verify(token)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("a token signed with another secret must be refused, got %v", err)
	}
}
