package postgrest

import (
	"context"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const usersCollection = "users"

// UserStore adapts the generic provider to port.UserStore.
type UserStore struct {
	provider port.DataProvider
}

// NewUserStore wraps a data provider.
func NewUserStore(provider port.DataProvider) *UserStore {
	return &UserStore{provider: provider}
}

var _ port.UserStore = (*UserStore)(nil)

func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	rec := port.Record{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"active":        user.Active,
		"created_at":    timeVal(user.CreatedAt),
		"updated_at":    timeVal(user.UpdatedAt),
	}
	stored, err := s.provider.Create(ctx, usersCollection, rec)
	if err != nil {
		return nil, err
	}
	return userFromRecord(stored), nil
}

// GetUserByEmail returns nil when no user matches.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	recs, err := s.provider.Query(ctx, usersCollection,
		[]port.Filter{{Field: "email", Op: port.OpEq, Value: email}},
		nil, port.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return userFromRecord(recs[0]), nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	rec, err := s.provider.GetByID(ctx, usersCollection, userID)
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

func userFromRecord(rec port.Record) *domain.User {
	return &domain.User{
		ID:           recString(rec, "id"),
		Name:         recString(rec, "name"),
		Email:        recString(rec, "email"),
		PasswordHash: recString(rec, "password_hash"),
		Active:       recBool(rec, "active"),
		CreatedAt:    recTime(rec, "created_at"),
		UpdatedAt:    recTime(rec, "updated_at"),
	}
}
