package postgrest

import (
	"context"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

const categoriesCollection = "categories"

// CategoryStore adapts the generic provider to port.CategoryStore.
type CategoryStore struct {
	provider port.DataProvider
}

// NewCategoryStore wraps a data provider.
func NewCategoryStore(provider port.DataProvider) *CategoryStore {
	return &CategoryStore{provider: provider}
}

var _ port.CategoryStore = (*CategoryStore)(nil)

func (s *CategoryStore) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	rec, err := s.provider.GetByID(ctx, categoriesCollection, categoryID)
	if err != nil {
		return nil, err
	}
	return categoryFromRecord(rec), nil
}

func (s *CategoryStore) ListCategories(ctx context.Context, userID string, activeOnly bool) ([]domain.Category, error) {
	filters := []port.Filter{{Field: "user_id", Op: port.OpEq, Value: userID}}
	if activeOnly {
		filters = append(filters, port.Filter{Field: "active", Op: port.OpEq, Value: true})
	}
	recs, err := s.provider.Query(ctx, categoriesCollection, filters,
		[]port.Sort{{Field: "name"}}, port.Page{})
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(recs))
	for _, rec := range recs {
		categories = append(categories, *categoryFromRecord(rec))
	}
	return categories, nil
}

func categoryFromRecord(rec port.Record) *domain.Category {
	return &domain.Category{
		ID:        recString(rec, "id"),
		UserID:    recString(rec, "user_id"),
		Name:      recString(rec, "name"),
		Type:      domain.CategoryType(recString(rec, "type")),
		Color:     recString(rec, "color"),
		Icon:      recString(rec, "icon"),
		Active:    recBool(rec, "active"),
		CreatedAt: recTime(rec, "created_at"),
		UpdatedAt: recTime(rec, "updated_at"),
	}
}
