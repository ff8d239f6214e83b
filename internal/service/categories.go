package service

import (
	"context"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/port"

	"go.opentelemetry.io/otel"
)

var categoryTracer = otel.Tracer("service/categories")

// CategoryService resolves category references. Categories change rarely, so
// lookups sit behind a TTL cache shared by the ledger and budget services.
type CategoryService struct {
	categories port.CategoryStore
	cache      port.Cache[*domain.Category]
	metrics    *observability.Metrics
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories port.CategoryStore, cache port.Cache[*domain.Category], metrics *observability.Metrics) *CategoryService {
	return &CategoryService{categories: categories, cache: cache, metrics: metrics}
}

func (s *CategoryService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.GetCategory")
	defer span.End()

	if cached, ok := s.cache.Get(categoryID); ok {
		s.metrics.IncrCacheHit("categories")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("categories")

	category, err := s.categories.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(categoryID, category)
	return category, nil
}

func (s *CategoryService) ListCategories(ctx context.Context, userID string, activeOnly bool) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.ListCategories")
	defer span.End()

	return s.categories.ListCategories(ctx, userID, activeOnly)
}
