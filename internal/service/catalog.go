package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/util"
)

const (
	PageSize        = 8
	DefaultTopLimit = 10
)

type CatalogService struct {
	Products repo.ProductRepository
	// Index is optional; without it Search falls back to the database.
	Index search.Index
}

type TopProduct struct {
	Name  string `json:"name"`
	Sales uint   `json:"sales"`
}

// ListProducts returns one page of the catalog ordered by id. Page 1 of an
// empty catalog is a valid empty page; any other page without items is not found.
func (s *CatalogService) ListProducts(ctx context.Context, page int, category string) (*util.Page[models.Product], error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, page)
	}
	offset, limit := util.Calculate(page, PageSize)

	total, items, err := s.Products.List(ctx, repo.ProductFilter{Category: category}, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	res := util.NewPage(items, page, PageSize, total)
	if res.OutOfRange() || (len(items) == 0 && page != 1) {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, page)
	}
	return res, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *CatalogService) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	rows, err := s.Products.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	out := make([]TopProduct, len(rows))
	for i, p := range rows {
		out[i] = TopProduct{Name: p.Name, Sales: p.Sales}
	}
	return out, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.Products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return cats, nil
}

// Search pages through products matching query. The search index is
// preferred; when it is absent or failing the database answers instead.
func (s *CatalogService) Search(ctx context.Context, query string, page int) (*util.Page[models.Product], error) {
	query = strings.TrimSpace(query)
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, page)
	}
	if query == "" {
		return util.NewPage[models.Product](nil, 1, PageSize, 0), nil
	}
	offset, limit := util.Calculate(page, PageSize)

	var (
		total int64
		items []models.Product
		err   error
	)
	if s.Index != nil {
		total, items, err = s.Index.Search(ctx, query, offset, limit)
		if err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "reason", "falling back to database", "error", err)
		}
	}
	if s.Index == nil || err != nil {
		total, items, err = s.Products.Search(ctx, query, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("search products: %w", err)
		}
	}

	res := util.NewPage(items, page, PageSize, total)
	if res.OutOfRange() || (len(items) == 0 && page != 1) {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, page)
	}
	return res, nil
}
