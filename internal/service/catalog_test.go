package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/repo/memory"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func seedCatalog(t *testing.T, products repo.ProductRepository, n int, category string) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := &models.Product{Name: fmt.Sprintf("%s-%02d", category, i), Price: 1, Category: category}
		require.NoError(t, products.Insert(context.Background(), p))
	}
}

func TestCatalogService_ListProducts_Pagination(t *testing.T) {
	t.Parallel()

	products := memory.NewProducts()
	seedCatalog(t, products, 20, "shirts")
	svc := &CatalogService{Products: products}
	ctx := context.Background()

	tests := []struct {
		page      int
		wantItems int
		wantErr   error
	}{
		{page: 1, wantItems: 8},
		{page: 2, wantItems: 8},
		{page: 3, wantItems: 4},
		{page: 4, wantErr: ErrNotFound},
		{page: 0, wantErr: ErrNotFound},
		{page: -1, wantErr: ErrNotFound},
		{page: math.MaxInt, wantErr: ErrNotFound},
		{page: math.MaxInt/8 + 2, wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			t.Parallel()
			page, err := svc.ListProducts(ctx, tt.page, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, 3, page.Pages())
			for i := 1; i < len(page.Items); i++ {
				assert.Less(t, page.Items[i-1].ID, page.Items[i].ID)
			}
		})
	}
}

func TestCatalogService_ListProducts_CategoryAndEmpty(t *testing.T) {
	t.Parallel()

	products := memory.NewProducts()
	seedCatalog(t, products, 3, "shirts")
	seedCatalog(t, products, 2, "mugs")
	svc := &CatalogService{Products: products}
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, 1, "mugs")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, p := range page.Items {
		assert.Equal(t, "mugs", p.Category)
	}

	page, err = svc.ListProducts(ctx, 1, "hats")
	require.NoError(t, err, "page 1 of an empty result is valid")
	assert.Empty(t, page.Items)

	_, err = svc.ListProducts(ctx, 2, "hats")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_GetProduct(t *testing.T) {
	t.Parallel()

	products := memory.NewProducts()
	seedCatalog(t, products, 1, "x")
	svc := &CatalogService{Products: products}

	p, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "x-00", p.Name)

	_, err = svc.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_TopProducts(t *testing.T) {
	t.Parallel()

	products := memory.NewProducts()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, products.Insert(ctx, &models.Product{Name: fmt.Sprintf("p%02d", i), Sales: uint(i % 4)}))
	}
	svc := &CatalogService{Products: products}

	top, err := svc.TopProducts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, DefaultTopLimit)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Sales, top[i].Sales)
	}
	assert.Equal(t, TopProduct{Name: "p03", Sales: 3}, top[0], "ties broken by id")

	top, err = svc.TopProducts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestCatalogService_Categories(t *testing.T) {
	t.Parallel()

	products := memory.NewProducts()
	seedCatalog(t, products, 2, "shirts")
	seedCatalog(t, products, 1, "mugs")
	svc := &CatalogService{Products: products}

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mugs", "shirts"}, cats)
}

type stubIndex struct {
	total int64
	items []models.Product
	err   error
}

func (s *stubIndex) IndexProduct(context.Context, models.Product) error { return nil }
func (s *stubIndex) DeleteProduct(context.Context, uint) error          { return nil }
func (s *stubIndex) Search(context.Context, string, int, int) (int64, []models.Product, error) {
	return s.total, s.items, s.err
}

func TestCatalogService_Search(t *testing.T) {
	t.Parallel()

	products := memory.NewProducts()
	ctx := context.Background()
	require.NoError(t, products.Insert(ctx, &models.Product{Name: "Coffee mug"}))
	require.NoError(t, products.Insert(ctx, &models.Product{Name: "Tea pot"}))

	t.Run("database fallback", func(t *testing.T) {
		t.Parallel()
		svc := &CatalogService{Products: products}
		page, err := svc.Search(ctx, "coffee", 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Coffee mug", page.Items[0].Name)
	})

	t.Run("index preferred", func(t *testing.T) {
		t.Parallel()
		idx := &stubIndex{total: 1, items: []models.Product{{ID: 77, Name: "From index"}}}
		svc := &CatalogService{Products: products, Index: idx}
		page, err := svc.Search(ctx, "anything", 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.EqualValues(t, 77, page.Items[0].ID)
	})

	t.Run("failing index falls back", func(t *testing.T) {
		t.Parallel()
		svc := &CatalogService{Products: products, Index: &stubIndex{err: errors.New("es down")}}
		page, err := svc.Search(ctx, "tea", 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Tea pot", page.Items[0].Name)
	})

	t.Run("blank query", func(t *testing.T) {
		t.Parallel()
		svc := &CatalogService{Products: products}
		page, err := svc.Search(ctx, "  ", 1)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("out of range page", func(t *testing.T) {
		t.Parallel()
		svc := &CatalogService{Products: products}
		_, err := svc.Search(ctx, "coffee", 2)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.Search(ctx, "coffee", math.MaxInt)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCatalogService_HugePagesOnDatabase(t *testing.T) {
	t.Parallel()

	repos := repo.NewGorm(testutil.NewInMemoryDB(t))
	seedCatalog(t, repos.Products, 3, "mugs")
	svc := &CatalogService{Products: repos.Products}
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	for _, n := range []int{2, math.MaxInt/8 + 2, math.MaxInt} {
		_, err := svc.ListProducts(ctx, n, "")
		assert.ErrorIs(t, err, ErrNotFound, "list page %d", n)

		_, err = svc.Search(ctx, "mugs", n)
		assert.ErrorIs(t, err, ErrNotFound, "search page %d", n)
	}
}
