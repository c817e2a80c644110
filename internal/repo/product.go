package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

type GormProducts struct {
	DB *gorm.DB
}

func (r *GormProducts) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormProducts) filtered(ctx context.Context, f ProductFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

func (r *GormProducts) List(ctx context.Context, f ProductFilter, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return 0, nil, translate(err)
	}

	var items []models.Product
	if err := r.filtered(ctx, f).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, translate(err)
	}
	return total, items, nil
}

func (r *GormProducts) ListAll(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (r *GormProducts) Top(ctx context.Context, limit int) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Order("sales DESC").Order("id ASC").Limit(limit).Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (r *GormProducts) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Distinct("category").Order("category ASC").Pluck("category", &cats).Error; err != nil {
		return nil, translate(err)
	}
	return cats, nil
}

// Search is the database fallback used when no search index is configured.
// It matches the query case-insensitively against name and description.
func (r *GormProducts) Search(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	scoped := func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&models.Product{}).
			Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return 0, nil, translate(err)
	}
	var items []models.Product
	if err := scoped().Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, translate(err)
	}
	return total, items, nil
}

func (r *GormProducts) Insert(ctx context.Context, p *models.Product) error {
	return translate(r.DB.WithContext(ctx).Create(p).Error)
}

func (r *GormProducts) Update(ctx context.Context, p *models.Product) error {
	return translate(r.DB.WithContext(ctx).Save(p).Error)
}

func (r *GormProducts) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
