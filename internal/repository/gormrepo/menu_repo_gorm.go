package gormrepo

import (
	"context"
	"errors"

	"tableside/internal/domain"
	"tableside/internal/repository"

	"gorm.io/gorm"
)

type menuRepo struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) repository.MenuRepository {
	return &menuRepo{db: db}
}

func (r *menuRepo) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	out := make([]domain.MenuItem, 0)
	err := r.db.WithContext(ctx).Where("available = ?", true).Order("name").Find(&out).Error
	return out, err
}

func (r *menuRepo) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	out := make([]domain.MenuItem, 0)
	err := r.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

func (r *menuRepo) FindByID(ctx context.Context, id uint64) (*domain.MenuItem, error) {
	var m domain.MenuItem
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *menuRepo) Create(ctx context.Context, item *domain.MenuItem) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *menuRepo) Update(ctx context.Context, item *domain.MenuItem) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.MenuItem{}).
		Where("id = ?", item.ID).
		Select("name", "description", "price", "available").
		Updates(map[string]any{
			"name":        item.Name,
			"description": item.Description,
			"price":       item.Price,
			"available":   item.Available,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *menuRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.MenuItem{}, id)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *menuRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.MenuItem{}).Count(&n).Error
	return n, err
}

func (r *menuRepo) CreateBatch(ctx context.Context, items []domain.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return translate(tx.Create(&items).Error)
	})
}
