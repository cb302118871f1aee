package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"tableside/internal/domain"
	"tableside/internal/logger"
	"tableside/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepository(db *gorm.DB, log *logger.Logger) repository.OrderRepository {
	return &orderRepo{db: db, log: log}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	lines := order.Lines

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", translate(err))
		}
		if order.ID == 0 {
			return errors.New("failed to assign order ID")
		}

		for i := range lines {
			lines[i].OrderID = order.ID
			if err := tx.Omit(clause.Associations).Create(&lines[i]).Error; err != nil {
				return fmt.Errorf("insert order item %d (menu item %d): %w", i, lines[i].MenuItemID, translate(err))
			}
		}
		return nil
	})
	if err != nil {
		// Nothing was committed, so drop the IDs the inserts handed out.
		order.ID = 0
		for i := range lines {
			lines[i].ID = 0
			lines[i].OrderID = 0
		}
		r.log.Error(ctx, "order_tx_rolled_back", "Order transaction rolled back", err,
			"table_number", order.TableNumber, "lines", len(lines))
		return err
	}

	r.log.Debug(ctx, "order_saved", "Order saved", "order_id", order.ID, "lines", len(lines))
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := r.withLines(r.db.WithContext(ctx)).First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, tableNumber *int) ([]domain.Order, error) {
	q := r.withLines(r.db.WithContext(ctx)).Order("created_at DESC").Order("id DESC")
	if tableNumber != nil {
		q = q.Where("table_number = ?", *tableNumber)
	}

	out := make([]domain.Order, 0)
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint64, status domain.OrderStatus) (*domain.Order, error) {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Lines.MenuItem")
}

// translate maps gorm's dialect-neutral errors onto repository sentinels.
// It relies on gorm.Config.TranslateError being set when the DB is opened.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", repository.ErrReferenced, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", repository.ErrConstraint, err)
	default:
		return err
	}
}
