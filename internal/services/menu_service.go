package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tableside/internal/domain"
	rediscache "tableside/internal/infra/redis"
	"tableside/internal/logger"
	"tableside/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const menuLoadTimeout = 5 * time.Second

// Largest price a decimal(10,2) column holds is 99999999.99.
var maxMenuPrice = decimal.NewFromInt(100000000)

type MenuService struct {
	repo  repository.MenuRepository
	cache rediscache.CacheInterface
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

// MenuItemInput is the writable part of a menu item. Price is a pointer so a
// missing price can be told apart from zero; Available defaults to true on
// create and keeps the stored value on update when nil.
type MenuItemInput struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price"`
	Available   *bool            `json:"available"`
}

func NewMenuService(r repository.MenuRepository, log *logger.Logger) *MenuService {
	return &MenuService{repo: r, log: log}
}

// SetCache enables the read-through cache for the public menu.
func (s *MenuService) SetCache(c rediscache.CacheInterface, ttl time.Duration) {
	s.cache = c
	s.ttl = ttl
}

// ListAvailable returns the orderable items ordered by name. Concurrent misses
// share one load, which outlives any single caller's cancellation.
func (s *MenuService) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	key := menuCacheKey
	cacheable := false
	if s.cache != nil {
		gen, err := generation(ctx, s.cache, menuVersionKey)
		if err != nil {
			s.log.Warn(ctx, "cache_get_failed", "Failed to read menu cache generation", "error", err.Error())
		} else {
			key, cacheable = menuGenerationKey(gen), true
			if items, ok := s.cachedMenu(ctx, key); ok {
				return items, nil
			}
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), menuLoadTimeout)
		defer cancel()

		items, err := s.repo.ListAvailable(loadCtx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if data, err := json.Marshal(items); err == nil {
				if err := s.cache.Set(loadCtx, key, data, s.ttl); err != nil {
					s.log.Warn(loadCtx, "cache_set_failed", "Failed to cache menu", "error", err.Error())
				}
			}
		}
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, internal(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			s.log.Error(ctx, "list_menu_failed", "Failed to list menu", res.Err)
			return nil, internal(res.Err)
		}
		return res.Val.([]domain.MenuItem), nil
	}
}

func (s *MenuService) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		s.log.Error(ctx, "list_menu_failed", "Failed to list menu", err)
		return nil, internal(err)
	}
	return items, nil
}

func (s *MenuService) Create(ctx context.Context, in MenuItemInput) (*domain.MenuItem, error) {
	in, err := normalizeMenuInput(in)
	if err != nil {
		return nil, err
	}

	item := &domain.MenuItem{
		Name:        in.Name,
		Description: in.Description,
		Price:       *in.Price,
		Available:   true,
	}
	if in.Available != nil {
		item.Available = *in.Available
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrConstraint) {
			return nil, validationError("Price must be greater than 0")
		}
		s.log.Error(ctx, "create_menu_item_failed", "Failed to create menu item", err)
		return nil, internal(err)
	}

	s.log.Info(ctx, "menu_item_created", "Menu item created", "menu_item_id", item.ID)
	s.invalidateMenu(ctx)
	return item, nil
}

func (s *MenuService) Update(ctx context.Context, id uint64, in MenuItemInput) (*domain.MenuItem, error) {
	in, err := normalizeMenuInput(in)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error(ctx, "update_menu_item_failed", "Failed to load menu item", err, "menu_item_id", id)
		return nil, internal(err)
	}
	if item == nil {
		return nil, notFound("Menu item not found")
	}

	item.Name = in.Name
	item.Description = in.Description
	item.Price = *in.Price
	if in.Available != nil {
		item.Available = *in.Available
	}

	ok, err := s.repo.Update(ctx, item)
	if err != nil {
		if errors.Is(err, repository.ErrConstraint) {
			return nil, validationError("Price must be greater than 0")
		}
		s.log.Error(ctx, "update_menu_item_failed", "Failed to update menu item", err, "menu_item_id", id)
		return nil, internal(err)
	}
	if !ok {
		return nil, notFound("Menu item not found")
	}

	s.log.Info(ctx, "menu_item_updated", "Menu item updated", "menu_item_id", id)
	s.invalidateMenu(ctx)
	return item, nil
}

func (s *MenuService) Delete(ctx context.Context, id uint64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return conflict("Menu item is referenced by existing orders", err)
		}
		s.log.Error(ctx, "delete_menu_item_failed", "Failed to delete menu item", err, "menu_item_id", id)
		return internal(err)
	}
	if !ok {
		return notFound("Menu item not found")
	}

	s.log.Info(ctx, "menu_item_deleted", "Menu item deleted", "menu_item_id", id)
	s.invalidateMenu(ctx)
	return nil
}

// Seed inserts items only when the catalog is empty and reports how many
// were written.
func (s *MenuService) Seed(ctx context.Context, items []domain.MenuItem) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, internal(err)
	}
	if n > 0 {
		s.log.Info(ctx, "menu_seed_skipped", "Catalog already has items", "count", n)
		return 0, nil
	}
	if err := s.repo.CreateBatch(ctx, items); err != nil {
		s.log.Error(ctx, "menu_seed_failed", "Failed to seed menu", err)
		return 0, internal(err)
	}
	s.invalidateMenu(ctx)
	return len(items), nil
}

func (s *MenuService) cachedMenu(ctx context.Context, key string) ([]domain.MenuItem, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, rediscache.ErrCacheMiss) {
			s.log.Warn(ctx, "cache_get_failed", "Failed to read menu from cache", "error", err.Error())
		}
		return nil, false
	}
	var items []domain.MenuItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

// invalidateMenu retires the cached menu and every cached table listing, since
// both carry catalog names and prices.
func (s *MenuService) invalidateMenu(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, menuVersionKey); err != nil {
		s.log.Warn(ctx, "cache_invalidate_failed", "Failed to invalidate menu cache", "error", err.Error())
	}
}

func normalizeMenuInput(in MenuItemInput) (MenuItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" || in.Description == "" || in.Price == nil || in.Price.IsZero() {
		return in, validationError("Name, description, and price required")
	}
	// Stored with two decimal places.
	price := in.Price.Round(2)
	if !price.IsPositive() {
		return in, validationError("Price must be greater than 0")
	}
	if price.GreaterThanOrEqual(maxMenuPrice) {
		return in, validationError("Price must be less than 100000000")
	}
	in.Price = &price
	if err := validateStruct(in); err != nil {
		return in, err
	}
	return in, nil
}
