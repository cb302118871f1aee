package services

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"tableside/internal/domain"
	rabbit "tableside/internal/infra/rabbitmq"
	rediscache "tableside/internal/infra/redis"
	"tableside/internal/logger"
	"tableside/internal/repository"
)

type OrderService struct {
	repo      repository.OrderRepository
	publisher rabbit.PublisherInterface
	cache     rediscache.CacheInterface
	ordersTTL time.Duration
	log       *logger.Logger
	now       func() time.Time
}

type PlaceOrderInput struct {
	TableNumber    int              `json:"tableNumber" validate:"gt=0"`
	Items          []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	IdempotencyKey string           `json:"idempotency_key" validate:"max=128"`
}

type OrderItemInput struct {
	MenuItemID uint64 `json:"menu_item_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
}

// NewOrderService builds the service. pub may be nil, in which case no events
// are published.
func NewOrderService(r repository.OrderRepository, pub rabbit.PublisherInterface, log *logger.Logger) *OrderService {
	return &OrderService{
		repo:      r,
		publisher: pub,
		log:       log,
		now:       time.Now,
	}
}

// SetCache enables the per-table order listing cache.
func (s *OrderService) SetCache(c rediscache.CacheInterface, ttl time.Duration) {
	s.cache = c
	s.ordersTTL = ttl
}

func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var fingerprint string
	if in.IdempotencyKey != "" {
		fingerprint = requestFingerprint(in)
		existing, err := s.repo.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			s.log.Error(ctx, "order_placement_failed", "Idempotency lookup failed", err)
			return nil, placementFailed(err)
		}
		if existing != nil {
			return s.replay(ctx, existing, fingerprint)
		}
	}

	order := &domain.Order{
		TableNumber: in.TableNumber,
		Status:      domain.StatusPending,
		Lines:       make([]domain.OrderLine, 0, len(in.Items)),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
		order.RequestHash = &fingerprint
	}
	for _, it := range in.Items {
		order.Lines = append(order.Lines, domain.OrderLine{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
		})
	}

	if err := s.repo.Create(ctx, order); err != nil {
		// A concurrent request with the same key won the unique index.
		if order.IdempotencyKey != nil && errors.Is(err, repository.ErrDuplicate) {
			existing, ferr := s.repo.FindByIdempotencyKey(ctx, in.IdempotencyKey)
			if ferr == nil && existing != nil {
				return s.replay(ctx, existing, fingerprint)
			}
		}
		s.log.Error(ctx, "order_placement_failed", "Failed to place order", err,
			"table_number", in.TableNumber, "items", len(in.Items))
		return nil, placementFailed(err)
	}

	s.log.Info(ctx, "order_placed", "Order placed",
		"order_id", order.ID, "table_number", order.TableNumber, "items", len(order.Lines))

	s.invalidateTable(ctx, order.TableNumber)
	s.publishOrderPlacedEvent(ctx, order)

	return order, nil
}

// ListOrders returns orders newest first. A nil tableNumber lists every table.
func (s *OrderService) ListOrders(ctx context.Context, tableNumber *int) ([]domain.OrderView, error) {
	var key string
	if tableNumber != nil && s.cache != nil {
		key = s.tableKey(ctx, *tableNumber)
		if key != "" {
			if views, ok := s.cachedTable(ctx, key); ok {
				return views, nil
			}
		}
	}

	orders, err := s.repo.List(ctx, tableNumber)
	if err != nil {
		s.log.Error(ctx, "list_orders_failed", "Failed to list orders", err)
		return nil, internal(err)
	}

	views := make([]domain.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, domain.NewOrderView(o))
	}

	if key != "" {
		if data, err := json.Marshal(views); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ordersTTL); err != nil {
				s.log.Warn(ctx, "cache_set_failed", "Failed to cache table orders", "error", err.Error())
			}
		}
	}

	return views, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*domain.OrderView, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error(ctx, "get_order_failed", "Failed to load order", err, "order_id", id)
		return nil, internal(err)
	}
	if o == nil {
		return nil, notFound("Order not found")
	}
	v := domain.NewOrderView(*o)
	return &v, nil
}

// UpdateStatus overwrites the order's status. Any recognized status may
// follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, status string) (*domain.Order, error) {
	st := domain.OrderStatus(status)
	if !st.IsValid() {
		return nil, validationError("Invalid status")
	}

	o, err := s.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		s.log.Error(ctx, "update_status_failed", "Failed to update order status", err, "order_id", id)
		return nil, internal(err)
	}
	if o == nil {
		return nil, notFound("Order not found")
	}

	s.log.Info(ctx, "order_status_changed", "Order status updated", "order_id", o.ID, "status", string(o.Status))

	s.invalidateTable(ctx, o.TableNumber)
	s.publish(ctx, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:     o.ID,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		ChangedAt:   s.now().UTC(),
	})

	return o, nil
}

// replay answers a repeated idempotency key. The stored order is returned only
// when the new request asks for the same thing.
func (s *OrderService) replay(ctx context.Context, existing *domain.Order, fingerprint string) (*domain.Order, error) {
	if existing.RequestHash == nil || *existing.RequestHash != fingerprint {
		s.log.Warn(ctx, "idempotency_key_reused", "Idempotency key reused for a different order", "order_id", existing.ID)
		return nil, conflict("Idempotency-Key was already used for a different order", nil)
	}
	s.log.Info(ctx, "order_replayed", "Returning order for repeated idempotency key", "order_id", existing.ID)
	return existing, nil
}

// tableKey returns "" when the generation counters cannot be read, in which
// case the listing is neither read from nor written to the cache.
func (s *OrderService) tableKey(ctx context.Context, table int) string {
	tableGen, err := generation(ctx, s.cache, tableVersionKey(table))
	if err != nil {
		s.log.Warn(ctx, "cache_get_failed", "Failed to read table cache generation", "error", err.Error())
		return ""
	}
	menuGen, err := generation(ctx, s.cache, menuVersionKey)
	if err != nil {
		s.log.Warn(ctx, "cache_get_failed", "Failed to read menu cache generation", "error", err.Error())
		return ""
	}
	return tableCacheKey(table, tableGen, menuGen)
}

func (s *OrderService) cachedTable(ctx context.Context, key string) ([]domain.OrderView, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, rediscache.ErrCacheMiss) {
			s.log.Warn(ctx, "cache_get_failed", "Failed to read table orders from cache", "error", err.Error())
		}
		return nil, false
	}
	var views []domain.OrderView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, false
	}
	return views, true
}

func (s *OrderService) invalidateTable(ctx context.Context, table int) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, tableVersionKey(table)); err != nil {
		s.log.Warn(ctx, "cache_invalidate_failed", "Failed to invalidate table orders", "table_number", table, "error", err.Error())
	}
}

func (s *OrderService) publishOrderPlacedEvent(ctx context.Context, order *domain.Order) {
	items := make([]domain.OrderEventItem, 0, len(order.Lines))
	for _, l := range order.Lines {
		items = append(items, domain.OrderEventItem{MenuItemID: l.MenuItemID, Quantity: l.Quantity})
	}
	s.publish(ctx, domain.EventOrderPlaced, domain.OrderPlacedEvent{
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	})
}

func (s *OrderService) publish(ctx context.Context, routingKey string, evt any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		s.log.Error(ctx, "publish_failed", "Failed to publish event", err, "routing_key", routingKey)
		return
	}
	s.log.Debug(ctx, "event_published", "Published event", "routing_key", routingKey)
}

// requestFingerprint identifies what a placement asks for, independent of the
// order its lines were sent in.
func requestFingerprint(in PlaceOrderInput) string {
	items := slices.Clone(in.Items)
	slices.SortFunc(items, func(a, b OrderItemInput) int {
		if c := cmp.Compare(a.MenuItemID, b.MenuItemID); c != 0 {
			return c
		}
		return cmp.Compare(a.Quantity, b.Quantity)
	})

	h := sha256.New()
	fmt.Fprintf(h, "table=%d", in.TableNumber)
	for _, it := range items {
		fmt.Fprintf(h, ";%d:%d", it.MenuItemID, it.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}
