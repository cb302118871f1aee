package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tableside/internal/config"
	"tableside/internal/domain"
	rediscache "tableside/internal/infra/redis"
	"tableside/internal/logger"
	"tableside/internal/mocks"
	"tableside/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validPlacement() PlaceOrderInput {
	return PlaceOrderInput{
		TableNumber: TestTableNumber,
		Items: []OrderItemInput{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 2, Quantity: 1},
		},
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	tests := []struct {
		name          string
		input         PlaceOrderInput
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockPublisher)
		expectedKind  error
		expectedError string
	}{
		{
			name:  "successful placement",
			input: validPlacement(),
			setupMocks: func(repo *mocks.MockOrderRepository, pub *mocks.MockPublisher) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = TestOrderID
				})
				pub.On("Publish", mock.Anything, domain.EventOrderPlaced, mock.MatchedBy(func(e domain.OrderPlacedEvent) bool {
					return e.OrderID == TestOrderID && e.TableNumber == TestTableNumber && len(e.Items) == 2
				})).Return(nil)
			},
		},
		{
			name:  "publish failure does not fail placement",
			input: validPlacement(),
			setupMocks: func(repo *mocks.MockOrderRepository, pub *mocks.MockPublisher) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = TestOrderID
				})
				pub.On("Publish", mock.Anything, domain.EventOrderPlaced, mock.Anything).Return(errors.New("broker down"))
			},
		},
		{
			name:          "missing table number",
			input:         PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}},
			expectedKind:  ErrValidation,
			expectedError: "tableNumber must be greater than 0",
		},
		{
			name:          "nil items",
			input:         PlaceOrderInput{TableNumber: 1},
			expectedKind:  ErrValidation,
			expectedError: "items is required",
		},
		{
			name:          "empty items",
			input:         PlaceOrderInput{TableNumber: 1, Items: []OrderItemInput{}},
			expectedKind:  ErrValidation,
			expectedError: "items must contain at least 1 item(s)",
		},
		{
			name: "zero quantity",
			input: PlaceOrderInput{TableNumber: 1, Items: []OrderItemInput{
				{MenuItemID: 1, Quantity: 1},
				{MenuItemID: 2, Quantity: 0},
			}},
			expectedKind:  ErrValidation,
			expectedError: "items[1].quantity must be greater than 0",
		},
		{
			name:          "missing menu item id",
			input:         PlaceOrderInput{TableNumber: 1, Items: []OrderItemInput{{Quantity: 1}}},
			expectedKind:  ErrValidation,
			expectedError: "items[0].menu_item_id is required",
		},
		{
			name:  "transaction failure",
			input: validPlacement(),
			setupMocks: func(repo *mocks.MockOrderRepository, pub *mocks.MockPublisher) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
					Return(errors.New("insert order item 1 (menu item 2): " + repository.ErrReferenced.Error()))
			},
			expectedKind:  ErrOrderPlacement,
			expectedError: "Failed to place order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockPublisher := new(mocks.MockPublisher)
			if tt.setupMocks != nil {
				tt.setupMocks(mockRepo, mockPublisher)
			}

			service := NewOrderService(mockRepo, mockPublisher, logger.Nop())
			result, err := service.PlaceOrder(context.Background(), tt.input)

			if tt.expectedKind != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedKind)
				assert.Equal(t, tt.expectedError, err.Error())
				assert.Nil(t, result)
				mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
				if tt.expectedKind == ErrValidation {
					mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, TestOrderID, result.ID)
				assert.Equal(t, domain.StatusPending, result.Status)
				assert.Equal(t, TestTableNumber, result.TableNumber)
				require.Len(t, result.Lines, 2)
				assert.Equal(t, uint64(1), result.Lines[0].MenuItemID)
				assert.Equal(t, 2, result.Lines[0].Quantity)
				assert.Nil(t, result.IdempotencyKey)
			}

			mockRepo.AssertExpectations(t)
			mockPublisher.AssertExpectations(t)
		})
	}
}

func TestOrderService_PlaceOrder_Idempotency(t *testing.T) {
	key := "6f1c2a"

	placed := func(in PlaceOrderInput) *domain.Order {
		o := CreateMockOrder(TestOrderID, in.TableNumber, domain.StatusPending)
		hash := requestFingerprint(in)
		o.IdempotencyKey, o.RequestHash = &key, &hash
		return o
	}

	t.Run("repeated key returns the stored order", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		in := validPlacement()
		in.IdempotencyKey = key
		existing := placed(in)
		mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(existing, nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())

		result, err := service.PlaceOrder(context.Background(), in)
		require.NoError(t, err)
		assert.Same(t, existing, result)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("line order does not change the request", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		first := validPlacement()
		first.IdempotencyKey = key
		existing := placed(first)
		mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(existing, nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())
		retry := first
		retry.Items = []OrderItemInput{first.Items[1], first.Items[0]}

		result, err := service.PlaceOrder(context.Background(), retry)
		require.NoError(t, err)
		assert.Same(t, existing, result)
	})

	t.Run("repeated key with a different request conflicts", func(t *testing.T) {
		stored := validPlacement()
		stored.IdempotencyKey = key

		otherTable := validPlacement()
		otherTable.IdempotencyKey = key
		otherTable.TableNumber = 9

		otherItems := validPlacement()
		otherItems.IdempotencyKey = key
		otherItems.Items[0].Quantity = 5

		for name, in := range map[string]PlaceOrderInput{"table": otherTable, "items": otherItems} {
			t.Run(name, func(t *testing.T) {
				mockRepo := new(mocks.MockOrderRepository)
				mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(placed(stored), nil)

				service := NewOrderService(mockRepo, nil, logger.Nop())
				_, err := service.PlaceOrder(context.Background(), in)
				assert.ErrorIs(t, err, ErrConflict)
				assert.Equal(t, "Idempotency-Key was already used for a different order", err.Error())
				mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("new order stores the request hash", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		in := validPlacement()
		in.IdempotencyKey = key
		mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(nil, nil)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
			return o.RequestHash != nil && *o.RequestHash == requestFingerprint(in)
		})).Return(nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())
		_, err := service.PlaceOrder(context.Background(), in)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("concurrent duplicate re-reads the winner", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		in := validPlacement()
		in.IdempotencyKey = key
		winner := placed(in)
		mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(nil, nil).Once()
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
			return o.IdempotencyKey != nil && *o.IdempotencyKey == key
		})).Return(repository.ErrDuplicate)
		mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(winner, nil).Once()

		service := NewOrderService(mockRepo, nil, logger.Nop())

		result, err := service.PlaceOrder(context.Background(), in)
		require.NoError(t, err)
		assert.Same(t, winner, result)
		mockRepo.AssertExpectations(t)
	})

	t.Run("lookup failure is a placement error", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("FindByIdempotencyKey", mock.Anything, key).Return(nil, errors.New("connection reset"))

		service := NewOrderService(mockRepo, nil, logger.Nop())
		in := validPlacement()
		in.IdempotencyKey = key

		_, err := service.PlaceOrder(context.Background(), in)
		assert.ErrorIs(t, err, ErrOrderPlacement)
	})
}

func TestOrderService_PlaceOrder_InvalidatesTableCache(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockCache := new(mocks.MockCache)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Order).ID = TestOrderID
	})
	mockCache.On("Incr", mock.Anything, "orders:table:3:version").Return(int64(1), nil)

	service := NewOrderService(mockRepo, nil, logger.Nop())
	service.SetCache(mockCache, 10*time.Second)

	_, err := service.PlaceOrder(context.Background(), validPlacement())
	require.NoError(t, err)
	mockCache.AssertExpectations(t)
}

func TestOrderService_ListOrders(t *testing.T) {
	burger := CreateMockMenuItem(1, "Burger", "12.99", true)
	fries := CreateMockMenuItem(2, "Fries", "8.99", true)
	order := CreateMockOrder(TestOrderID, TestTableNumber, domain.StatusPending,
		domain.OrderLine{ID: 1, OrderID: TestOrderID, MenuItemID: 1, Quantity: 2, MenuItem: burger},
		domain.OrderLine{ID: 2, OrderID: TestOrderID, MenuItemID: 2, Quantity: 1, MenuItem: fries},
	)
	table := TestTableNumber

	t.Run("without cache", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("List", mock.Anything, &table).Return([]domain.Order{*order}, nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())
		views, err := service.ListOrders(context.Background(), &table)

		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "34.97", views[0].Total.String())
		assert.Equal(t, "Burger", views[0].Items[0].MenuItemName)
	})

	t.Run("cache miss fills the cache", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockCache := new(mocks.MockCache)
		mockRepo.On("List", mock.Anything, &table).Return([]domain.Order{*order}, nil)
		mockCache.On("Get", mock.Anything, "orders:table:3:version").Return(nil, rediscache.ErrCacheMiss)
		mockCache.On("Get", mock.Anything, "menu:version").Return(nil, rediscache.ErrCacheMiss)
		mockCache.On("Get", mock.Anything, "orders:table:3:0:0").Return(nil, rediscache.ErrCacheMiss)
		mockCache.On("Set", mock.Anything, "orders:table:3:0:0", mock.AnythingOfType("[]uint8"), 10*time.Second).Return(nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())
		service.SetCache(mockCache, 10*time.Second)

		views, err := service.ListOrders(context.Background(), &table)
		require.NoError(t, err)
		assert.Len(t, views, 1)
		mockCache.AssertExpectations(t)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockCache := new(mocks.MockCache)
		cached, err := json.Marshal([]domain.OrderView{domain.NewOrderView(*order)})
		require.NoError(t, err)
		mockCache.On("Get", mock.Anything, "orders:table:3:version").Return([]byte("2"), nil)
		mockCache.On("Get", mock.Anything, "menu:version").Return([]byte("7"), nil)
		mockCache.On("Get", mock.Anything, "orders:table:3:2:7").Return(cached, nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())
		service.SetCache(mockCache, 10*time.Second)

		views, err := service.ListOrders(context.Background(), &table)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "34.97", views[0].Total.String())
		mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("all tables bypass the cache", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockCache := new(mocks.MockCache)
		mockRepo.On("List", mock.Anything, (*int)(nil)).Return([]domain.Order{}, nil)

		service := NewOrderService(mockRepo, nil, logger.Nop())
		service.SetCache(mockCache, 10*time.Second)

		views, err := service.ListOrders(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, views)
		mockCache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("List", mock.Anything, (*int)(nil)).Return(nil, errors.New("db down"))

		service := NewOrderService(mockRepo, nil, logger.Nop())
		_, err := service.ListOrders(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInternal)
		assert.Equal(t, "Internal server error", err.Error())
	})
}

func newSharedCache(t *testing.T) rediscache.CacheInterface {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rediscache.NewClient(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rediscache.NewCache(client, "tableside:")
}

func TestOrderService_ListOrders_FollowsMenuEdits(t *testing.T) {
	table := TestTableNumber
	cache := newSharedCache(t)
	withItem := func(item *domain.MenuItem) []domain.Order {
		return []domain.Order{*CreateMockOrder(TestOrderID, table, domain.StatusPending,
			domain.OrderLine{ID: 1, OrderID: TestOrderID, MenuItemID: 1, Quantity: 2, MenuItem: item})}
	}

	// List joins whatever the catalog holds when it runs.
	orderRepo := new(mocks.MockOrderRepository)
	orderRepo.On("List", mock.Anything, &table).Return(withItem(CreateMockMenuItem(1, "Burger", "12.99", true)), nil).Once()
	orderRepo.On("List", mock.Anything, &table).Return(withItem(CreateMockMenuItem(1, "Cheeseburger", "20.00", true)), nil).Once()

	menuRepo := new(mocks.MockMenuRepository)
	menuRepo.On("FindByID", mock.Anything, uint64(1)).Return(CreateMockMenuItem(1, "Burger", "12.99", true), nil)
	menuRepo.On("Update", mock.Anything, mock.Anything).Return(true, nil)

	orders := NewOrderService(orderRepo, nil, logger.Nop())
	orders.SetCache(cache, time.Minute)
	menu := NewMenuService(menuRepo, logger.Nop())
	menu.SetCache(cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		views, err := orders.ListOrders(ctx, &table)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Burger", views[0].Items[0].MenuItemName)
		assert.Equal(t, "25.98", views[0].Total.String())
	}

	_, err := menu.Update(ctx, 1, MenuItemInput{Name: "Cheeseburger", Description: "With cheddar", Price: price("20.00")})
	require.NoError(t, err)

	views, err := orders.ListOrders(ctx, &table)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Cheeseburger", views[0].Items[0].MenuItemName)
	assert.True(t, decimal.NewFromInt(40).Equal(views[0].Total), "total %s", views[0].Total)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_ListOrders_FillRacingPlacement(t *testing.T) {
	table := TestTableNumber
	orderRepo := new(mocks.MockOrderRepository)
	orders := NewOrderService(orderRepo, nil, logger.Nop())
	orders.SetCache(newSharedCache(t), time.Minute)
	ctx := context.Background()

	orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Order).ID = TestOrderID
	})
	// The placement commits after this read and before its result is cached.
	orderRepo.On("List", mock.Anything, &table).Return([]domain.Order{}, nil).Once().Run(func(mock.Arguments) {
		_, err := orders.PlaceOrder(ctx, validPlacement())
		require.NoError(t, err)
	})
	orderRepo.On("List", mock.Anything, &table).Return([]domain.Order{
		*CreateMockOrder(TestOrderID, table, domain.StatusPending),
	}, nil).Once()

	views, err := orders.ListOrders(ctx, &table)
	require.NoError(t, err)
	assert.Empty(t, views)

	views, err = orders.ListOrders(ctx, &table)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, TestOrderID, views[0].ID)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	t.Run("unknown status writes nothing", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		service := NewOrderService(mockRepo, nil, logger.Nop())

		_, err := service.UpdateStatus(context.Background(), TestOrderID, "archived")
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Invalid status", err.Error())
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing order", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("UpdateStatus", mock.Anything, uint64(999), domain.StatusReady).Return(nil, nil)
		service := NewOrderService(mockRepo, nil, logger.Nop())

		_, err := service.UpdateStatus(context.Background(), 999, "ready")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "Order not found", err.Error())
	})

	t.Run("any status may follow a terminal one", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockPublisher := new(mocks.MockPublisher)
		mockCache := new(mocks.MockCache)
		updated := CreateMockOrder(TestOrderID, TestTableNumber, domain.StatusPending)
		mockRepo.On("UpdateStatus", mock.Anything, TestOrderID, domain.StatusPending).Return(updated, nil)
		mockCache.On("Incr", mock.Anything, "orders:table:3:version").Return(int64(4), nil)
		mockPublisher.On("Publish", mock.Anything, domain.EventOrderStatusChanged, mock.MatchedBy(func(e domain.OrderStatusChangedEvent) bool {
			return e.OrderID == TestOrderID && e.Status == domain.StatusPending
		})).Return(nil)

		service := NewOrderService(mockRepo, mockPublisher, logger.Nop())
		service.SetCache(mockCache, time.Second)

		result, err := service.UpdateStatus(context.Background(), TestOrderID, "pending")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, result.Status)
		mockRepo.AssertExpectations(t)
		mockCache.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockRepo := new(mocks.MockOrderRepository)
		mockRepo.On("UpdateStatus", mock.Anything, TestOrderID, domain.StatusReady).Return(nil, errors.New("timeout"))
		service := NewOrderService(mockRepo, nil, logger.Nop())

		_, err := service.UpdateStatus(context.Background(), TestOrderID, "ready")
		assert.ErrorIs(t, err, ErrInternal)
	})
}

func TestOrderService_GetOrder(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockRepo.On("FindByID", mock.Anything, TestOrderID).Return(CreateMockOrder(TestOrderID, 1, domain.StatusReady), nil)
	mockRepo.On("FindByID", mock.Anything, uint64(7)).Return(nil, nil)
	service := NewOrderService(mockRepo, nil, logger.Nop())

	v, err := service.GetOrder(context.Background(), TestOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, v.Status)

	_, err = service.GetOrder(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
