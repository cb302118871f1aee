package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tableside/internal/logger"
	"tableside/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	orders *services.OrderService
	menu   *services.MenuService
	auth   *services.AuthService
	ping   func(context.Context) error
	log    *logger.Logger
}

// NewHandler wires the services behind the HTTP API. ping backs the health
// check and may be nil.
func NewHandler(o *services.OrderService, m *services.MenuService, a *services.AuthService, ping func(context.Context) error, log *logger.Logger) *Handler {
	return &Handler{orders: o, menu: m, auth: a, ping: ping, log: log}
}

// NewRouter builds the engine with recovery, request logging, CORS and every
// route registered.
func NewRouter(h *Handler, log *logger.Logger, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", headerIdempotency, headerRequestID},
			ExposeHeaders:    []string{headerRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.GET("/menu", h.ListMenu)
	r.POST("/order", h.PlaceOrder)
	r.GET("/order/:tableNumber", h.ListTableOrders)

	admin := r.Group("/admin")
	admin.POST("/login", h.Login)

	protected := admin.Group("", AuthRequired(h.auth))
	protected.POST("/logout", h.Logout)
	protected.GET("/orders", h.ListAllOrders)
	protected.PUT("/orders/:id/status", h.UpdateOrderStatus)
	protected.GET("/menu", h.ListAllMenu)
	protected.POST("/menu", h.CreateMenuItem)
	protected.PUT("/menu/:id", h.UpdateMenuItem)
	protected.DELETE("/menu/:id", h.DeleteMenuItem)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found"})
	})
}

func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.log.Error(c.Request.Context(), "health_check_failed", "Database ping failed", err)
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "UNAVAILABLE", Timestamp: time.Now().UTC()})
			return
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "OK", Timestamp: time.Now().UTC()})
}

func (h *Handler) ListMenu(c *gin.Context) {
	items, err := h.menu.ListAvailable(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	in := services.PlaceOrderInput{
		TableNumber:    req.TableNumber,
		IdempotencyKey: c.GetHeader(headerIdempotency),
	}
	if req.Items != nil {
		in.Items = make([]services.OrderItemInput, 0, len(req.Items))
		for _, it := range req.Items {
			in.Items = append(in.Items, services.OrderItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
		}
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PlaceOrderResponse{Message: "Order placed successfully", OrderID: order.ID})
}

func (h *Handler) ListTableOrders(c *gin.Context) {
	table, err := strconv.Atoi(c.Param("tableNumber"))
	if err != nil {
		badRequest(c, "Invalid table number")
		return
	}

	views, err := h.orders.ListOrders(c.Request.Context(), &table)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), claimsFrom(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) ListAllOrders(c *gin.Context) {
	var table *int
	if v := c.Query("table"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "Invalid table number")
			return
		}
		table = &n
	}

	views, err := h.orders.ListOrders(c.Request.Context(), table)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "Invalid order id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListAllMenu(c *gin.Context) {
	items, err := h.menu.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	item, err := h.menu.Create(c.Request.Context(), menuInput(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c, "Invalid menu item id")
	if !ok {
		return
	}

	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	item, err := h.menu.Update(c.Request.Context(), id, menuInput(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := parseID(c, "Invalid menu item id")
	if !ok {
		return
	}

	if err := h.menu.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Menu item deleted successfully"})
}

func parseID(c *gin.Context, msg string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, msg)
		return 0, false
	}
	return id, true
}

func menuInput(req MenuItemRequest) services.MenuItemInput {
	return services.MenuItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Available:   req.Available,
	}
}
