package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/menu"
	analytics "restaurant-system/internal/microservices/analytics/service"
	kitchen "restaurant-system/internal/microservices/kitchen/service"
	"restaurant-system/internal/microservices/order/service"
)

type Handler struct {
	OrderHandler     *OrderHandler
	KitchenHandler   *KitchenHandler
	AnalyticsHandler *AnalyticsHandler
	SystemHandler    *SystemHandler
}

func New(orders service.OrderServiceInterface, k kitchen.KitchenServiceInterface, a analytics.AnalyticsServiceInterface, c *menu.Catalog) *Handler {
	return &Handler{
		OrderHandler:     NewOrderHandler(orders),
		KitchenHandler:   NewKitchenHandler(orders, k),
		AnalyticsHandler: NewAnalyticsHandler(orders, a),
		SystemHandler:    NewSystemHandler(orders, c),
	}
}

func Router(h *Handler, lg *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(lg))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.SystemHandler.Health)
	r.Get("/status", h.SystemHandler.Status)
	r.Post("/auth/retry", h.SystemHandler.RetryAuth)
	r.Get("/menu", h.SystemHandler.Menu)

	r.Get("/tables", h.OrderHandler.Tables)
	r.Get("/tables/{id}/order", h.OrderHandler.ActiveOrder)
	r.Post("/tables/{id}/orders", h.OrderHandler.Submit)
	r.Post("/tables/{id}/close", h.OrderHandler.CloseTable)
	r.Post("/parcel/orders", h.OrderHandler.SubmitParcel)
	r.Get("/orders", h.OrderHandler.List)
	r.Patch("/orders/{id}/status", h.OrderHandler.UpdateStatus)

	r.Get("/kitchen/orders", h.KitchenHandler.Queue)
	r.Post("/kitchen/orders/{id}/{action}", h.KitchenHandler.Apply)

	r.Get("/analytics/daily", h.AnalyticsHandler.Daily)
	r.Get("/analytics/recorded", h.AnalyticsHandler.Recorded)
	return r
}

func requestLogger(lg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			lg.Debug("http_request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
		})
	}
}
