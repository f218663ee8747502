package handlers

import (
	"net/http"

	"restaurant-system/internal/menu"
	"restaurant-system/internal/microservices/order/service"
)

type SystemHandler struct {
	orders  service.OrderServiceInterface
	catalog *menu.Catalog
}

func NewSystemHandler(orders service.OrderServiceInterface, c *menu.Catalog) *SystemHandler {
	return &SystemHandler{orders: orders, catalog: c}
}

func (sh *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports readiness and, after a failed start, the message the
// terminal shows next to its retry button.
func (sh *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := sh.orders.Status()
	code := http.StatusOK
	if st.State != service.StateReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

func (sh *SystemHandler) RetryAuth(w http.ResponseWriter, r *http.Request) {
	if err := sh.orders.Retry(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, sh.orders.Status())
		return
	}
	writeJSON(w, http.StatusOK, sh.orders.Status())
}

func (sh *SystemHandler) Menu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": sh.catalog.Categories,
		"items":      sh.catalog.Filter(q.Get("q"), q.Get("category")),
		"quick_add":  sh.catalog.QuickAdd,
	})
}
