package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	kitchen "restaurant-system/internal/microservices/kitchen/service"
	"restaurant-system/internal/microservices/order/service"
)

type KitchenHandler struct {
	orders  service.OrderServiceInterface
	kitchen kitchen.KitchenServiceInterface
}

func NewKitchenHandler(orders service.OrderServiceInterface, k kitchen.KitchenServiceInterface) *KitchenHandler {
	return &KitchenHandler{orders: orders, kitchen: k}
}

func (kh *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	snap, err := kh.orders.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": kh.kitchen.Queue(snap.Orders)})
}

func (kh *KitchenHandler) Apply(w http.ResponseWriter, r *http.Request) {
	action, err := kitchen.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, err)
		return
	}
	o, err := kh.kitchen.Apply(r.Context(), chi.URLParam(r, "id"), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
