package handlers

import (
	"net/http"

	analytics "restaurant-system/internal/microservices/analytics/service"
	"restaurant-system/internal/microservices/order/service"
)

type AnalyticsHandler struct {
	orders    service.OrderServiceInterface
	analytics analytics.AnalyticsServiceInterface
}

func NewAnalyticsHandler(orders service.OrderServiceInterface, a analytics.AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{orders: orders, analytics: a}
}

func (ah *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	tab, err := analytics.ParseTab(r.URL.Query().Get("tab"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_tab", err.Error())
		return
	}
	snap, err := ah.orders.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ah.analytics.Daily(snap.Orders, tab))
}

func (ah *AnalyticsHandler) Recorded(w http.ResponseWriter, r *http.Request) {
	s, err := ah.analytics.Recorded(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
