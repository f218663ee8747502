package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-system/internal/domain"
	"restaurant-system/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

func (oh *OrderHandler) Tables(w http.ResponseWriter, r *http.Request) {
	snap, err := oh.service.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":       snap.Tables,
		"parcelActive": snap.ParcelActive,
		"refreshedAt":  snap.RefreshedAt,
	})
}

func (oh *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := oh.service.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": snap.Orders})
}

// ActiveOrder returns the order the form appends to, or 204 when the table
// has none.
func (oh *OrderHandler) ActiveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := tableParam(w, r)
	if !ok {
		return
	}
	o, found, err := oh.service.ActiveOrder(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (oh *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := tableParam(w, r)
	if !ok {
		return
	}
	oh.submit(w, r, id)
}

func (oh *OrderHandler) SubmitParcel(w http.ResponseWriter, r *http.Request) {
	oh.submit(w, r, domain.ParcelTableID)
}

func (oh *OrderHandler) submit(w http.ResponseWriter, r *http.Request, tableID int) {
	var req domain.SubmitOrderRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := oh.service.Submit(r.Context(), tableID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	code := http.StatusCreated
	if resp.Appended {
		code = http.StatusOK
	}
	writeJSON(w, code, resp)
}

func (oh *OrderHandler) CloseTable(w http.ResponseWriter, r *http.Request) {
	id, ok := tableParam(w, r)
	if !ok {
		return
	}
	resp, err := oh.service.CloseTable(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (oh *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid_status", err.Error())
		return
	}
	o, err := oh.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
