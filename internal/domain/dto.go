package domain

type CreateOrderItem struct {
	MenuID         string   `json:"menu_id,omitempty"`
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	Price          float64  `json:"price"`
	Image          string   `json:"image"`
	Customizations []string `json:"customizations,omitempty"`
}

// SubmitOrderRequest is what a terminal posts from the order form. When the
// table already has an active order the items are appended to it.
type SubmitOrderRequest struct {
	SpecialNotes string            `json:"special_notes,omitempty"`
	Items        []CreateOrderItem `json:"items"`
}

func (r SubmitOrderRequest) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(r.Items))
	for _, in := range r.Items {
		items = append(items, OrderItem{
			Name:           in.Name,
			Quantity:       in.Quantity,
			Price:          in.Price,
			Image:          in.Image,
			Customizations: in.Customizations,
		})
	}
	return items
}

type SubmitOrderResponse struct {
	OrderID  string  `json:"order_id"`
	TableID  int     `json:"table_id"`
	Appended bool    `json:"appended"`
	Status   string  `json:"status"`
	Total    float64 `json:"total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CloseTableResponse struct {
	TableID int      `json:"table_id"`
	Paid    []string `json:"paid_order_ids"`
}
