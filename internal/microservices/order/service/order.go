package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant-system/internal/auth"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/domain"
	"restaurant-system/internal/events"
	"restaurant-system/internal/menu"
	analyticsrepo "restaurant-system/internal/microservices/analytics/repository"
	"restaurant-system/internal/microservices/order/repository"
	"restaurant-system/internal/store"
	"restaurant-system/internal/tables"
)

const (
	ordersTable    = "orders"
	refreshTimeout = 10 * time.Second
)

var (
	ErrNotReady        = errors.New("service is not ready")
	ErrUnknownTable    = errors.New("unknown table")
	ErrUnknownMenuItem = errors.New("unknown menu item")
	ErrEmptyOrder      = errors.New("at least one item is required")
	ErrInvalidItem     = errors.New("invalid order item")
)

type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Status is what the terminals show while the service is not usable.
type Status struct {
	State   State          `json:"state"`
	Kind    auth.ErrorKind `json:"kind,omitempty"`
	Message string         `json:"message,omitempty"`
}

type Snapshot struct {
	Orders       []domain.Order `json:"orders"`
	Tables       []domain.Table `json:"tables"`
	ParcelActive bool           `json:"parcelActive"`
	RefreshedAt  time.Time      `json:"refreshedAt"`
}

type SessionEnsurer interface {
	Ensure(ctx context.Context) (*auth.Session, error)
}

type OrderServiceInterface interface {
	Start(ctx context.Context) error
	Retry(ctx context.Context) error
	Stop()
	Status() Status
	Refresh(ctx context.Context) error
	Snapshot() (Snapshot, error)
	ActiveOrder(tableID int) (domain.Order, bool, error)
	Submit(ctx context.Context, tableID int, req domain.SubmitOrderRequest) (domain.SubmitOrderResponse, error)
	UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error)
	CloseTable(ctx context.Context, tableID int) (domain.CloseTableResponse, error)
}

type Deps struct {
	Orders    repository.OrderRepositoryInterface
	Analytics analyticsrepo.AnalyticsRepositoryInterface
	Store     store.Store
	Changes   store.Subscriber
	Sessions  SessionEnsurer
	Events    events.Publisher
	Catalog   *menu.Catalog
	Policy    retry.Policy
	Tables    int
	Log       *logger.Logger
	Now       func() time.Time
}

type OrderService struct {
	orders    repository.OrderRepositoryInterface
	analytics analyticsrepo.AnalyticsRepositoryInterface
	store     store.Store
	changes   store.Subscriber
	sessions  SessionEnsurer
	events    events.Publisher
	catalog   *menu.Catalog
	policy    retry.Policy
	tables    int
	log       *logger.Logger
	now       func() time.Time

	mu     sync.RWMutex
	snap   Snapshot
	status Status

	// refreshMu serializes refetches; startMu serializes Start and Stop.
	refreshMu sync.Mutex
	startMu   sync.Mutex
	sub       store.Subscription
	// feedLost is set under mu when the change feed gave up; Start then
	// replaces the subscription.
	feedLost bool
}

func NewOrderService(d Deps) *OrderService {
	s := &OrderService{
		orders:    d.Orders,
		analytics: d.Analytics,
		store:     d.Store,
		changes:   d.Changes,
		sessions:  d.Sessions,
		events:    d.Events,
		catalog:   d.Catalog,
		policy:    d.Policy,
		tables:    d.Tables,
		log:       d.Log,
		now:       d.Now,
		status:    Status{State: StateStarting},
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.catalog == nil {
		s.catalog, _ = menu.Default()
	}
	return s
}

// Start ensures a session, loads the orders and subscribes to order changes.
// A failure is kept as the service status so terminals can show it and call
// Retry.
func (s *OrderService) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	err := s.start(ctx)

	s.mu.Lock()
	if err != nil {
		kind := auth.Classify(err)
		s.status = Status{State: StateFailed, Kind: kind, Message: auth.UserMessage(kind)}
	} else {
		s.status = Status{State: StateReady}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("start_failed", err, map[string]any{"kind": string(auth.Classify(err))})
		return err
	}
	s.log.Info("service_ready", map[string]any{"tables": s.tables})
	return nil
}

func (s *OrderService) start(ctx context.Context) error {
	if _, err := s.sessions.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	lost := s.feedLost
	s.feedLost = false
	s.mu.Unlock()
	if lost && s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	if s.sub == nil && s.changes != nil {
		sub, err := s.changes.Subscribe(ctx, ordersTable, nil, s.onChange)
		if err != nil {
			return fmt.Errorf("subscribe to order changes: %w", err)
		}
		s.sub = sub
	}
	return nil
}

func (s *OrderService) Retry(ctx context.Context) error {
	s.mu.Lock()
	s.status = Status{State: StateStarting}
	s.mu.Unlock()
	return s.Start(ctx)
}

func (s *OrderService) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.log.Warn("unsubscribe_failed", err, nil)
		}
		s.sub = nil
	}
}

func (s *OrderService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// onChange treats every order change, and a resync after a reconnect, as a
// signal to refetch everything. A lost feed takes the service out of ready
// until Retry subscribes again.
func (s *OrderService) onChange(ch store.Change) {
	if ch.Op == store.OpLost {
		kind := auth.KindConnectivity
		s.mu.Lock()
		s.feedLost = true
		s.status = Status{State: StateFailed, Kind: kind, Message: auth.UserMessage(kind)}
		s.mu.Unlock()
		s.log.Error("change_feed_lost", nil, map[string]any{"table": ch.Table})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("realtime_refresh_failed", err, map[string]any{"op": ch.Op, "id": ch.ID})
	}
}

// Refresh lists all orders and swaps in a new snapshot with recomputed
// table statuses.
func (s *OrderService) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	orders, err := s.orders.List(ctx)
	if err != nil {
		return err
	}
	snap := Snapshot{
		Orders:       orders,
		Tables:       tables.Grid(orders, s.tables),
		ParcelActive: len(tables.Active(orders, domain.ParcelTableID)) > 0,
		RefreshedAt:  s.now(),
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

func (s *OrderService) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status.State != StateReady {
		return Snapshot{}, ErrNotReady
	}
	return s.snap, nil
}

// ActiveOrder returns the newest non-terminal order at tableID.
func (s *OrderService) ActiveOrder(tableID int) (domain.Order, bool, error) {
	if err := s.checkTable(tableID); err != nil {
		return domain.Order{}, false, err
	}
	snap, err := s.Snapshot()
	if err != nil {
		return domain.Order{}, false, err
	}
	active := tables.Active(snap.Orders, tableID)
	if len(active) == 0 {
		return domain.Order{}, false, nil
	}
	return active[0], true, nil
}

// Submit appends the items to the table's active order when there is one
// and creates a pending order otherwise.
func (s *OrderService) Submit(ctx context.Context, tableID int, req domain.SubmitOrderRequest) (domain.SubmitOrderResponse, error) {
	if err := s.ready(); err != nil {
		return domain.SubmitOrderResponse{}, err
	}
	if err := s.checkTable(tableID); err != nil {
		return domain.SubmitOrderResponse{}, err
	}

	// 1. Build the draft
	draft, err := s.draft(req)
	if err != nil {
		return domain.SubmitOrderResponse{}, err
	}

	// 2. Find the active order, if any
	active, err := s.orders.ListActiveByTable(ctx, tableID)
	if err != nil {
		return domain.SubmitOrderResponse{}, err
	}

	var resp domain.SubmitOrderResponse
	if len(active) > 0 {
		// 3a. Append to it
		existing := active[0]
		newTotal := existing.Total + draft.Total()
		if err := s.orders.AppendItems(ctx, existing.ID, draft.Items(), newTotal); err != nil {
			return domain.SubmitOrderResponse{}, err
		}
		resp = domain.SubmitOrderResponse{
			OrderID:  existing.ID,
			TableID:  tableID,
			Appended: true,
			Status:   string(existing.Status),
			Total:    newTotal,
		}
		s.afterMutation(ctx, domain.OrderEvent{
			Type: domain.EventItemsAdded, OrderID: existing.ID, TableID: tableID, Total: newTotal,
		})
	} else {
		// 3b. Create a new one
		created, err := s.orders.Create(ctx, domain.NewOrder{
			TableID:      tableID,
			Items:        draft.Items(),
			SpecialNotes: req.SpecialNotes,
			Total:        draft.Total(),
		})
		if err != nil {
			return domain.SubmitOrderResponse{}, err
		}
		resp = domain.SubmitOrderResponse{
			OrderID: created.ID,
			TableID: tableID,
			Status:  string(created.Status),
			Total:   created.Total,
		}
		s.afterMutation(ctx, domain.OrderEvent{
			Type: domain.EventOrderCreated, OrderID: created.ID, TableID: tableID,
			NewStatus: created.Status, Total: created.Total,
		})
	}
	return resp, nil
}

// UpdateStatus moves an order along the state machine. Paying a single
// order goes through the same path as closing a table.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return domain.Order{}, err
	}
	order, ok := findOrder(snap.Orders, orderID)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", repository.ErrOrderNotFound, orderID)
	}
	if err := domain.CheckTransition(order.Status, to); err != nil {
		return domain.Order{}, err
	}

	if to == domain.StatusPaid {
		err = s.pay(ctx, []domain.Order{order})
	} else {
		err = s.orders.UpdateStatus(ctx, orderID, to)
	}
	if err != nil {
		return domain.Order{}, err
	}

	from := order.Status
	order.Status = to
	s.afterMutation(ctx, domain.OrderEvent{
		Type: domain.EventStatusChanged, OrderID: orderID, TableID: order.TableID,
		OldStatus: from, NewStatus: to, Total: order.Total,
	})
	return order, nil
}

// CloseTable marks every non-terminal order at the table paid and records
// one analytics entry per order, all in one transaction.
func (s *OrderService) CloseTable(ctx context.Context, tableID int) (domain.CloseTableResponse, error) {
	if err := s.ready(); err != nil {
		return domain.CloseTableResponse{}, err
	}
	if err := s.checkTable(tableID); err != nil {
		return domain.CloseTableResponse{}, err
	}
	active, err := s.orders.ListActiveByTable(ctx, tableID)
	if err != nil {
		return domain.CloseTableResponse{}, err
	}
	resp := domain.CloseTableResponse{TableID: tableID, Paid: []string{}}
	if len(active) == 0 {
		return resp, nil
	}
	if err := s.pay(ctx, active); err != nil {
		return domain.CloseTableResponse{}, err
	}
	for _, o := range active {
		resp.Paid = append(resp.Paid, o.ID)
	}
	s.afterMutation(ctx, domain.OrderEvent{
		Type: domain.EventTableClosed, TableID: tableID, OrderIDs: resp.Paid, NewStatus: domain.StatusPaid,
	})
	return resp, nil
}

func (s *OrderService) pay(ctx context.Context, orders []domain.Order) error {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(tx store.Store) error {
			if err := s.orders.MarkPaid(ctx, tx, ids); err != nil {
				return err
			}
			return s.analytics.RecordPaid(ctx, tx, orders)
		})
	})
}

// afterMutation publishes ev and refetches. Neither failure is returned:
// the write already succeeded and the next realtime change refetches again.
func (s *OrderService) afterMutation(ctx context.Context, ev domain.OrderEvent) {
	ev.Timestamp = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("event_publish_failed", err, map[string]any{"event": string(ev.Type), "order_id": ev.OrderID})
	}
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("refresh_after_write_failed", err, map[string]any{"event": string(ev.Type), "order_id": ev.OrderID})
	}
	s.log.Info(string(ev.Type), map[string]any{"order_id": ev.OrderID, "table_id": ev.TableID})
}

func (s *OrderService) draft(req domain.SubmitOrderRequest) (*menu.Draft, error) {
	d := menu.NewDraft()
	for _, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %q must be positive", ErrInvalidItem, in.Name)
		}
		if in.MenuID != "" {
			it, ok := s.catalog.Lookup(in.MenuID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownMenuItem, in.MenuID)
			}
			d.AddN(it, in.Quantity, in.Customizations)
			continue
		}
		if in.Name == "" || in.Price <= 0 {
			return nil, fmt.Errorf("%w: item without menu id needs a name and a positive price", ErrInvalidItem)
		}
		d.AddN(menu.Item{ID: "custom:" + in.Name, Name: in.Name, Price: in.Price, Image: in.Image}, in.Quantity, in.Customizations)
	}
	if d.Empty() {
		return nil, ErrEmptyOrder
	}
	return d, nil
}

func (s *OrderService) ready() error {
	if s.Status().State != StateReady {
		return ErrNotReady
	}
	return nil
}

func (s *OrderService) checkTable(id int) error {
	if id == domain.ParcelTableID || (id >= 1 && id <= s.tables) {
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownTable, id)
}

func findOrder(orders []domain.Order, id string) (domain.Order, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}
