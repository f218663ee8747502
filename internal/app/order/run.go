package order

import (
	"context"
	"fmt"
	"strconv"

	"restaurant-system/internal/auth"
	"restaurant-system/internal/common/config"
	"restaurant-system/internal/common/httpx"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/common/retry"
	"restaurant-system/internal/connections/database"
	"restaurant-system/internal/connections/rabbitmq"
	redisconn "restaurant-system/internal/connections/redis"
	"restaurant-system/internal/events"
	"restaurant-system/internal/menu"
	analyticsrepo "restaurant-system/internal/microservices/analytics/repository"
	analytics "restaurant-system/internal/microservices/analytics/service"
	kitchen "restaurant-system/internal/microservices/kitchen/service"
	"restaurant-system/internal/microservices/order/handlers"
	"restaurant-system/internal/microservices/order/repository"
	"restaurant-system/internal/microservices/order/service"
	"restaurant-system/internal/store"
)

type Options struct {
	// Migrate applies pending schema migrations before serving.
	Migrate bool
}

// Run wires the order service and serves the HTTP API until ctx is done.
// A failed start does not stop the server: terminals see the status and
// call /auth/retry.
func Run(ctx context.Context, cfg config.App, opts Options) error {
	lg := logger.New("order-service")

	if opts.Migrate {
		if err := database.Migrate(cfg.Store.URL, lg); err != nil {
			return err
		}
	}

	pool, err := database.Connect(ctx, cfg.Store, lg)
	if err != nil {
		return err
	}
	defer pool.Close()
	client := store.NewClient(pool)
	policy := retry.Policy{Attempts: cfg.Retry.Attempts, Base: cfg.Retry.BaseDelay, Log: lg}

	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	if cfg.Redis.Enabled() {
		rc, err := redisconn.Connect(ctx, cfg.Redis, lg)
		if err != nil {
			return err
		}
		defer rc.Close()
		sessions = auth.NewRedisSessionStore(rc, "")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Rabbit.Enabled() {
		mq, err := rabbitmq.Connect(ctx, cfg.Rabbit, lg)
		if err != nil {
			return err
		}
		defer mq.Close()
		pub = events.NewAMQPPublisher(mq, "order-service")
	}

	catalog, err := menu.Default()
	if err != nil {
		return fmt.Errorf("load menu: %w", err)
	}
	loc := cfg.Restaurant.Location()

	repo := repository.New(client, policy)
	arepo := analyticsrepo.NewAnalyticsRepository(client, policy)
	issuer := auth.NewTokenIssuer(cfg.Store.Key, cfg.Session.TTL)
	boot := &auth.Bootstrap{
		Sessions: sessions,
		Auth:     auth.NewPasswordAuthenticator(client, issuer),
		Creds:    auth.StaticCredentials{Email: cfg.Operator.Email, Password: cfg.Operator.Password},
		Tokens:   issuer,
		Policy:   policy,
		Log:      lg,
	}
	svc := service.New(service.Deps{
		Orders:    repo.OrderRepo,
		Analytics: arepo,
		Store:     client,
		Changes:   client,
		Sessions:  boot,
		Events:    pub,
		Catalog:   catalog,
		Policy:    policy,
		Tables:    cfg.Restaurant.Tables,
		Log:       lg,
	})
	orders := svc.OrderService
	_ = orders.Start(ctx)
	defer orders.Stop()

	h := handlers.New(orders,
		kitchen.NewKitchenService(orders, loc),
		analytics.NewAnalyticsService(arepo, loc),
		catalog,
	)
	srv := httpx.New(":"+strconv.Itoa(cfg.HTTP.Port), handlers.Router(h, lg), lg)
	return srv.Run(ctx)
}
