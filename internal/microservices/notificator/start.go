package notificator

import (
	"context"

	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/connections/rabbitmq"
	"restaurant-system/internal/microservices/notificator/service"
)

func Start(ctx context.Context, rmqClient *rabbitmq.Client) error {
	lg := logger.New("notification-subscriber")
	svc := service.NewNotificatorService(rmqClient, rabbitmq.NotificationsQueue, lg)
	lg.Info("service_started", map[string]any{"queue": rabbitmq.NotificationsQueue})
	return svc.Notify(ctx)
}
