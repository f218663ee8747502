package notify

import (
	"context"
	"errors"

	"restaurant-system/internal/common/config"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/connections/rabbitmq"
	"restaurant-system/internal/microservices/notificator"
)

// Run consumes order events from the notifications queue until ctx is done.
func Run(ctx context.Context, cfg config.MQ) error {
	if !cfg.Enabled() {
		return errors.New("rabbitmq is not configured: set POS_RABBITMQ_HOST")
	}
	mq, err := rabbitmq.Connect(ctx, cfg, logger.New("notification-subscriber"))
	if err != nil {
		return err
	}
	defer mq.Close()
	return notificator.Start(ctx, mq)
}
