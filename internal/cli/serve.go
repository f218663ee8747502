package cli

import (
	"github.com/spf13/cobra"

	"restaurant-system/internal/app/order"
	"restaurant-system/internal/app/notify"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/connections/database"
)

func NewServeCommand(root *RootOptions) *cobra.Command {
	var opts order.Options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the POS HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return order.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}

func NewMigrateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return database.Migrate(cfg.Store.URL, logger.New("migrate"))
		},
	}
}

func NewNotifyCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Consume and log order events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return notify.Run(cmd.Context(), cfg.Rabbit)
		},
	}
}
