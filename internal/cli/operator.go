package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"restaurant-system/internal/auth"
	"restaurant-system/internal/common/logger"
	"restaurant-system/internal/connections/database"
	"restaurant-system/internal/store"
)

func NewOperatorCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage staff accounts the terminals sign in with",
	}
	cmd.AddCommand(newOperatorAddCommand(root))
	return cmd
}

func newOperatorAddCommand(root *RootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account; the password is read from POS_NEW_OPERATOR_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("POS_NEW_OPERATOR_PASSWORD")
			if password == "" {
				return errors.New("POS_NEW_OPERATOR_PASSWORD is not set")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			lg := logger.New("operator")
			pool, err := database.Connect(cmd.Context(), cfg.Store, lg)
			if err != nil {
				return err
			}
			defer pool.Close()

			id, err := auth.CreateAccount(cmd.Context(), store.NewClient(pool), email, password, 0)
			if err != nil {
				return err
			}
			lg.Info("operator_created", map[string]any{"account_id": id, "email": email})
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
