package cli

import (
	"github.com/spf13/cobra"

	"restaurant-system/internal/common/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// load reads the configuration file named by --config, or the first one
// found in the default locations. Environment variables alone are enough.
func (o *RootOptions) load() (config.App, error) {
	path := o.ConfigPath
	if path == "" {
		path, _ = config.FindConfig()
	}
	return config.Load(path)
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "restaurant-system",
		Short:         "Restaurant point-of-sale backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config.yaml")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewNotifyCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewOperatorCommand(opts))
	return cmd
}
