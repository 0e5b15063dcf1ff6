package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog-auth/config"
	"github.com/goliatone/go-blog-auth/logging"
)

type globalFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "blogauth",
		Short:         "Authentication and authorization service for the blog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
		newAddRoleCmd(flags),
		newHashPasswordCmd(),
	)

	return rootCmd
}

func loadConfig(flags *globalFlags) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Options{
		Level:   cfg.Logger.Level,
		Format:  cfg.Logger.Format,
		Service: "blogauth",
	})
	if cfg.Server.Debug {
		logger.Debug("configuration\n" + cfg.String())
	}
	return cfg, logger, nil
}
