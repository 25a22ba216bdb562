// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the accountd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - user account service",
		Long: `accountd serves user accounts over HTTP: signup with email
verification, JWT sessions, subscription tiers and avatar uploads,
backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads the config file named by --config, or
// $XDG_CONFIG_HOME/accountd/config.yaml when present, then applies the
// flags explicitly set on fs and the secret environment variables.
func loadConfig(fs *pflag.FlagSet, getenv func(string) string) (*config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = xdg.DefaultConfigFile(getenv); err != nil {
			return nil, err
		}
	}
	return config.Load(config.LoadOptions{
		Flags:  fs,
		File:   path,
		Getenv: getenv,
	})
}
