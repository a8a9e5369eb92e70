package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simp-lee/dashboard/internal/app"
	"github.com/simp-lee/dashboard/internal/config"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}

			if err := a.Run(); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to configuration file")
	return cmd
}
