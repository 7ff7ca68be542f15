// Package cli implements calsyncctl, the operator command line for the
// event store.
package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CalSync/internal/pkg/bootstrap"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
	"github.com/ManuelReschke/CalSync/internal/pkg/env"
)

// services is built lazily from the environment unless SetServices ran.
var services *bootstrap.Services

var rootCmd = &cobra.Command{
	Use:           "calsyncctl",
	Short:         "Operate the CalSync webhook pipeline",
	Long:          `Inspect, sweep and repair webhook events, identity mappings and provider subscriptions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if services != nil {
			return nil
		}
		env.SetupEnvFile()
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		svc, err := bootstrap.Build(cfg)
		if err != nil {
			return err
		}
		services = svc
		return nil
	},
}

// SetServices injects prebuilt services.
func SetServices(s *bootstrap.Services) {
	services = s
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if services != nil {
			_ = services.Close()
		}
	}()
	return rootCmd.Execute()
}

func requireServices() (*bootstrap.Services, error) {
	if services == nil {
		return nil, errors.New("services not configured")
	}
	return services, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
