package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/router-for-me/RoutingEngine/internal/app"
	"github.com/router-for-me/RoutingEngine/internal/security"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "routing-engine",
		Short: "Cost-aware routing and caching engine for model providers",
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newAPIKeyCommand())
	root.AddCommand(newAdminTokenCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the routing engine server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Migrate(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}

func newAPIKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "api-key",
		Short: "Generate an API key and its bcrypt hash for auth.api-key-hashes",
		RunE: func(_ *cobra.Command, _ []string) error {
			key, errGenerate := security.GenerateAPIKey()
			if errGenerate != nil {
				return errGenerate
			}
			hash, errHash := security.HashAPIKey(key)
			if errHash != nil {
				return errHash
			}
			fmt.Printf("api key: %s\nhash:    %s\n", key, hash)
			return nil
		},
	}
}

func newAdminTokenCommand() *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint an admin JWT for the /v0/admin API",
		RunE: func(_ *cobra.Command, _ []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			token, errGenerate := security.GenerateAdminToken(secret, subject, ttl)
			if errGenerate != nil {
				return errGenerate
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "JWT secret (auth.jwt-secret)")
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
