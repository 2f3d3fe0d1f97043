package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celestia-astro/astroprobe/config"
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/mockapi"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/spf13/cobra"
)

const (
	defaultMockPort          = 8111
	defaultMockWebhookSecret = "whsec_astroprobe_mock"
	mockShutdownTimeout      = 5 * time.Second
)

// demo accounts seeded when the configuration has none
var (
	demoClient = config.Account{Email: "client@example.com", Password: "client-password"}
	demoAdmin  = config.Account{Email: "admin@example.com", Password: "admin-password"}
)

func newMockCmd(configFile *string) *cobra.Command {
	var port int
	var host string
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve an in-memory mock of the booking API",
		Long: `Serves a mock of the booking API, seeded with the client and admin accounts from
the configuration (or demo accounts if none are configured), until interrupted.
Point "astroprobe run --url" at the printed address to try the tests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, *configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveMock(ctx, cmd, cfg, fmt.Sprintf("%s:%d", host, port))
		},
	}
	cmd.Flags().IntVar(&port, "port", defaultMockPort, "port to listen on (0 for any)")
	cmd.Flags().StringVar(&host, "host", "localhost", "interface to listen on")
	return cmd
}

// serveMock runs the mock until ctx is done.
func serveMock(ctx context.Context, cmd *cobra.Command, cfg config.Config, addr string) error {
	logger := newLogger(cmd)
	client, admin := cfg.Client, cfg.Admin
	if !client.Configured() {
		client = demoClient
	}
	if !admin.Configured() {
		admin = demoAdmin
	}
	secret := cfg.WebhookSecret
	if secret == "" {
		secret = defaultMockWebhookSecret
	}

	api, err := mockapi.New(mockapi.Options{
		WebhookSecret: secret,
		Logger:        logger,
		Users: []mockapi.UserSeed{
			{
				Email:     client.Email,
				Name:      "Mock Client",
				Password:  client.Password,
				Role:      servicedef.RoleClient,
				BirthInfo: &servicedef.BirthInfo{BirthDate: "1990-05-17", BirthTime: "08:30", BirthPlace: "Chicago, IL"},
			},
			{Email: admin.Email, Name: "Mock Admin", Password: admin.Password, Role: servicedef.RoleAdmin},
		},
	})
	if err != nil {
		return err
	}
	server, err := framework.StartServer(addr, api, logger)
	if err != nil {
		return fmt.Errorf("could not start mock API: %w", err)
	}
	logger.Info("Mock API listening", "url", server.URL())
	logger.Info("Seeded accounts", "client", client.Email, "admin", admin.Email)
	if cfg.WebhookSecret == "" {
		logger.Info("Webhook signing secret", "secret", secret)
	}

	select {
	case err := <-server.Done():
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), mockShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
