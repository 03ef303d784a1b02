package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/dcm-project/hpc-marketplace/internal/api_server"
	"github.com/dcm-project/hpc-marketplace/internal/events"
	handlers "github.com/dcm-project/hpc-marketplace/internal/handlers/v1"
	"github.com/dcm-project/hpc-marketplace/internal/service"
	"github.com/dcm-project/hpc-marketplace/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the marketplace api",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer zap.S().Info("API service stopped")

		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		zap.S().Info("Starting API service...")
		zap.S().Infow("Initializing data store", "type", cfg.Database.Type)
		db, err := store.InitDB(cfg.Database.Type, cfg.Database.DSN)
		if err != nil {
			zap.S().Errorw("initializing data store", "error", err)
			return err
		}
		dataStore := store.NewStore(db)
		defer dataStore.Close()

		publisher, err := events.NewPublisher(events.PublisherConfig{
			NATSURL:      cfg.Events.NATSURL,
			Timeout:      cfg.Events.Timeout,
			MaxReconnect: cfg.Events.MaxReconnect,
		})
		if err != nil {
			zap.S().Errorw("initializing event publisher", "error", err)
			return err
		}
		defer publisher.Close()

		listener, err := newListener(cfg.Service.Address)
		if err != nil {
			zap.S().Errorw("creating listener", "error", err)
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		handler := handlers.NewHandler(service.NewServices(dataStore, publisher))
		server := apiserver.New(cfg, listener, handler)
		zap.S().Infow("Listening", "address", listener.Addr().String())
		if err := server.Run(ctx); err != nil {
			zap.S().Errorw("Error running server", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("address", "", "listen address (overrides MARKETPLACE_ADDRESS)")
	serveCmd.Flags().String("db-type", "", "database type: sqlite or pgsql (overrides MARKETPLACE_DB_TYPE)")
	serveCmd.Flags().String("db-dsn", "", "database DSN (overrides MARKETPLACE_DB_DSN)")
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
