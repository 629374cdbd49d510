package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Project-Sylos/Canopy/internal/api"
	"github.com/Project-Sylos/Canopy/internal/pagestore"
	"github.com/spf13/cobra"
)

var (
	seedSpace string
	dbPath    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference page store HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Store.DBPath = dbPath
		}

		store, err := pagestore.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to open page store: %w", err)
		}

		if seedSpace != "" {
			count, err := store.Seed(seedSpace)
			if err != nil {
				store.Close()
				return fmt.Errorf("failed to seed space %s: %w", seedSpace, err)
			}
			logger.Info().Str("space_id", seedSpace).Int("pages", count).Msg("seeded demo space")
		}

		server := api.NewServer(store, &cfg.API, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			store.Close()
			return err
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info().Msg("server shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&seedSpace, "seed", "", "Generate a demo hierarchy in this space before serving")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "DuckDB file path, or :memory: (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
