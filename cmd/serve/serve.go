// Package serve implements the HTTP API command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/stmt-forensics/cmd/root"
	"fjacquet/stmt-forensics/internal/api"
	"fjacquet/stmt-forensics/internal/container"
	"fjacquet/stmt-forensics/internal/logging"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the repair and validation API over HTTP",
	Long: `Serve the repair and validation API over HTTP.
When batch.schedule and batch.watch_dir are configured, the watched
directory is also re-analyzed on that cron schedule.

Example:
  stmt-forensics serve --addr :8080
  FORENSICS_BATCH_SCHEDULE="0 2 * * *" FORENSICS_BATCH_WATCH_DIR=/data stmt-forensics serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if !cmd.Flags().Changed("addr") {
			addr = c.GetConfig().Server.Addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		return Serve(ctx, c, ln)
	},
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address (defaults to server.addr)")
}

// Serve runs the API on ln until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, c *container.Container, ln net.Listener) error {
	log := c.GetLogger()
	cfg := c.GetConfig()

	if cfg.Batch.Schedule != "" && cfg.Batch.WatchDir != "" {
		scheduler := cron.New()
		if _, err := c.GetRunner().Schedule(ctx, scheduler, cfg.Batch.Schedule, cfg.Batch.WatchDir); err != nil {
			_ = ln.Close()
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		log.Info("Scheduled re-analysis enabled",
			logging.Field{Key: "schedule", Value: cfg.Batch.Schedule},
			logging.Field{Key: logging.FieldFile, Value: cfg.Batch.WatchDir})
	}

	server := &http.Server{
		Handler:           api.NewRouter(c),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server", logging.Field{Key: "addr", Value: ln.Addr().String()})
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}
