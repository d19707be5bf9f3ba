package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igaudit/pkg/logger"
	"igaudit/pkg/scraper"
	"igaudit/pkg/server"
	"igaudit/pkg/ui"
)

var (
	listenAddr string
	serveDelay time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local command and observer server",
	Long: `Serve the scan engine over HTTP and WebSocket on the loopback interface.

Endpoints:
  POST /api/commands   START_SCAN / STOP_SCAN
  GET  /api/state      current stored values (?keys=a,b)
  GET  /api/ws         snapshot then live {key,newValue} changes
  GET  /api/export     results document (?download=1 for an attachment)
  POST /api/import     load a previously exported document
  GET  /healthz        liveness

A START_SCAN without userId or csrfToken uses the configured credential
sources.`,
	Example: `  igaudit serve
  igaudit serve --listen 127.0.0.1:9000 --delay 2s`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config)")
	serveCmd.Flags().DurationVar(&serveDelay, "delay", 0, "default delay between pages (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{"listen": listenAddr}
	if cmd.Flags().Changed("delay") {
		flags["delay"] = serveDelay
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	s, err := scraper.New(cfg, log, scraper.WithNotifier(ui.NewNotifier()))
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := server.NewServer(server.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		Engine:       s.Engine(),
		Store:        s.Store(),
		Credentials:  s.Credentials(),
		DefaultDelay: cfg.Scan.Delay,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.WithField("addr", cfg.Server.ListenAddr).Info("Server listening")
	ui.PrintInfo("Listening on", "http://"+cfg.Server.ListenAddr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
