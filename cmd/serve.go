package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance web server.
The server exposes the upload page, the recognition API and the attendance
log. HOST and PORT environment variables override the flags.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8000, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}
	if envHost := os.Getenv("HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	cfg.Server.Port, cfg.Server.Host = resolveServeHostPort(cmd)

	rt, err := newRuntime(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := web.NewServer(cfg, rt.service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Printf("Starting Face Attendance on http://%s\n", cfg.Server.Addr())
	if cfg.Server.APIToken == "" {
		fmt.Println("Warning: API_TOKEN is not set, mutating routes are open")
	}
	fmt.Println("Press Ctrl+C to stop")

	// rt.Close runs after this returns, so in-flight requests must be drained by then.
	return serveUntilStopped(sigChan, server.Start, func() {
		fmt.Println("\nShutting down...")
		rt.saveIndex(cfg.Gallery.HNSWIndexPath)

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	})
}

// serveUntilStopped runs start and calls shutdown once stop fires. Start
// returns as soon as shutdown begins, so the function waits for shutdown to
// finish before returning.
func serveUntilStopped(stop <-chan os.Signal, start func() error, shutdown func()) error {
	quit := make(chan struct{})
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-stop:
			shutdown()
		case <-quit:
		}
	}()

	if err := start(); err != nil {
		close(quit)
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
