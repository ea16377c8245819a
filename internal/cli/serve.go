package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/cache"
	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/metrics"
	"github.com/roach88/recon/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Source SourceOptions

	Addr       string
	CacheTTL   time.Duration
	CacheMB    int
	NoCache    bool
	NoMetrics  bool
	ShutdownIn time.Duration

	// Ready, if set, receives the bound address once the listener is up
	// (for testing with --addr 127.0.0.1:0).
	Ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reconciliation reports over HTTP",
		Long: `Load two datasets once and serve reconciliation reports for them.

Endpoints:
  GET /health          liveness
  GET /api/datasets    loaded dataset names, columns and row counts
  GET /api/reconcile   full report; query: tolerance, slider, min, max, policy
  GET /api/summary     bucket summary and stats only
  GET /metrics         Prometheus metrics

Reports are cached by content (datasets + config), so repeated requests
with equivalent parameters do not re-run the pipeline.

Examples:
  recon serve --db ./trades.db --addr :8080
  recon serve --case ./cases/mixed.yaml --slider
  RECON_DB=./trades.db RECON_ADDR=:9090 recon serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	opts.Source.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&opts.CacheTTL, "cache-ttl", cache.DefaultTTL, "report cache entry lifetime")
	cmd.Flags().IntVar(&opts.CacheMB, "cache-mb", cache.DefaultMaxMB, "report cache size limit in MB")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "disable the report cache")
	cmd.Flags().BoolVar(&opts.NoMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().DurationVar(&opts.ShutdownIn, "shutdown-timeout", 5*time.Second, "grace period for in-flight requests")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	// The server logs every request, so it logs at info unless --verbose.
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	ds, err := opts.Source.Load(parentCtx)
	if err != nil {
		return reportCommandError(formatter, err)
	}
	logger.Info("datasets loaded", "origin", ds.Origin, "left", ds.Left.Len(), "right", ds.Right.Len())

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithEngine(engine.New(engine.WithLogger(logger))),
	}
	if !opts.NoCache {
		rc, err := cache.NewReportCache(opts.CacheTTL, opts.CacheMB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create report cache", err)
		}
		defer rc.Close()
		serverOpts = append(serverOpts, server.WithCache(rc))
	}
	if !opts.NoMetrics {
		serverOpts = append(serverOpts, server.WithMetrics(metrics.New()))
	}

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(ds.Left, ds.Right, ds.Config, serverOpts...)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("listening", "addr", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving reports on http://%s (Ctrl-C to stop)\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownIn)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
