package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	"github.com/SedlarDavid/sqltools-mcp/internal/db"
	"github.com/SedlarDavid/sqltools-mcp/internal/logger"
	"github.com/SedlarDavid/sqltools-mcp/internal/server"
	"github.com/SedlarDavid/sqltools-mcp/internal/tools"
)

const shutdownTimeout = 5 * time.Second

// app is everything a transport needs, built once per process.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	logFile  io.Closer
	provider *db.Provider
	metrics  *server.Metrics
	mcp      *mcpserver.MCPServer
}

func newApp(cmd *cobra.Command, f *rootFlags) (*app, error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.New(logger.FromConfig(cfg))
	if err != nil {
		return nil, err
	}
	provider, err := db.NewProvider(cfg, db.WithLogger(log))
	if err != nil {
		closer.Close()
		return nil, err
	}
	metrics := server.NewMetrics()
	svc := tools.New(provider, cfg, log)

	log.Info("starting",
		slog.String("version", server.ServerVersion),
		slog.String("target", cfg.Target()),
		slog.String("schema", cfg.Schema),
		slog.Bool("read_only", cfg.ReadOnly))

	return &app{
		cfg:      cfg,
		log:      log,
		logFile:  closer,
		provider: provider,
		metrics:  metrics,
		mcp:      server.New(svc, log, metrics),
	}, nil
}

func (a *app) close() {
	_ = a.logFile.Close()
}

// serveOps starts the metrics listener when configured and returns a
// function that stops it.
func (a *app) serveOps() func(context.Context) {
	if a.cfg.MetricsAddr == "" {
		return func(context.Context) {}
	}
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           server.OpsRouter(a.metrics, a.provider, a.log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("ops listener started", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("ops listener", slog.Any("error", err))
		}
	}()
	return func(ctx context.Context) { _ = srv.Shutdown(ctx) }
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runStdio(cmd *cobra.Command, f *rootFlags) error {
	a, err := newApp(cmd, f)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()
	stopOps := a.serveOps()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopOps(sctx)
	}()

	stdio := mcpserver.NewStdioServer(a.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(a.log.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runHTTP(cmd *cobra.Command, f *rootFlags) error {
	a, err := newApp(cmd, f)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()
	stopOps := a.serveOps()

	httpSrv := mcpserver.NewStreamableHTTPServer(a.mcp, mcpserver.WithEndpointPath("/mcp"))
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http transport started", slog.String("addr", a.cfg.HTTPAddr), slog.String("path", "/mcp"))
		errCh <- httpSrv.Start(a.cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopOps(sctx)
	if err := httpSrv.Shutdown(sctx); err != nil {
		a.log.Warn("http shutdown", slog.Any("error", err))
	}
	return nil
}
