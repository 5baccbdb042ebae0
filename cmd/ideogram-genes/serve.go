package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/config"
	"github.com/inodb/ideogram-genes/internal/duckdb"
	"github.com/inodb/ideogram-genes/internal/metrics"
	"github.com/inodb/ideogram-genes/internal/render"
	"github.com/inodb/ideogram-genes/internal/server"
	"github.com/inodb/ideogram-genes/internal/session"
	"github.com/inodb/ideogram-genes/internal/view"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the viewer API over HTTP",
		Long: `Serve one viewer session over HTTP. Upload gene lists to /api/upload, pick a
gene with /api/select, and read the ideogram parameters from /api/ideogram.`,
		Example: `  ideogram-genes serve
  ideogram-genes serve --addr 127.0.0.1:9000 --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	bindFlag(cmd.Flags().Lookup("addr"), "server.addr")
	return cmd
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector(metricsNamespace)
	p, err := newPipeline(cfg, logger, m)
	if err != nil {
		return err
	}
	defer p.Close()

	if p.store != nil {
		sched, err := schedulePurge(p.store, cfg.Cache, logger.Named("cache"))
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	rec := render.NewRecorder()
	adapter := render.NewAdapter(rec)
	adapter.SetLogger(logger.Named("render"))
	adapter.SetMetrics(m)

	sess, err := session.New(p.resolver, adapter, view.New(cfg.AssemblyValue(), cfg.OrientationValue()))
	if err != nil {
		return err
	}
	defer sess.Close()
	sess.SetLogger(logger.Named("session"))
	sess.SetMetrics(m)

	srv := server.New(server.Options{
		Session: sess,
		Adapter: adapter,
		Metrics: m,
		Logger:  logger.Named("http"),
		Version: version,
	})

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(cfg.Server.Addr)
	}()

	logger.Info("serving",
		zap.String("addr", cfg.Server.Addr),
		zap.String("assembly", cfg.Assembly),
		zap.String("service", fmt.Sprintf("%s://%s:%d", cfg.Service.Scheme, cfg.Service.Host, cfg.Service.Port)))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errc
}

// schedulePurge removes expired hits from the cache every purge interval.
func schedulePurge(store *duckdb.Store, cfg config.Cache, logger *zap.Logger) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(cfg.PurgeInterval).Do(func() {
		n, err := store.PurgeOlderThan(cfg.TTL)
		if err != nil {
			logger.Warn("hit cache purge failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Debug("purged expired hits", zap.Int64("rows", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling cache purge: %w", err)
	}
	s.StartAsync()
	return s, nil
}
