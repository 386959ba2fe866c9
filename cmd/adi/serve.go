package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vals/anndata-design-inspector/internal/adapters/cache"
	"github.com/vals/anndata-design-inspector/internal/adapters/httpapi"
	"github.com/vals/anndata-design-inspector/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON HTTP server",
	Long: `Starts the inspector as a JSON API over HTTP, exposing classification,
grammar serialization and file inspection endpoints plus Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			fail(err)
		}
		engine, err := buildEngine(cfg, logger)
		if err != nil {
			fail(err)
		}

		var opts []httpapi.Option
		if cfg.Cache.Enabled {
			opts = append(opts, httpapi.WithReportCache(newCache(cfg.Cache), cfg.Cache.TTL))
		}
		srv := httpapi.NewServer(engine, logger, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.ListenAndServe(ctx, cfg.Serve.Addr); err != nil && err != http.ErrServerClosed {
			fail(err)
		}
		logger.Info("server stopped gracefully")
	},
}

// newCache picks redis when an address is configured, in-memory otherwise.
func newCache(cfg config.CacheConfig) cache.Cache {
	if cfg.Redis != "" {
		return cache.NewRedis(cfg.Redis, cfg.Password, cfg.DB)
	}
	return cache.NewMemory()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("cache", false, "Enable the inspection report cache")
	serveCmd.Flags().String("cache-redis", "", "Redis address for the report cache (host:port)")
	serveCmd.Flags().Duration("cache-ttl", 0, "Report cache TTL")
}
