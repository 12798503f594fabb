package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/handler"
	"github.com/noah-isme/slack-archv/internal/middleware"
	"github.com/noah-isme/slack-archv/internal/service"
	"github.com/noah-isme/slack-archv/pkg/config"
	"github.com/noah-isme/slack-archv/pkg/logger"
	corsmiddleware "github.com/noah-isme/slack-archv/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/slack-archv/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the archive as a read-only JSON API",
	Long: `Start an HTTP server exposing the archive:

  GET /health                     liveness
  GET /ready                      database reachability
  GET /metrics                    Prometheus metrics
  GET /metrics/summary            process counters
  GET /stats                      archive statistics
  GET /channels                   channels with message counts
  GET /channels/:id               channel with members
  GET /channels/:id/messages      transcript page (since, until, limit, offset)
  GET /channels/:id/messages/:ts/reactions
                                  reactions on one message
  GET /users                      users (page, page_size, include_bots, include_deleted)

The server stops on Ctrl+C or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "listen port (default HTTP_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		a.cfg.HTTP.Port = port
	}
	if err := a.schema.Ensure(cmd.Context()); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler:           newRouter(a.cfg, a.logger, a.metrics, a.browser(), a.db),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	a.logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type readinessProbe interface {
	PingContext(ctx context.Context) error
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, browse *service.BrowseService, db readinessProbe) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.HTTP.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	browseHandler := handler.NewBrowseHandler(browse)
	r.GET("/stats", browseHandler.Stats)
	r.GET("/channels", browseHandler.ListChannels)
	r.GET("/channels/:id", browseHandler.GetChannel)
	r.GET("/channels/:id/messages", browseHandler.ListMessages)
	r.GET("/channels/:id/messages/:ts/reactions", browseHandler.ListReactions)
	r.GET("/users", browseHandler.ListUsers)

	return r
}
