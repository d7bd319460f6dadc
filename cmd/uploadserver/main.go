package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/attachkit/internal/middleware"
	"github.com/opsdesk/attachkit/internal/observability"
	"github.com/opsdesk/attachkit/internal/storage"
	"github.com/opsdesk/attachkit/internal/uploadserver"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		dataDir     = flag.String("data", "./data/uploads", "directory for stored upload content")
		metricsPort = flag.String("metrics-port", "9090", "port for /metrics and /health")
		apiKeys     = flag.String("api-keys", "", "comma-separated API keys; empty disables auth")
		dev         = flag.Bool("dev", false, "development logging")
	)
	flag.Parse()

	logger, err := observability.InitLogger(*dev)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	tp, err := observability.InitTracerProvider(ctx, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer observability.ShutdownTracerProvider(ctx, tp, logger)

	observability.StartMetricsServer(*metricsPort, logger)

	store, err := storage.NewFilesystemStorage(*dataDir)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("dir", *dataDir), zap.Error(err))
	}

	srv := uploadserver.New(uploadserver.Config{
		Storage: store,
		Index:   uploadserver.NewIndex(),
		Logger:  logger,
	})

	wrappers := []middleware.Middleware{middleware.Logging(logger)}
	if *apiKeys != "" {
		keys := make(map[string]bool)
		for _, k := range strings.Split(*apiKeys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys[k] = true
			}
		}
		wrappers = append(wrappers, middleware.APIKeyAuth(keys))
	}
	handler := middleware.Chain(wrappers...)(srv.Handler())

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("upload server listening", zap.String("addr", *addr), zap.String("data_dir", *dataDir))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("upload server stopped")
}
