// Command rinha-reactor is the single binary that runs either the
// gateway or the worker role, selected by the MODE environment
// variable (see internal/config).
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/adminhttp"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/config"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/dispatch"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/gateway"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/store"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/telemetry"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rinha-reactor:", err)
		os.Exit(1)
	}

	roleName := "gateway"
	if cfg.Role == config.RoleWorker {
		roleName = "worker"
	}

	logger, err := telemetry.NewLogger(roleName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rinha-reactor: logger init failed:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics := telemetry.NewMetrics(roleName)

	if cfg.Role == config.RoleWorker {
		runWorker(cfg, logger, metrics)
		return
	}
	runGateway(cfg, logger, metrics)
}

func runGateway(cfg config.Config, logger *zap.Logger, metrics *telemetry.Metrics) {
	pool := dispatch.NewPool(cfg.SocketDir, logger)
	pool.Renew()

	disp := dispatch.NewDispatcher(pool, logger, metrics, 4096)
	go disp.Run()

	go serveAdmin(metrics, nil, logger, "127.0.0.1:9100")

	reactor, err := gateway.New(cfg.Port, disp, logger, metrics)
	if err != nil {
		logger.Fatal("gateway bind failed", zap.Error(err))
	}

	logger.Info("gateway listening", zap.Int("port", cfg.Port))
	if err := reactor.Run(); err != nil {
		logger.Fatal("gateway reactor stopped", zap.Error(err))
	}
}

func runWorker(cfg config.Config, logger *zap.Logger, metrics *telemetry.Metrics) {
	dbPath := filepath.Join(cfg.SocketDir, cfg.Host+".db")
	st, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	defer st.Close()

	go serveAdmin(metrics, st, logger, "127.0.0.1:9101")

	sockPath := filepath.Join(cfg.SocketDir, cfg.Host+".sock")
	reactor, err := worker.New(sockPath, st, logger, metrics)
	if err != nil {
		logger.Fatal("worker bind failed", zap.Error(err))
	}
	defer reactor.Close()

	logger.Info("worker listening", zap.String("socket", sockPath))
	if err := reactor.Run(); err != nil {
		logger.Fatal("worker reactor stopped", zap.Error(err))
	}
}

func serveAdmin(metrics *telemetry.Metrics, st *store.Store, logger *zap.Logger, addr string) {
	router := adminhttp.NewRouter(metrics.Registry, st, logger)
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("admin http server stopped", zap.Error(err))
	}
}
