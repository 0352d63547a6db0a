// Command server exposes run history and an authenticated trigger for batch downloads over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"stock_retriever/internal/app/config"
	"stock_retriever/internal/app/di"
	"stock_retriever/internal/app/router"
	runhandler "stock_retriever/internal/feature/download/transport/handler"
	healthhandler "stock_retriever/internal/platform/http/handler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load(config.New())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	r, err := di.NewRetriever(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.JWTSecret == "" {
		slog.Warn("jwt-secret is not set; POST /runs will answer 500")
	}

	// バックグラウンド実行はサーバー停止時にキャンセルされる
	runs := runhandler.NewRunHandler(ctx, r.Usecase)
	health := healthhandler.Health(map[string]healthhandler.Check{"run_store": r.RunStore.Ping})

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(runs, health, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "run_store", r.RunStore.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	// 実行中のバッチは投入を止め、最終状態を保存してから終了する
	runs.Wait()
	return err
}
