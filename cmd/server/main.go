package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	app "battle-relay/internal/app"
	httpx "battle-relay/internal/http"
	relay "battle-relay/internal/relay"
	transport "battle-relay/internal/transport"
	metrics "battle-relay/pkg/metrics"
	ratelimit "battle-relay/pkg/ratelimit"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Session manager + collectors
	met := metrics.New(prometheus.DefaultRegisterer)
	mgr := relay.NewManager(logger, met)

	// TCP relay listener
	lis, err := net.Listen("tcp", cfg.TCPAddr)
	if err != nil {
		logger.Error("tcp.listen", "err", err)
		log.Fatal(err)
	}
	limiter := ratelimit.New(cfg.RateMax, time.Minute)
	tcp := transport.NewTCPServer(logger, mgr, limiter)
	go func() {
		logger.Info("relay.listening", "addr", cfg.TCPAddr)
		if err := tcp.Serve(ctx, lis); err != nil {
			logger.Error("relay.crash", "err", err)
			cancel()
		}
	}()

	// Status page + metrics + WebSocket transport
	wsh := transport.NewWSHandler(logger, mgr)
	router := httpx.NewRouter(cfg, logger, mgr, wsh)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("status.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("status.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
}
