package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jejumarket/checkout-service/internal/config"
	itemsList "github.com/jejumarket/checkout-service/internal/http-server/handlers/items/list"
	orderCreate "github.com/jejumarket/checkout-service/internal/http-server/handlers/order/create"
	orderGet "github.com/jejumarket/checkout-service/internal/http-server/handlers/order/get"
	paymentApprove "github.com/jejumarket/checkout-service/internal/http-server/handlers/payment/approve"
	sessionActivate "github.com/jejumarket/checkout-service/internal/http-server/handlers/session/activate"
	mwLogger "github.com/jejumarket/checkout-service/internal/http-server/middleware/logger"
	"github.com/jejumarket/checkout-service/internal/payment"
	"github.com/jejumarket/checkout-service/internal/payment/sandbox"
	"github.com/jejumarket/checkout-service/internal/payment/tosspay"
	"github.com/jejumarket/checkout-service/internal/storage/kafka"
	"github.com/jejumarket/checkout-service/internal/storage/postgres"
	"github.com/jejumarket/checkout-service/internal/storage/redis"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
	"github.com/jejumarket/checkout-service/lib/logger/slogpretty"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	wg := &sync.WaitGroup{}

	cfg := config.MustLoad()

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting checkout service", slog.String("env", cfg.Env))

	storage, err := postgres.New(cfg.Postgres, log)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	log.Info("storage init successful")

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to init cache", sl.Err(err))
		os.Exit(1)
	}

	if err := cache.Warm(ctx, storage); err != nil {
		log.Error("failed to warm cache", sl.Err(err))
		os.Exit(1)
	}

	log.Info("cache init successful")

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Error("failed to init producer", sl.Err(err))
		os.Exit(1)
	}

	log.Info("producer init successful")

	wg.Add(1)
	go producer.HandleResult(ctx, wg)

	// The local environment confirms charges against the in-memory sandbox;
	// everything else talks to the real provider.
	var gateway payment.Gateway
	if cfg.Env == "local" {
		gateway = sandbox.New()
	} else {
		gateway = tosspay.NewGateway(cfg.Payment)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)

	router.Route("/api", func(r chi.Router) {
		r.Get("/items", itemsList.New(log, storage))
		r.Post("/orders", orderCreate.New(log, storage, cache, producer))
		r.Get("/orders/{orderId}", orderGet.New(log, cache, storage, cache))
		r.Post("/orders/{orderId}/payments", paymentApprove.New(log, storage, cache, gateway, producer))
		r.Post("/sessions", sessionActivate.New(log))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", sl.Err(err))
		}
	}()

	log.Info("server started", slog.String("address", cfg.HTTPServer.Address))

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	<-sigchan

	log.Info("shutting down server")

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	cancel()
	wg.Wait()

	log.Info("stopping producer")
	producer.Producer.Close()
}
