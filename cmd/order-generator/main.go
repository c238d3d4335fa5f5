// package main is the checkout demo driver. It generates random customers
// and product selections and pushes each one through the complete flow
// (order form → payment page → confirmation) against a running service,
// using the sandbox payment provider. The worker pool caps how many flows
// run at once. The driver supports graceful shutdown: on SIGINT/SIGTERM
// it stops launching flows and waits for the active ones to finish.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jejumarket/checkout-service/internal/config"
	"github.com/jejumarket/checkout-service/internal/flow/runner"
	"github.com/jejumarket/checkout-service/internal/payment"
	"github.com/jejumarket/checkout-service/internal/payment/sandbox"
	"github.com/jejumarket/checkout-service/internal/payment/tosspay"
	"github.com/jejumarket/checkout-service/lib/api/client"
	checkoutGen "github.com/jejumarket/checkout-service/lib/generator/checkout"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
	"github.com/jejumarket/checkout-service/lib/logger/slogpretty"
	"github.com/jejumarket/checkout-service/lib/workerpool"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.MustLoad()

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting checkout demo driver", slog.String("env", cfg.Env))

	api := client.New(cfg.Checkout.APIBaseURL, log)

	// Local runs pay through the in-memory sandbox; everything else drives
	// the real hosted widget. Mirrors the gateway selection in the service.
	newProvider := func() payment.Provider { return sandbox.New() }
	if cfg.Env != "local" {
		newProvider = func() payment.Provider { return tosspay.NewWidget(cfg.Payment) }
	}

	r := runner.New(api, newProvider, cfg.Checkout.Origin, log)

	products, err := api.ListItems(ctx)
	if err != nil {
		log.Error("failed to load catalog", sl.Err(err))
		os.Exit(1)
	}

	log.Info("catalog loaded", slog.Int("products", len(products)))

	pool := workerpool.New(r.Run)
	pool.Create()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	wg := &sync.WaitGroup{}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sigchan:
			break loop

		case <-ticker.C:
			sel := checkoutGen.GenerateSelection(products)
			if len(sel.Quantities) == 0 {
				log.Warn("nothing in stock, stopping")

				break loop
			}

			wg.Add(1)
			go func() {
				defer wg.Done()

				if err := pool.Handle(ctx, sel); err != nil {
					log.Error("checkout flow failed", sl.Err(err))
				}
			}()
		}
	}

	cancel()
	wg.Wait()

	log.Info("demo driver stopped")
}
