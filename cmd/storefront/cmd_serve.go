package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nevelline/storefront/internal/cart"
	"github.com/nevelline/storefront/internal/checkout"
	apihttp "github.com/nevelline/storefront/internal/http"
	"github.com/nevelline/storefront/internal/orderapi"
	"github.com/nevelline/storefront/internal/paystack"
	"github.com/nevelline/storefront/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting storefront",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("api_url", cfg.APIURL))

	kv, closeStorage, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	aj, err := openJournal(cfg.Journal, log)
	if err != nil {
		return err
	}

	orders := orderapi.NewClient(cfg.APIURL, cfg.Checkout.OrderTimeout, log)
	widget := paystack.NewWidget(paystack.Config{
		BaseURL:     cfg.Paystack.BaseURL,
		PublicKey:   cfg.Paystack.PublicKey,
		SecretKey:   cfg.Paystack.SecretKey,
		Currency:    cfg.Paystack.Currency,
		CallbackURL: cfg.Paystack.CallbackURL,
		Timeout:     cfg.Checkout.PaymentTimeout,
	}, log)
	if cfg.Paystack.SecretKey == "" {
		log.Warn("PAYSTACK_SECRET_KEY is not set, checkout will fail at payment handoff")
	}

	registry := session.NewRegistry(kv, func(sessionID string, c *cart.Store) *checkout.Orchestrator {
		opts := []checkout.Option{
			checkout.WithLogger(log),
			checkout.WithStepTimeouts(cfg.Checkout.OrderTimeout, cfg.Checkout.PaymentTimeout),
		}
		if aj.journal != nil {
			opts = append(opts, checkout.WithJournal(aj.journal))
		}
		return checkout.NewOrchestrator(sessionID, c, orders, widget, opts...)
	}, log)

	verifier := newVerifier(cfg, log)
	checkoutTimeout := cfg.Checkout.OrderTimeout + cfg.Checkout.PaymentTimeout
	longest := max(cfg.RequestTimeout, checkoutTimeout, verifier.Budget())

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: apihttp.NewRouter(apihttp.RouterConfig{
			Sessions:        registry,
			Verifier:        verifier,
			RequestTimeout:  cfg.RequestTimeout,
			CheckoutTimeout: checkoutTimeout,
			VerifyTimeout:   verifier.Budget(),
			Logger:          log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: longest + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		registry.RunEviction(gctx, cfg.Session.EvictInterval, cfg.Session.IdleTimeout)
		return nil
	})
	if aj.poller != nil {
		g.Go(func() error {
			aj.poller.Run(gctx)
			return nil
		})
	}

	runErr := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := registry.CloseAll(flushCtx); err != nil {
		log.Warn("some carts were not flushed", zap.Error(err))
	}
	aj.close(flushCtx, log)

	if runErr != nil {
		log.Error("server stopped with error", zap.Error(runErr))
		return runErr
	}
	log.Info("server exited")
	return nil
}
