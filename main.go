package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironspideychinu/TuckHub/config"
	"github.com/ironspideychinu/TuckHub/events"
	"github.com/ironspideychinu/TuckHub/handlers"
	"github.com/ironspideychinu/TuckHub/identity"
	"github.com/ironspideychinu/TuckHub/inventory"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/orders"
	"github.com/ironspideychinu/TuckHub/payment"
	"github.com/ironspideychinu/TuckHub/statemachine"
	"github.com/ironspideychinu/TuckHub/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Development())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	/* DATABASE SETUP STARTS */
	db, err := models.Open(cfg.DatabaseURI)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	/* DATABASE SETUP ENDS */

	hub := events.NewHub(cfg.AllowedOrigins, logger)
	var publisher events.Publisher = hub
	if cfg.EventRelayURL != "" {
		relay, err := events.NewRelay(cfg.EventRelayURL, logger)
		if err != nil {
			return err
		}
		defer relay.Close()
		publisher = events.Multi{hub, relay}
	}

	machine := statemachine.New(statemachine.FlowFor(cfg.DeliveryEnabled))
	ledger := inventory.NewLedger(db, logger)

	var (
		gateway    payment.Gateway
		reconciler *payment.Reconciler
	)
	if cfg.OrderFlow == config.FlowPayment {
		gateway = payment.NewHTTPGateway(cfg.PaymentAPIURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, cfg.PaymentTimeout)
		reconciler = payment.NewReconciler(db, machine, ledger, cfg.PaymentKeySecret, cfg.PaymentWebhookSecret, logger)
	}

	service := orders.NewService(db, machine, ledger, reconciler, gateway, publisher, orders.Settings{
		Flow:       cfg.OrderFlow,
		ServiceFee: cfg.ServiceFee,
		Currency:   cfg.Currency,
	}, logger)

	var microsoft *identity.Microsoft
	if cfg.MicrosoftLoginEnabled() {
		microsoft = identity.NewMicrosoft(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthTenantID, cfg.OAuthRedirectURL, cfg.AllowedEmailDomains)
	} else {
		logger.Warn("OAUTH_CLIENT_ID not set, student sign-in is disabled")
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(&handlers.Handler{
		DB:        db,
		Orders:    service,
		Ledger:    ledger,
		Tokens:    utils.NewTokenSigner(cfg.JWTSecret),
		Publisher: publisher,
		Socket:    hub,
		Microsoft: microsoft,
		ClientURL: cfg.ClientURL(),
		Logger:    logger,
	}, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Server listening",
			zap.String("addr", server.Addr),
			zap.String("order_flow", string(cfg.OrderFlow)),
			zap.String("fulfilment", machine.Flow().Name),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
