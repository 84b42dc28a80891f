package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/controllers"
	"github.com/steamtrust/backend/controllers/accounts"
	"github.com/steamtrust/backend/controllers/admin"
	"github.com/steamtrust/backend/routers"
	svc "github.com/steamtrust/backend/services"
	"github.com/steamtrust/backend/services/b2b"
	"github.com/steamtrust/backend/services/email"
	"github.com/steamtrust/backend/services/notification"
	"github.com/steamtrust/backend/services/provider"
	"github.com/steamtrust/backend/storage"
	"github.com/steamtrust/backend/tasks"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	if err := logger.Init(conf.Server.Environment, conf.Server.SentryDSN, conf.Server.LogLevel); err != nil {
		logger.Errorf("logger: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	db, dialect, err := storage.DBConnection(ctx, conf.Database)
	if err != nil {
		logger.Fatalf("database DBConnection: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := storage.InitializeRedis(ctx, conf.Redis)
	if err != nil {
		logger.Fatalf("Redis initialization: %v", err)
	}
	defer redisClient.Close()

	notifyClient := utils.GetHTTPClient()
	defer utils.CloseHTTPClient()
	telegram, err := notification.NewTelegramNotifier(conf.Notification, notifyClient)
	if err != nil {
		logger.Fatalf("notification: %v", err)
	}
	defer telegram.Wait()
	slack := notification.NewSlackNotifier(conf.Notification.SlackWebhookURL, notifyClient)
	defer slack.Wait()
	notifier := notification.Multi{telegram, slack}

	var receipts types.ReceiptSender
	if emailService, err := email.NewEmailService(conf.Notification); err != nil {
		logger.Warnf("Payment receipts are disabled: %v", err)
	} else {
		receipts = emailService
	}

	// Repositories and services
	payments := storage.NewPaymentRepository(db, dialect)
	methods := storage.NewMethodRepository(db)
	promoRepo := storage.NewPromoRepository(db)

	gateway := b2b.NewClient(conf.B2B)
	registry := provider.NewRegistry(
		provider.NewCardlinkAdapter(conf.Provider),
		provider.NewCryptopayAdapter(conf.Provider, redisClient),
	)

	paymentService := svc.NewPaymentService(payments, methods, registry, gateway, notifier, conf.Payment)
	methodService := svc.NewMethodService(methods)
	promoService := svc.NewPromoService(promoRepo, conf.Payment)
	depositService := svc.NewDepositService(db, payments, promoService, notifier)
	webhookService := svc.NewWebhookService(registry, depositService, notifier)

	// Start cron jobs
	reconciler := tasks.NewReconciler(payments, gateway, notifier, receipts, redisClient, conf.Payment)
	scheduler, err := tasks.StartCronJobs(ctx, reconciler, promoService, conf.Payment)
	if err != nil {
		logger.Fatalf("StartCronJobs: %v", err)
	}

	// Run the server
	router := routers.Routes(routers.Controllers{
		Public: controllers.NewController(db, paymentService, methodService, promoService, webhookService),
		Admin:  admin.NewController(paymentService, methodService, promoService, gateway),
		Auth:   accounts.NewAuthController(conf.Auth),
	}, conf.Server, conf.Auth)

	appServer := fmt.Sprintf("%s:%s", conf.Server.Host, conf.Server.Port)
	server := &http.Server{
		Addr:              appServer,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Server Running at :%v", appServer)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Infof("Shutdown requested")
	case err := <-serverErr:
		logger.Errorf("Server stopped: %v", err)
		stop()
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
		return
	}
	logger.Infof("Server stopped")
}
