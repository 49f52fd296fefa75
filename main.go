package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	appcart "github.com/LoiPham2005/backend-doantotnghiep/internal/application/cart"
	appinventory "github.com/LoiPham2005/backend-doantotnghiep/internal/application/inventory"
	appnotification "github.com/LoiPham2005/backend-doantotnghiep/internal/application/notification"
	apporder "github.com/LoiPham2005/backend-doantotnghiep/internal/application/order"
	apppayment "github.com/LoiPham2005/backend-doantotnghiep/internal/application/payment"
	appvoucher "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/config"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/gcppubsub"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/gormstore"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/id"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
	obsinfra "github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability/oteltrace"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability/prometrics"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability/zaplogger"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/realtime"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/stripegateway"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/pkg/logging"
	httppresentation "github.com/LoiPham2005/backend-doantotnghiep/internal/presentation/http"
	workerpresentation "github.com/LoiPham2005/backend-doantotnghiep/internal/presentation/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	logger := zaplogger.New(baseLogger)
	systemLogger := logger.With(
		observability.F("trace_id", logging.SystemTraceID),
		observability.F("span_id", logging.SystemSpanID),
	)

	registry := prometrics.New(cfg.Service.Name)
	counters, histograms := registry.Standard()
	obs := obsinfra.New(oteltrace.New(cfg.Service.Name), logger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := openStores(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	bus := outbox.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	hub := realtime.NewHub(obs)
	pubsubs := appnotification.FanOut{hub}
	if cfg.PubSub.Enabled() {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("pubsub client: %w", err)
		}
		defer client.Close()
		topic := client.Topic(cfg.PubSub.Topic)
		defer topic.Stop()
		publisher, err := gcppubsub.NewPublisher(topic)
		if err != nil {
			return err
		}
		pubsubs = append(pubsubs, publisher)
		systemLogger.Info("pubsub_enabled", observability.F("topic", cfg.PubSub.Topic))
	}

	var gateway payment.Gateway
	if cfg.Stripe.Enabled() {
		gw, err := stripegateway.New(stripegateway.Config{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
			Currency:      cfg.Stripe.Currency,
		})
		if err != nil {
			return err
		}
		gateway = gw
	} else {
		systemLogger.Warn("payment_gateway_disabled")
	}

	ids := id.NewUUIDGenerator()

	ledger, err := appinventory.NewLedger(appinventory.LedgerDeps{Repo: st.inventory, Obs: obs})
	if err != nil {
		return err
	}
	validator, err := appvoucher.NewValidator(appvoucher.ValidatorDeps{
		Vouchers:       st.vouchers,
		Grants:         st.grants,
		Obs:            obs,
		AllowUnclaimed: cfg.Checkout.AllowUnclaimedVouchers,
	})
	if err != nil {
		return err
	}
	vouchers, err := appvoucher.NewService(appvoucher.ServiceDeps{Validator: validator, IDs: ids})
	if err != nil {
		return err
	}
	dispatcher, err := appnotification.NewDispatcher(appnotification.DispatcherDeps{
		Repo:   st.notifications,
		Users:  st.users,
		PubSub: pubsubs,
		IDs:    ids,
		Obs:    obs,
	})
	if err != nil {
		return err
	}
	place, err := apporder.NewPlaceOrderUseCase(apporder.PlaceOrderDeps{
		Orders:      st.orders,
		Payments:    st.payments,
		Ledger:      ledger,
		Vouchers:    vouchers,
		Carts:       st.carts,
		Notifier:    dispatcher,
		Publisher:   bus,
		Gateway:     gateway,
		OrderIDs:    id.NewULIDGenerator(),
		IDs:         ids,
		ShippingFee: cfg.Checkout.ShippingFee,
		Obs:         obs,
	})
	if err != nil {
		return err
	}
	machine, err := apporder.NewStateMachine(apporder.StateMachineDeps{
		Orders:    st.orders,
		Requests:  st.requests,
		Ledger:    ledger,
		Notifier:  dispatcher,
		Publisher: bus,
		IDs:       ids,
		Obs:       obs,
	})
	if err != nil {
		return err
	}
	returns, err := apporder.NewReturns(apporder.ReturnsDeps{
		Orders:   st.orders,
		Requests: st.requests,
		Machine:  machine,
		Notifier: dispatcher,
		IDs:      ids,
		Obs:      obs,
	})
	if err != nil {
		return err
	}
	queries, err := apporder.NewQueries(st.orders, st.payments)
	if err != nil {
		return err
	}
	cartSvc, err := appcart.NewService(appcart.ServiceDeps{Repo: st.carts, Variants: ledger, IDs: ids, Obs: obs})
	if err != nil {
		return err
	}
	paySvc, err := apppayment.NewService(apppayment.ServiceDeps{
		Payments: st.payments,
		Gateway:  gateway,
		Notifier: dispatcher,
		Obs:      obs,
	})
	if err != nil {
		return err
	}

	apppayment.NewWorker(workerpresentation.Instrument(bus, obs, "payment_worker"), paySvc, obs).Start()

	handler, err := httppresentation.NewHandler(httppresentation.Services{
		PlaceOrder:    place,
		Machine:       machine,
		Returns:       returns,
		Orders:        queries,
		Cart:          cartSvc,
		Vouchers:      vouchers,
		Notifications: dispatcher,
		Ledger:        ledger,
		Payments:      paySvc,
		Users:         st.users,
		Stream:        hub,
	}, httppresentation.Options{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Metrics:   registry.Handler(),
		Obs:       obs,
	})
	if err != nil {
		return err
	}

	// No WriteTimeout: the notification stream stays open.
	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	server.RegisterOnShutdown(handler.Close)

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			systemLogger.Error("http_server_error", observability.F("error", err.Error()))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
		return err
	}
	systemLogger.Info("http_server_stopped")
	return nil
}

type stores struct {
	inventory     inventory.Repository
	vouchers      voucher.Repository
	grants        voucher.GrantRepository
	orders        order.Repository
	requests      order.RequestRepository
	payments      payment.Repository
	carts         cart.Repository
	notifications notification.Repository
	users         user.Directory
}

// openStores picks the persistence backend. The memory backend keeps nothing
// across restarts and exists for local runs and demos.
func openStores(cfg config.Database, logger observability.Logger) (stores, func(), error) {
	if cfg.Driver == "memory" {
		return stores{
			inventory:     memory.NewInventoryRepository(),
			vouchers:      memory.NewVoucherRepository(),
			grants:        memory.NewGrantRepository(),
			orders:        memory.NewOrderRepository(),
			requests:      memory.NewRequestRepository(),
			payments:      memory.NewPaymentRepository(),
			carts:         memory.NewCartRepository(),
			notifications: memory.NewNotificationRepository(),
			users:         memory.NewUserRepository(),
		}, func() {}, nil
	}

	db, err := gormstore.Open(cfg.DSN, logger)
	if err != nil {
		return stores{}, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return stores{
		inventory:     gormstore.NewInventoryRepository(db),
		vouchers:      gormstore.NewVoucherRepository(db),
		grants:        gormstore.NewGrantRepository(db),
		orders:        gormstore.NewOrderRepository(db),
		requests:      gormstore.NewRequestRepository(db),
		payments:      gormstore.NewPaymentRepository(db),
		carts:         gormstore.NewCartRepository(db),
		notifications: gormstore.NewNotificationRepository(db),
		users:         gormstore.NewUserRepository(db),
	}, closeFn, nil
}
