package httppresentation

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appcart "github.com/LoiPham2005/backend-doantotnghiep/internal/application/cart"
	appinventory "github.com/LoiPham2005/backend-doantotnghiep/internal/application/inventory"
	appnotification "github.com/LoiPham2005/backend-doantotnghiep/internal/application/notification"
	apporder "github.com/LoiPham2005/backend-doantotnghiep/internal/application/order"
	apppayment "github.com/LoiPham2005/backend-doantotnghiep/internal/application/payment"
	appvoucher "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	tracerName           = "backend-doantotnghiep.http"
	routeUnknown         = "unknown"
)

// Stream hands out realtime subscriptions for the notification feed.
type Stream interface {
	Subscribe(channel string) (<-chan notification.Message, func())
}

type Services struct {
	PlaceOrder    *apporder.PlaceOrderUseCase
	Machine       *apporder.StateMachine
	Returns       *apporder.Returns
	Orders        *apporder.Queries
	Cart          *appcart.Service
	Vouchers      *appvoucher.Service
	Notifications *appnotification.Dispatcher
	Ledger        *appinventory.Ledger
	Payments      *apppayment.Service
	Users         user.Directory
	Stream        Stream
}

type Options struct {
	JWTSecret []byte
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Obs     observability.Observability
	// Heartbeat is the keep-alive interval of the notification stream.
	Heartbeat time.Duration
	Now       func() time.Time
}

type Handler struct {
	svc       Services
	secret    []byte
	metrics   http.Handler
	heartbeat time.Duration
	now       func() time.Time
	closing   chan struct{}
	closeOnce sync.Once

	log         observability.Logger
	reqCounter  observability.Counter
	reqDuration observability.Histogram
}

func NewHandler(svc Services, opts Options) (*Handler, error) {
	switch {
	case svc.PlaceOrder == nil, svc.Machine == nil, svc.Returns == nil, svc.Orders == nil:
		return nil, errors.New("httppresentation: order services are required")
	case svc.Cart == nil, svc.Vouchers == nil, svc.Notifications == nil, svc.Ledger == nil, svc.Payments == nil:
		return nil, errors.New("httppresentation: cart, voucher, notification, inventory and payment services are required")
	case svc.Users == nil:
		return nil, errors.New("httppresentation: user directory is required")
	case len(opts.JWTSecret) == 0:
		return nil, errors.New("httppresentation: jwt secret is required")
	}
	obs := observability.OrNop(opts.Obs)
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		svc:         svc,
		secret:      opts.JWTSecret,
		metrics:     opts.Metrics,
		heartbeat:   heartbeat,
		now:         now,
		closing:     make(chan struct{}),
		log:         obs.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:  obs.Metrics().Counter(observability.MHTTPRequests),
		reqDuration: obs.Metrics().Histogram(observability.MHTTPRequestDuration),
	}, nil
}

// Router wires every route behind
// RequestID → route → Trace → request logger → access log → HTTP metrics → Recoverer.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.withRoute(r))
	r.Use(h.withTrace)
	r.Use(ObservabilityMiddleware(h.log, middleware.GetReqID))
	r.Use(h.withAccessLog)
	r.Use(h.withHTTPMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Post("/payments/callback", h.handlePaymentCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.handlePlaceOrder)
			r.With(requireRole(user.RoleAdmin)).Get("/", h.handleListOrders)
			r.Get("/mine", h.handleOrderHistory)
			r.Get("/{id}", h.handleGetOrder)
			r.With(requireRole(user.RoleAdmin)).Put("/{id}/status", h.handleUpdateOrderStatus)
			r.Post("/{id}/cancel", h.handleCancelOrder)
			r.Post("/{id}/returns", h.handleRequestReturn)
		})
		r.Get("/returns", h.handleListReturns)
		r.With(requireRole(user.RoleAdmin)).Put("/returns/{id}/status", h.handleReviewReturn)
		r.Get("/cancel-requests", h.handleListCancels)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.handleListCart)
			r.Post("/", h.handleAddToCart)
			r.Delete("/", h.handleClearCart)
			r.Put("/{id}", h.handleUpdateCartItem)
			r.Delete("/{id}", h.handleRemoveCartItem)
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.With(requireRole(user.RoleAdmin)).Post("/", h.handleCreateVoucher)
			r.Get("/available", h.handleAvailableVouchers)
			r.Get("/mine", h.handleMyVouchers)
			r.Post("/use", h.handleUseVoucher)
			r.Post("/{id}/claim", h.handleClaimVoucher)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.With(requireRole(user.RoleAdmin)).Post("/", h.handleCreateNotification)
			r.Get("/", h.handleInbox)
			r.Get("/stream", h.handleNotificationStream)
			r.Put("/read-all", h.handleMarkAllRead)
			r.Put("/{id}/read", h.handleMarkRead)
		})

		r.With(requireRole(user.RoleAdmin)).Put("/variants/{id}/stock", h.handleSetStock)
		r.Get("/payments/mine", h.handlePaymentHistory)

		r.Route("/statistics", func(r chi.Router) {
			r.Use(requireRole(user.RoleAdmin))
			r.Get("/revenue", h.handleRevenueByDate)
			r.Get("/top-products", h.handleTopVariants)
		})
	})

	return r
}

// Close ends open notification streams. Register it with
// http.Server.RegisterOnShutdown so Shutdown does not wait on them.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withRoute resolves the chi route pattern before dispatch so every later
// middleware labels by template instead of raw path.
func (h *Handler) withRoute(routes chi.Routes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeUnknown
			rctx := chi.NewRouteContext()
			if routes.Match(rctx, r.Method, r.URL.Path) {
				route = r.Method + " " + rctx.RoutePattern()
			}
			next.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
		})
	}
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		template := route
		if route == routeUnknown {
			spanName = r.Method + " " + r.URL.Path
			template = r.URL.Path
		} else if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records request count and latency with low-cardinality
// labels. Instruments are resolved once in NewHandler.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.reqDuration.Observe(time.Since(start).Seconds(), labels...)
	})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return routeUnknown
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return routeUnknown
}
