package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/controllers"
	webhookcontrollers "github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/controllers/webhooks"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/middleware"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/catalog"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/notifications"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/config"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	pkgredis "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/redis"
)

// Store is the redis surface the HTTP layer needs: readiness, replay and
// rate-limit counters.
type Store interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything the router wires. Nil services answer with an
// internal error rather than panicking.
type Deps struct {
	DB      db.Pinger
	Redis   Store
	Metrics http.Handler

	Catalog       catalog.Service
	Cart          controllers.CartQuoter
	Shipping      controllers.ShippingRates
	Checkout      controllers.Checkout
	Orders        orders.Service
	Confirmer     controllers.OrderConfirmer
	Accounts      controllers.ConnectAccounts
	Notifications notifications.Service

	WebhookGuard      webhookcontrollers.EventGuard
	WebhookDispatcher webhookcontrollers.EventDispatcher
	SellerRecipient   string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Storefront.AllowedOrigins),
	)

	var (
		idemStore pkgredis.IdempotencyStore
		dbPinger  controllers.Pinger
		rdPinger  controllers.Pinger
	)
	if deps.Redis != nil {
		idemStore = deps.Redis
		rdPinger = deps.Redis
	}
	if deps.DB != nil {
		dbPinger = deps.DB
	}

	replay := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotency(idemStore, policy, logg)
	}
	checkoutLimit := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		policy := middleware.NewRateLimitPolicy(
			"checkout",
			cfg.RateLimit.CheckoutWindow,
			cfg.RateLimit.CheckoutIPLimit,
			cfg.RateLimit.CheckoutEmailLimit,
		)
		checkoutLimit = middleware.RateLimit(policy, deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, rdPinger))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Post("/api/webhooks/stripe", webhookcontrollers.StripeWebhook(cfg.Stripe.WebhookSecret, deps.WebhookGuard, deps.WebhookDispatcher, logg))

	// Storefront: guests allowed, a valid token attaches the shopper.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.Auth, logg))

		r.Get("/api/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/api/products/{productId}", controllers.GetProduct(deps.Catalog, logg))
		r.Post("/api/cart/quote", controllers.CartQuote(deps.Cart, logg))
		r.Get("/api/shipping/rates", controllers.ShippingRatesForCheckout(deps.Shipping, logg))

		r.Route("/api/stripe", func(r chi.Router) {
			r.With(checkoutLimit, replay(middleware.IdempotencyPolicy{})).
				Post("/create-checkout-session", controllers.CreateCheckoutSession(deps.Checkout, logg))
			r.With(checkoutLimit, replay(middleware.IdempotencyPolicy{})).
				Post("/create-payment-intent", controllers.CreatePaymentIntent(deps.Checkout, logg))
			r.Get("/checkout-session/{sessionId}", controllers.GetCheckoutSession(deps.Checkout, logg))
			r.Get("/payment-intent/{paymentIntentId}", controllers.GetPaymentIntent(deps.Checkout, logg))
			r.With(
				middleware.Auth(cfg.Auth, logg),
				middleware.RequireAdmin(logg),
				replay(middleware.IdempotencyPolicy{TTL: middleware.CriticalIdempotencyTTL, Required: true}),
			).Post("/refund", controllers.AdminRefund(deps.Checkout, logg))
		})

		r.With(replay(middleware.IdempotencyPolicy{})).
			Post("/api/orders/confirm", controllers.ConfirmOrder(deps.Confirmer, logg))
	})

	// Signed-in shoppers.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))

		r.Get("/api/orders", controllers.ListMyOrders(deps.Orders, logg))
		r.Get("/api/orders/by-session/{sessionId}", controllers.GetOrderBySession(deps.Orders, logg))
		r.Get("/api/orders/{orderId}", controllers.GetOrder(deps.Orders, logg))

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, deps.SellerRecipient, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, deps.SellerRecipient, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, deps.SellerRecipient, logg))
		})
	})

	// Artist admin.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/api/admin", func(r chi.Router) {
			r.Post("/products", controllers.AdminCreateProduct(deps.Catalog, logg))
			r.Put("/products/{productId}", controllers.AdminUpdateProduct(deps.Catalog, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(deps.Catalog, logg))

			r.Get("/orders", controllers.AdminListOrders(deps.Orders, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))

			r.Patch("/shipping/rates/{rateId}", controllers.AdminSetShippingRateActive(deps.Shipping, logg))
		})

		r.Route("/api/connect", func(r chi.Router) {
			r.Post("/create-account", controllers.CreateConnectAccount(deps.Accounts, logg))
			r.Post("/create-account-link", controllers.CreateConnectAccountLink(deps.Accounts, logg))
			r.Post("/create-login-link", controllers.CreateConnectLoginLink(deps.Accounts, logg))
			r.Get("/account/{accountId}", controllers.GetConnectAccount(deps.Accounts, logg))
			r.Put("/account/{accountId}", controllers.UpdateConnectAccount(deps.Accounts, logg))
			r.Delete("/account/{accountId}", controllers.DeleteConnectAccount(deps.Accounts, logg))
			r.Get("/balance/{accountId}", controllers.GetConnectBalance(deps.Accounts, logg))
			r.Get("/transfers/{accountId}", controllers.ListConnectTransfers(deps.Accounts, logg))
			r.Get("/payouts/{accountId}", controllers.ListConnectPayouts(deps.Accounts, logg))
		})
	})

	return r
}
