package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shambadirect/storefront/api/controllers"
	"github.com/shambadirect/storefront/api/middleware"
	"github.com/shambadirect/storefront/internal/cart"
	"github.com/shambadirect/storefront/internal/checkout"
	"github.com/shambadirect/storefront/internal/inventory"
	"github.com/shambadirect/storefront/internal/orders"
	"github.com/shambadirect/storefront/pkg/config"
	"github.com/shambadirect/storefront/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	checks map[string]controllers.Pinger,
	catalog *inventory.Snapshot,
	productRepo *inventory.Repository,
	cartStore *cart.Store,
	flow *checkout.Flow,
	orderRepo orders.Repository,
	suggester controllers.AddressSuggester,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(catalog, logg))
			r.Post("/refresh", controllers.ProductRefresh(catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(productRepo, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartStore, catalog, logg))
			r.Post("/items", controllers.CartAddItem(cartStore, catalog, logg))
			r.Route("/items/{productId}", func(r chi.Router) {
				r.Post("/increase", controllers.CartIncrease(cartStore, catalog, logg))
				r.Post("/decrease", controllers.CartDecrease(cartStore, catalog, logg))
				r.Put("/quantity", controllers.CartSetQuantity(cartStore, catalog, logg))
				r.Delete("/", controllers.CartRemove(cartStore, catalog, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutView(flow, logg))
			r.Post("/open", controllers.CheckoutOpen(flow, logg))
			r.Post("/close", controllers.CheckoutClose(flow, logg))
			r.Patch("/details", controllers.CheckoutDetails(flow, logg))
			r.Post("/fee", controllers.CheckoutFee(flow, logg))
			r.Get("/address-suggestions", controllers.CheckoutAddressSuggestions(suggester, logg))
			r.Post("/advance", controllers.CheckoutAdvance(flow, logg))
			r.Post("/back", controllers.CheckoutBack(flow, logg))
			r.Post("/place-order", controllers.CheckoutPlaceOrder(flow, cfg.Orders.WhatsAppNumber, logg))
		})

		r.Get("/orders/{orderId}", controllers.OrderDetail(orderRepo, logg))
	})

	return r
}
