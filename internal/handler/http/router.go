package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tidemark/stockroom/internal/service"
	"github.com/tidemark/stockroom/pkg/health"
	"github.com/tidemark/stockroom/pkg/middleware"
)

// Services bundles the application services the router depends on.
type Services struct {
	Auth        *service.AuthService
	Orders      *service.OrderService
	Inventory   *service.InventoryService
	Warehouse   *service.WarehouseService
	Customers   *service.CustomerService
	Distributor *service.DistributorService
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(corsConfig))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("stockroom"))
	r.Use(middleware.Tracing("stockroom"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	authHandler := NewAuthHandler(svcs.Auth, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	inventoryHandler := NewInventoryHandler(svcs.Inventory, logger)
	warehouseHandler := NewWarehouseHandler(svcs.Warehouse, logger)
	customerHandler := NewCustomerHandler(svcs.Customers, svcs.Orders, logger)
	distributorHandler := NewDistributorHandler(svcs.Distributor, logger)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(svcs.Auth.ValidateToken))
			r.Get("/me", authHandler.Me)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(svcs.Auth.ValidateToken))

		// Accounting is read only; CSR, TL, and Admin may write; only TL
		// and Admin may delete.
		mutate := middleware.RequireRole("CSR", "TL", "Admin")
		remove := middleware.RequireRole("TL", "Admin")

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.With(mutate).Post("/", orderHandler.CreateOrder)
			r.With(mutate).Put("/{id}", orderHandler.UpdateOrder)
			r.With(mutate).Put("/{id}/status", orderHandler.UpdateOrderStatus)
			// Cancellation is a status mutation, not a row delete.
			r.With(mutate).Delete("/{id}", orderHandler.CancelOrder)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", inventoryHandler.ListItems)
			r.With(middleware.CacheControl(60)).Get("/categories", inventoryHandler.Categories)
			r.Get("/{id}", inventoryHandler.GetItem)
			r.With(mutate).Post("/", inventoryHandler.CreateItem)
			r.With(mutate).Put("/{id}", inventoryHandler.UpdateItem)
			r.With(mutate).Put("/{id}/stock", inventoryHandler.SetStock)
			r.With(remove).Delete("/{id}", inventoryHandler.DeleteItem)
		})

		r.Route("/warehouse", func(r chi.Router) {
			r.Get("/", warehouseHandler.ListMovements)
			r.With(middleware.CacheControl(60)).Get("/summary", warehouseHandler.Summary)
			r.Get("/items/{itemId}", warehouseHandler.ListItemMovements)
			r.Get("/{id}", warehouseHandler.GetMovement)
			r.With(mutate).Post("/", warehouseHandler.CreateMovement)
			r.With(mutate).Put("/{id}", warehouseHandler.UpdateMovement)
			r.With(remove).Delete("/{id}", warehouseHandler.DeleteMovement)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customerHandler.ListCustomers)
			r.Get("/{id}", customerHandler.GetCustomer)
			r.Get("/{id}/orders", customerHandler.ListCustomerOrders)
			r.With(mutate).Post("/", customerHandler.CreateCustomer)
			r.With(mutate).Put("/{id}", customerHandler.UpdateCustomer)
			r.With(remove).Delete("/{id}", customerHandler.DeleteCustomer)
		})

		r.Route("/distributors", func(r chi.Router) {
			r.Get("/", distributorHandler.ListDistributors)
			r.Get("/{id}", distributorHandler.GetDistributor)
			r.With(mutate).Post("/", distributorHandler.CreateDistributor)
			r.With(mutate).Put("/{id}", distributorHandler.UpdateDistributor)
			r.With(remove).Delete("/{id}", distributorHandler.DeleteDistributor)
		})
	})

	return r
}
