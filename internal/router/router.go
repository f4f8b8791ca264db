package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salgadospro/api/internal/config"
	"github.com/salgadospro/api/internal/database"
	"github.com/salgadospro/api/internal/handler"
	"github.com/salgadospro/api/internal/service"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Ingredients
	ingredientHandler := handler.NewIngredientHandler(queries)
	r.Route("/ingredients", ingredientHandler.RegisterRoutes)

	// Products and compositions
	productHandler := handler.NewProductHandler(queries)
	r.Route("/products", productHandler.RegisterRoutes)

	// Customers
	customerHandler := handler.NewCustomerHandler(queries)
	r.Route("/customers", customerHandler.RegisterRoutes)

	// Orders (service owns the transactional flows)
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries)
	r.Route("/orders", orderHandler.RegisterRoutes)

	// Stock movement audit trail
	movementHandler := handler.NewStockMovementHandler(queries)
	r.Route("/stock-movements", movementHandler.RegisterRoutes)

	// Pricing calculator / recipes
	recipeHandler := handler.NewRecipeHandler(queries)
	r.Route("/recipes", recipeHandler.RegisterRoutes)

	// Reports
	reportHandler := handler.NewReportHandler(queries)
	r.Route("/reports", reportHandler.RegisterRoutes)

	// Alerts
	alertHandler := handler.NewAlertHandler(queries)
	r.Route("/alerts", alertHandler.RegisterRoutes)

	// Production task board
	taskHandler := handler.NewProductionTaskHandler(queries)
	r.Route("/production-tasks", taskHandler.RegisterRoutes)

	// Settings
	settingHandler := handler.NewSettingHandler(queries)
	r.Route("/settings", settingHandler.RegisterRoutes)

	return r
}
