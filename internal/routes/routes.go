package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/tienda/internal/config"
	"github.com/example/tienda/internal/handlers"
	"github.com/example/tienda/internal/middleware"
	"github.com/example/tienda/internal/services"
	"github.com/example/tienda/internal/store"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	paymentStore := store.NewPaymentStore(db)
	cartLedger := store.NewCartLedger(db)

	decider := services.NewSimulatedDecider(cfg.PaymentSuccessRate)
	orderNotifier := services.NewOrdersClient(cfg.OrdersBaseURL, cfg.OrdersServiceToken, cfg.OrdersTimeout, cfg.OrderStatusMap)
	inventoryClient := services.NewInventoryClient(cfg.InventoryBaseURL, cfg.InventoryServiceToken, cfg.InventoryTimeout)

	paymentService := services.NewPaymentService(paymentStore, decider, orderNotifier)
	checkoutService := services.NewCheckoutService(cartLedger, inventoryClient)

	authHandler := handlers.NewAuthHandler(db, cfg)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	cartHandler := handlers.NewCartHandler(checkoutService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Payment routes. Static paths are registered before the :id
	// parameter so fiber matches them first.
	pagos := api.Group("/pagos")
	pagos.Get("/pedido/:idPedido", paymentHandler.PorPedido)

	pagosAuth := pagos.Group("", middleware.AuthMiddleware(cfg))
	pagosAuth.Post("/procesar", paymentHandler.Procesar)
	pagosAuth.Get("/mis-pagos", paymentHandler.MisPagos)
	pagosAuth.Get("/estadisticas", paymentHandler.Estadisticas)
	pagosAuth.Get("/:id", paymentHandler.Obtener)
	pagosAuth.Put("/:id", paymentHandler.Actualizar)

	// Cart and checkout routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart", cartHandler.AddItem)
	protected.Put("/cart/:id", cartHandler.UpdateItem)
	protected.Delete("/cart/:id", cartHandler.RemoveItem)

	protected.Post("/checkout", cartHandler.Checkout)
	protected.Get("/orders/local", cartHandler.ListOrders)
	protected.Post("/orders/local/:id/return", cartHandler.ReturnOrder)
}
