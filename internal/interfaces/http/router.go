package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dsalazarc/clinica-stock-api/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Movements *inventory.StockMovementService
	Stock     *inventory.InventoryService
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/inventory", AuthMiddleware(deps.JWTSecret))

	handler := NewMovementHandler(deps.Movements, deps.Stock)
	protected.Post("/movements", handler.RegisterMovement)
	protected.Get("/movements", handler.ListMovements)
	protected.Get("/movements/:id", handler.GetMovement)
	protected.Put("/movements/:id", handler.UpdateMovement)
	protected.Post("/transfers", handler.RegisterTransfer)
	protected.Post("/opening-stock", handler.RegisterOpeningStock)
	protected.Get("/products/:id/on-hand", handler.GetOnHand)
}
