package entity

import "time"

// InventoryQuantity stock disponible (on-hand) de un producto.
// La ausencia de registro equivale a cantidad 0; nunca se elimina explícitamente.
type InventoryQuantity struct {
	ProductID int
	Quantity  int
	UpdatedAt time.Time
}
