package repository

import "context"

// InventoryRepository define el puerto del almacén de cantidades on-hand por producto.
// El contrato requerido es lectura/escritura atómica por fila; la atomicidad
// entre este almacén y el ledger es responsabilidad de la capa de servicio.
type InventoryRepository interface {
	// GetQty devuelve la cantidad actual; 0 si el producto no tiene registro.
	GetQty(ctx context.Context, productID int) (int, error)
	// UpsertQty persiste la nueva cantidad (crea el registro en la primera escritura).
	UpsertQty(ctx context.Context, productID, qty int) error
}
