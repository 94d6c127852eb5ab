package repository

import (
	"context"

	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
)

// ProductRepository puerto de solo lectura hacia el catálogo de productos (colaborador externo).
type ProductRepository interface {
	// ExistsActive indica si el producto existe y está activo.
	ExistsActive(ctx context.Context, productID int) (bool, error)
	// GetByID devuelve nil (sin error) si el producto no existe.
	GetByID(ctx context.Context, productID int) (*entity.Product, error)
}
