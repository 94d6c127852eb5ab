package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/dsalazarc/clinica-stock-api/internal/domain"
	"github.com/dsalazarc/clinica-stock-api/internal/domain/repository"
)

// InventoryService mantiene la cantidad on-hand autoritativa por producto.
// La suma se hace en int64 y el resultado debe caber en 32 bits: un desborde
// se rechaza con domain.ErrQuantityOverflow en vez de truncarse.
type InventoryService struct {
	repo repository.InventoryRepository
}

// NewInventoryService construye el servicio sobre el puerto de persistencia.
func NewInventoryService(repo repository.InventoryRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

// GetOnHand devuelve la cantidad actual del producto (0 si no tiene registro).
func (s *InventoryService) GetOnHand(ctx context.Context, productID int) (int, error) {
	return s.repo.GetQty(ctx, productID)
}

// ApplyDelta aplica un delta con signo a la cantidad del producto y devuelve la nueva cantidad.
// Si el resultado sería negativo y allowNegative es false, falla con
// domain.ErrInsufficientStock sin mutar nada.
func (s *InventoryService) ApplyDelta(ctx context.Context, productID, delta int, allowNegative bool) (int, error) {
	current, err := s.repo.GetQty(ctx, productID)
	if err != nil {
		return 0, err
	}

	next := int64(current) + int64(delta)
	if !allowNegative && next < 0 {
		return 0, fmt.Errorf("%w: producto %d quedaría en %d", domain.ErrInsufficientStock, productID, next)
	}
	if next > math.MaxInt32 || next < math.MinInt32 {
		return 0, fmt.Errorf("%w: producto %d, resultado %d", domain.ErrQuantityOverflow, productID, next)
	}

	if err := s.repo.UpsertQty(ctx, productID, int(next)); err != nil {
		return 0, err
	}
	return int(next), nil
}
