package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/dsalazarc/clinica-stock-api/internal/domain"
	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
)

// RefTableOpeningStock tabla de referencia de los movimientos de carga inicial.
const RefTableOpeningStock = "initial_stock"

// OpeningStockLine una línea de carga inicial de stock (ya parseada; el parsing
// de CSV es responsabilidad del cliente).
type OpeningStockLine struct {
	ProductID int
	Qty       int
	BatchNo   string
	Expiry    *time.Time
	SerialNo  string
	Note      string
}

// RecordOpeningStock carga el stock inicial de un lote de productos como
// movimientos ADJUSTMENT, todo o nada: primero valida todas las líneas, luego
// aplica los deltas y agrega el lote completo al ledger en una sola operación.
// Si el append del lote falla, revierte cada delta ya aplicado (best effort,
// con diagnóstico ruidoso por cada reversa fallida) y re-lanza el error.
func (s *StockMovementService) RecordOpeningStock(ctx context.Context, lines []OpeningStockLine, movedBy int) ([]*entity.StockMovement, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: lote vacío", domain.ErrInvalidInput)
	}
	for i, l := range lines {
		if l.Qty <= 0 {
			return nil, fmt.Errorf("%w: línea %d requiere qty > 0", domain.ErrInvalidInput, i+1)
		}
		active, err := s.products.ExistsActive(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("verificar producto %d: %w", l.ProductID, err)
		}
		if !active {
			return nil, fmt.Errorf("%w: producto %d no existe o está inactivo (línea %d)", domain.ErrNotFound, l.ProductID, i+1)
		}
	}

	// Aplica los deltas serializando por producto, igual que recordCore, para
	// que una carga inicial no pise movimientos concurrentes del mismo producto.
	// Si alguno falla, revierte los anteriores.
	applyLine := func(l OpeningStockLine) error {
		lock := s.productLock(l.ProductID)
		lock.Lock()
		defer lock.Unlock()
		_, err := s.inventory.ApplyDelta(ctx, l.ProductID, l.Qty, false)
		return err
	}
	applied := 0
	rollback := func() {
		for i := 0; i < applied; i++ {
			lock := s.productLock(lines[i].ProductID)
			lock.Lock()
			s.compensate(ctx, lines[i].ProductID, lines[i].Qty, 0)
			lock.Unlock()
		}
	}

	now := time.Now()
	movements := make([]*entity.StockMovement, 0, len(lines))
	for _, l := range lines {
		if err := applyLine(l); err != nil {
			rollback()
			return nil, err
		}
		applied++

		id, err := s.ledger.NextID(ctx)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("asignar id de movimiento: %w", err)
		}
		movements = append(movements, &entity.StockMovement{
			ID:         id,
			ProductID:  l.ProductID,
			Qty:        l.Qty,
			MoveType:   entity.MovementTypeAdjustment,
			RefTable:   RefTableOpeningStock,
			BatchNo:    l.BatchNo,
			ExpiryDate: l.Expiry,
			SerialNo:   l.SerialNo,
			MovedAt:    now,
			MovedBy:    movedBy,
			Note:       l.Note,
		})
	}

	if err := s.ledger.SaveAll(ctx, movements); err != nil {
		rollback()
		return nil, fmt.Errorf("guardar lote de movimientos: %w", err)
	}

	s.log.Info().Int("lines", len(movements)).Msg("carga inicial de stock registrada")
	return movements, nil
}
