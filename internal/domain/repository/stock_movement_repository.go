package repository

import (
	"context"
	"time"

	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del ledger de movimientos (DIP).
// El ledger es append-only: Update existe solo para corregir metadatos de un registro existente.
type StockMovementRepository interface {
	// NextID produce un identificador nuevo, único y monótono para un movimiento.
	NextID(ctx context.Context) (int, error)
	// Save agrega el movimiento como registro nuevo. Si falla, el registro no queda
	// comprometido y el caller debe compensar.
	Save(ctx context.Context, m *entity.StockMovement) error
	// SaveAll agrega el lote completo o nada (una sola transacción).
	SaveAll(ctx context.Context, ms []*entity.StockMovement) error
	// FindByID devuelve nil (sin error) si el movimiento no existe.
	FindByID(ctx context.Context, id int) (*entity.StockMovement, error)
	// Update sobrescribe los campos del registro con ese ID sin tocar moved_at.
	// Devuelve false si no existe registro con ese id.
	Update(ctx context.Context, m *entity.StockMovement) (bool, error)
	// FindAll lista movimientos del más reciente al más antiguo, con el nombre
	// del producto denormalizado (best effort, puede venir vacío).
	FindAll(ctx context.Context, limit, offset int) ([]*entity.StockMovement, error)
	// FindByProduct lista movimientos de un producto, opcionalmente acotados por fecha.
	FindByProduct(ctx context.Context, productID int, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	// FindByBatchOrSerial lista movimientos por lote o número de serie.
	FindByBatchOrSerial(ctx context.Context, batchNo, serialNo string) ([]*entity.StockMovement, error)
}
