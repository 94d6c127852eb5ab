package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dsalazarc/clinica-stock-api/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo adaptador del almacén de cantidades on-hand sobre PostgreSQL (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

// GetQty obtiene la cantidad actual de un producto; 0 si no tiene registro.
func (r *InventoryRepo) GetQty(ctx context.Context, productID int) (int, error) {
	var qty int
	err := r.q.QueryRow(ctx, `SELECT quantity FROM stock WHERE product_id = $1`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get stock qty: %w", err)
	}
	return qty, nil
}

// UpsertQty persiste la nueva cantidad (crea el registro en la primera escritura).
func (r *InventoryRepo) UpsertQty(ctx context.Context, productID, qty int) error {
	query := `
		INSERT INTO stock (product_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(ctx, query, productID, qty)
	if err != nil {
		return fmt.Errorf("upsert stock qty: %w", err)
	}
	return nil
}
