package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
	"github.com/dsalazarc/clinica-stock-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo adaptador del ledger de movimientos sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, product_id, qty, move_type, ref_table, ref_id, batch_no, expiry_date, serial_no, moved_at, moved_by, note`

// NextID consume la secuencia del ledger: identificadores únicos, monótonos, nunca reutilizados.
func (r *StockMovementRepo) NextID(ctx context.Context) (int, error) {
	var id int
	err := r.q.QueryRow(ctx, `SELECT nextval('stock_movements_id_seq')::int`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next movement id: %w", err)
	}
	return id, nil
}

// Save agrega un movimiento como registro nuevo.
func (r *StockMovementRepo) Save(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, qty, move_type, ref_table, ref_id, batch_no, expiry_date, serial_no, moved_at, moved_by, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Qty, string(m.MoveType),
		nullIfEmpty(m.RefTable), m.RefID, nullIfEmpty(m.BatchNo), m.ExpiryDate,
		nullIfEmpty(m.SerialNo), m.MovedAt, m.MovedBy, nullIfEmpty(m.Note),
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// SaveAll agrega el lote completo en una sola transacción (todo o nada).
func (r *StockMovementRepo) SaveAll(ctx context.Context, ms []*entity.StockMovement) error {
	if len(ms) == 0 {
		return nil
	}
	starter, ok := r.q.(txStarter)
	if !ok {
		return fmt.Errorf("save all: el querier no soporta transacciones")
	}
	tx, err := starter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO stock_movements (id, product_id, qty, move_type, ref_table, ref_id, batch_no, expiry_date, serial_no, moved_at, moved_by, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, m := range ms {
		batch.Queue(query,
			m.ID, m.ProductID, m.Qty, string(m.MoveType),
			nullIfEmpty(m.RefTable), m.RefID, nullIfEmpty(m.BatchNo), m.ExpiryDate,
			nullIfEmpty(m.SerialNo), m.MovedAt, m.MovedBy, nullIfEmpty(m.Note),
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range ms {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert batch movement: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindByID obtiene un movimiento por ID; nil si no existe.
func (r *StockMovementRepo) FindByID(ctx context.Context, id int) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// Update sobrescribe los campos del movimiento sin tocar moved_at.
// Devuelve false si no existe registro con ese id.
func (r *StockMovementRepo) Update(ctx context.Context, m *entity.StockMovement) (bool, error) {
	query := `
		UPDATE stock_movements
		SET product_id = $1, qty = $2, move_type = $3, ref_table = $4, ref_id = $5,
		    batch_no = $6, expiry_date = $7, serial_no = $8, moved_by = $9, note = $10
		WHERE id = $11`
	tag, err := r.q.Exec(ctx, query,
		m.ProductID, m.Qty, string(m.MoveType), nullIfEmpty(m.RefTable), m.RefID,
		nullIfEmpty(m.BatchNo), m.ExpiryDate, nullIfEmpty(m.SerialNo), m.MovedBy, nullIfEmpty(m.Note),
		m.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update stock movement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindAll lista movimientos del más reciente al más antiguo, con el nombre del
// producto denormalizado (LEFT JOIN: queda vacío si el producto ya no existe).
func (r *StockMovementRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT sm.id, sm.product_id, sm.qty, sm.move_type, sm.ref_table, sm.ref_id,
		       sm.batch_no, sm.expiry_date, sm.serial_no, sm.moved_at, sm.moved_by, sm.note,
		       COALESCE(p.name, '') AS product_name
		FROM stock_movements sm
		LEFT JOIN products p ON p.id = sm.product_id
		ORDER BY sm.moved_at DESC, sm.id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovementWithName(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// FindByProduct lista movimientos de un producto en un rango de fechas opcional.
func (r *StockMovementRepo) FindByProduct(ctx context.Context, productID int, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND moved_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND moved_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY moved_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// FindByBatchOrSerial lista movimientos que coinciden con el lote o el serial indicado.
func (r *StockMovementRepo) FindByBatchOrSerial(ctx context.Context, batchNo, serialNo string) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM stock_movements
		WHERE ($1 <> '' AND batch_no = $1) OR ($2 <> '' AND serial_no = $2)
		ORDER BY moved_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, batchNo, serialNo)
	if err != nil {
		return nil, fmt.Errorf("list movements by batch/serial: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// scanMovement mapea una fila con las columnas base (sin product_name).
func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m        entity.StockMovement
		moveType string
		refTable *string
		batchNo  *string
		serialNo *string
		note     *string
	)
	err := row.Scan(
		&m.ID, &m.ProductID, &m.Qty, &moveType, &refTable, &m.RefID,
		&batchNo, &m.ExpiryDate, &serialNo, &m.MovedAt, &m.MovedBy, &note,
	)
	if err != nil {
		return nil, err
	}
	m.MoveType = entity.MovementType(moveType)
	m.RefTable = deref(refTable)
	m.BatchNo = deref(batchNo)
	m.SerialNo = deref(serialNo)
	m.Note = deref(note)
	return &m, nil
}

// scanMovementWithName mapea una fila con product_name al final.
func scanMovementWithName(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m        entity.StockMovement
		moveType string
		refTable *string
		batchNo  *string
		serialNo *string
		note     *string
	)
	err := row.Scan(
		&m.ID, &m.ProductID, &m.Qty, &moveType, &refTable, &m.RefID,
		&batchNo, &m.ExpiryDate, &serialNo, &m.MovedAt, &m.MovedBy, &note,
		&m.ProductName,
	)
	if err != nil {
		return nil, err
	}
	m.MoveType = entity.MovementType(moveType)
	m.RefTable = deref(refTable)
	m.BatchNo = deref(batchNo)
	m.SerialNo = deref(serialNo)
	m.Note = deref(note)
	return &m, nil
}
