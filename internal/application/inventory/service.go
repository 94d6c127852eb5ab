package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dsalazarc/clinica-stock-api/internal/domain"
	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
	"github.com/dsalazarc/clinica-stock-api/internal/domain/repository"
	"github.com/dsalazarc/clinica-stock-api/pkg/logger"
)

// RefTableRollback tabla de referencia usada en los ajustes compensatorios
// que revierten la pata OUT de un traslado fallido.
const RefTableRollback = "system_rollback"

// MovementInput datos comunes para registrar un movimiento de stock.
// Qty se interpreta según la operación: magnitud positiva en las operaciones
// direccionales, delta con signo en RecordAdjustment.
type MovementInput struct {
	ProductID int
	Qty       int
	RefTable  string
	RefID     *int
	BatchNo   string
	Expiry    *time.Time
	SerialNo  string
	MovedBy   int
	Note      string
}

// TransferInput datos para un traslado entre dos productos (dos patas TRANSFER).
type TransferInput struct {
	FromProductID int
	ToProductID   int
	Qty           int
	RefTable      string
	RefID         *int
	BatchNo       string
	Expiry        *time.Time
	SerialNo      string
	MovedBy       int
	Note          string
}

// UpdateMovementInput campos a sobrescribir en un movimiento existente.
type UpdateMovementInput struct {
	MovementID int
	ProductID  int
	Qty        int
	MoveType   string
	RefTable   string
	RefID      *int
	BatchNo    string
	Expiry     *time.Time
	SerialNo   string
	MovedBy    int
	Note       string
}

// StockMovementService es el único componente que crea movimientos: valida,
// aplica el delta al stock, agrega el registro al ledger y compensa (revierte
// el delta) si el append falla. Serializa lectura→delta→append por producto
// para que movimientos concurrentes sobre el mismo producto no se pisen.
type StockMovementService struct {
	ledger    repository.StockMovementRepository
	inventory *InventoryService
	products  repository.ProductRepository
	log       *logger.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewStockMovementService construye el servicio.
func NewStockMovementService(
	ledger repository.StockMovementRepository,
	inventory *InventoryService,
	products repository.ProductRepository,
	log *logger.Logger,
) *StockMovementService {
	return &StockMovementService{
		ledger:    ledger,
		inventory: inventory,
		products:  products,
		log:       log.Component("stock_movement_service"),
		locks:     map[int]*sync.Mutex{},
	}
}

// productLock devuelve el mutex del producto, creándolo en el primer uso.
func (s *StockMovementService) productLock(productID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[productID] = l
	}
	return l
}

// RecordPurchase registra una compra: entrada de qty unidades (qty > 0).
func (s *StockMovementService) RecordPurchase(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Qty <= 0 {
		return nil, fmt.Errorf("%w: purchase requiere qty > 0", domain.ErrInvalidInput)
	}
	return s.recordCore(ctx, in, +in.Qty, entity.MovementTypePurchase, false)
}

// RecordSale registra una venta: salida de qty unidades (qty > 0).
func (s *StockMovementService) RecordSale(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Qty <= 0 {
		return nil, fmt.Errorf("%w: sale requiere qty > 0", domain.ErrInvalidInput)
	}
	return s.recordCore(ctx, in, -in.Qty, entity.MovementTypeSale, false)
}

// RecordReturnIn registra una devolución de cliente: entrada de qty unidades (qty > 0).
func (s *StockMovementService) RecordReturnIn(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Qty <= 0 {
		return nil, fmt.Errorf("%w: return in requiere qty > 0", domain.ErrInvalidInput)
	}
	return s.recordCore(ctx, in, +in.Qty, entity.MovementTypeReturnIn, false)
}

// RecordReturnOut registra una devolución a proveedor: salida de qty unidades (qty > 0).
func (s *StockMovementService) RecordReturnOut(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Qty <= 0 {
		return nil, fmt.Errorf("%w: return out requiere qty > 0", domain.ErrInvalidInput)
	}
	return s.recordCore(ctx, in, -in.Qty, entity.MovementTypeReturnOut, false)
}

// RecordConsume registra un consumo interno: salida de qty unidades (qty > 0).
func (s *StockMovementService) RecordConsume(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Qty <= 0 {
		return nil, fmt.Errorf("%w: consume requiere qty > 0", domain.ErrInvalidInput)
	}
	return s.recordCore(ctx, in, -in.Qty, entity.MovementTypeConsume, false)
}

// RecordAdjustment registra un ajuste con delta con signo (distinto de 0).
// El ajuste no permite dejar el stock negativo.
func (s *StockMovementService) RecordAdjustment(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if in.Qty == 0 {
		return nil, fmt.Errorf("%w: adjustment requiere delta ≠ 0", domain.ErrInvalidInput)
	}
	return s.recordCore(ctx, in, in.Qty, entity.MovementTypeAdjustment, false)
}

// RecordMovementByType resuelve el tipo desde un string (case-insensitive) y
// despacha a la operación tipada correspondiente. Los tipos direccionales
// normalizan la cantidad con valor absoluto; ADJUSTMENT pasa el delta tal cual.
// TRANSFER no se puede registrar por esta vía (necesita dos productos).
func (s *StockMovementService) RecordMovementByType(ctx context.Context, moveType string, in MovementInput) (*entity.StockMovement, error) {
	mt, ok := entity.ParseMovementType(moveType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMovementType, moveType)
	}

	abs := in
	if abs.Qty < 0 {
		abs.Qty = -abs.Qty
	}
	switch mt {
	case entity.MovementTypePurchase:
		return s.RecordPurchase(ctx, abs)
	case entity.MovementTypeSale:
		return s.RecordSale(ctx, abs)
	case entity.MovementTypeReturnIn:
		return s.RecordReturnIn(ctx, abs)
	case entity.MovementTypeReturnOut:
		return s.RecordReturnOut(ctx, abs)
	case entity.MovementTypeConsume:
		return s.RecordConsume(ctx, abs)
	case entity.MovementTypeAdjustment:
		return s.RecordAdjustment(ctx, in)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMovementType, moveType)
	}
}

// recordCore es el punto único por el que pasan todas las operaciones tipadas:
//  1. rechaza signedQty == 0
//  2. verifica que el producto exista y esté activo (sin mutar nada si no)
//  3. lee el on-hand actual (diagnóstico)
//  4. aplica el delta al stock; stock insuficiente corta acá, sin movimiento
//  5. construye el movimiento (id del ledger, movedAt = now) y lo agrega
//  6. si el append falla, revierte el delta (permitiendo negativo para que la
//     reversa nunca falle por cruce de cero) y re-lanza el error original
func (s *StockMovementService) recordCore(
	ctx context.Context,
	in MovementInput,
	signedQty int,
	moveType entity.MovementType,
	allowNegative bool,
) (*entity.StockMovement, error) {
	if signedQty == 0 {
		return nil, fmt.Errorf("%w: qty no puede ser 0", domain.ErrInvalidInput)
	}

	active, err := s.products.ExistsActive(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("verificar producto %d: %w", in.ProductID, err)
	}
	if !active {
		return nil, fmt.Errorf("%w: producto %d no existe o está inactivo", domain.ErrNotFound, in.ProductID)
	}

	// Serializa lectura→delta→append para este producto.
	lock := s.productLock(in.ProductID)
	lock.Lock()
	defer lock.Unlock()

	oldQty, err := s.inventory.GetOnHand(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	newQty, err := s.inventory.ApplyDelta(ctx, in.ProductID, signedQty, allowNegative)
	if err != nil {
		return nil, err
	}

	id, err := s.ledger.NextID(ctx)
	if err != nil {
		s.compensate(ctx, in.ProductID, signedQty, 0)
		return nil, fmt.Errorf("asignar id de movimiento: %w", err)
	}

	m := &entity.StockMovement{
		ID:         id,
		ProductID:  in.ProductID,
		Qty:        signedQty,
		MoveType:   moveType,
		RefTable:   in.RefTable,
		RefID:      in.RefID,
		BatchNo:    in.BatchNo,
		ExpiryDate: in.Expiry,
		SerialNo:   in.SerialNo,
		MovedAt:    time.Now(),
		MovedBy:    in.MovedBy,
		Note:       in.Note,
	}

	if err := s.ledger.Save(ctx, m); err != nil {
		s.compensate(ctx, in.ProductID, signedQty, id)
		return nil, fmt.Errorf("guardar movimiento: %w", err)
	}

	s.log.Debug().
		Int("movement_id", m.ID).
		Int("product_id", m.ProductID).
		Int("qty", m.Qty).
		Str("type", string(m.MoveType)).
		Int("old_qty", oldQty).
		Int("new_qty", newQty).
		Msg("movimiento registrado")

	return m, nil
}

// compensate revierte un delta ya aplicado tras un fallo del ledger. La reversa
// fuerza allowNegative=true; si aun así falla, el sistema queda inconsistente
// (stock mutado sin movimiento) y se deja un diagnóstico ruidoso en el log.
func (s *StockMovementService) compensate(ctx context.Context, productID, signedQty, movementID int) {
	if _, err := s.inventory.ApplyDelta(ctx, productID, -signedQty, true); err != nil {
		s.log.Error().
			Err(err).
			Int("product_id", productID).
			Int("qty", signedQty).
			Int("movement_id", movementID).
			Msg("COMPENSACIÓN FALLIDA: stock mutado sin movimiento en el ledger, requiere reconciliación manual")
	}
}

// RecordTransfer registra un traslado entre dos productos como dos patas TRANSFER:
// primero la salida en origen, luego la entrada en destino. Si la entrada falla,
// la salida se revierte con un movimiento ADJUSTMENT compensatorio (referenciando
// el id de la pata OUT) y se re-lanza el error original: la pata OUT queda en la
// historia, nunca se reescribe el ledger para ocultar el traslado fallido.
func (s *StockMovementService) RecordTransfer(ctx context.Context, in TransferInput) (out, inMv *entity.StockMovement, err error) {
	if in.Qty <= 0 {
		return nil, nil, fmt.Errorf("%w: transfer requiere qty > 0", domain.ErrInvalidInput)
	}

	// Correlación de ambas patas en los logs.
	transferID := uuid.NewString()
	tlog := s.log.With().Str("transfer_id", transferID).Logger()

	common := MovementInput{
		RefTable: in.RefTable,
		RefID:    in.RefID,
		BatchNo:  in.BatchNo,
		Expiry:   in.Expiry,
		SerialNo: in.SerialNo,
		MovedBy:  in.MovedBy,
		Note:     in.Note,
	}

	outIn := common
	outIn.ProductID = in.FromProductID
	out, err = s.recordCore(ctx, outIn, -in.Qty, entity.MovementTypeTransfer, false)
	if err != nil {
		// no se pudo sacar del origen: nada que deshacer
		return nil, nil, err
	}

	dstIn := common
	dstIn.ProductID = in.ToProductID
	inMv, err = s.recordCore(ctx, dstIn, +in.Qty, entity.MovementTypeTransfer, false)
	if err != nil {
		// revierte la pata OUT con un ajuste compensatorio; el error de la
		// compensación no enmascara el fallo original de la pata IN
		outID := out.ID
		rb := MovementInput{
			ProductID: in.FromProductID,
			RefTable:  RefTableRollback,
			RefID:     &outID,
			BatchNo:   in.BatchNo,
			Expiry:    in.Expiry,
			SerialNo:  in.SerialNo,
			MovedBy:   in.MovedBy,
			Note:      "rollback transfer out",
		}
		if _, rbErr := s.recordCore(ctx, rb, +in.Qty, entity.MovementTypeAdjustment, true); rbErr != nil {
			tlog.Error().
				Err(rbErr).
				Int("out_movement_id", outID).
				Int("from_product_id", in.FromProductID).
				Int("qty", in.Qty).
				Msg("COMPENSACIÓN FALLIDA: pata OUT de traslado sin revertir, requiere reconciliación manual")
		}
		return nil, nil, err
	}

	tlog.Info().
		Int("out_movement_id", out.ID).
		Int("in_movement_id", inMv.ID).
		Int("from_product_id", in.FromProductID).
		Int("to_product_id", in.ToProductID).
		Int("qty", in.Qty).
		Msg("traslado registrado")

	return out, inMv, nil
}

// UpdateMovement corrige los metadatos de un movimiento existente, preservando
// moved_at. Devuelve false (sin error) si el movimiento no existe.
//
// Esta vía NO re-aplica ningún delta al stock: cambiar Qty o ProductID acá no
// ajusta retroactivamente el on-hand (corrección de metadatos, no reversa
// contable; una reversa se registra como movimiento nuevo).
func (s *StockMovementService) UpdateMovement(ctx context.Context, in UpdateMovementInput) (bool, error) {
	mt, ok := entity.ParseMovementType(in.MoveType)
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnsupportedMovementType, in.MoveType)
	}

	existing, err := s.ledger.FindByID(ctx, in.MovementID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	existing.ProductID = in.ProductID
	existing.Qty = in.Qty
	existing.MoveType = mt
	existing.RefTable = in.RefTable
	existing.RefID = in.RefID
	existing.BatchNo = in.BatchNo
	existing.ExpiryDate = in.Expiry
	existing.SerialNo = in.SerialNo
	existing.MovedBy = in.MovedBy
	existing.Note = in.Note
	// MovedAt se preserva tal cual

	return s.ledger.Update(ctx, existing)
}

// GetMovement devuelve un movimiento por id; nil si no existe.
func (s *StockMovementService) GetMovement(ctx context.Context, id int) (*entity.StockMovement, error) {
	return s.ledger.FindByID(ctx, id)
}

// ListMovements lista movimientos del más reciente al más antiguo. Si productID > 0
// filtra por producto (con rango de fechas opcional).
func (s *StockMovementService) ListMovements(ctx context.Context, productID int, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	if productID > 0 {
		return s.ledger.FindByProduct(ctx, productID, from, to, limit, offset)
	}
	return s.ledger.FindAll(ctx, limit, offset)
}

// FindByBatchOrSerial lista movimientos por lote o número de serie.
func (s *StockMovementService) FindByBatchOrSerial(ctx context.Context, batchNo, serialNo string) ([]*entity.StockMovement, error) {
	if batchNo == "" && serialNo == "" {
		return nil, fmt.Errorf("%w: se requiere batch_no o serial_no", domain.ErrInvalidInput)
	}
	return s.ledger.FindByBatchOrSerial(ctx, batchNo, serialNo)
}
