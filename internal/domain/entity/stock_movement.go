package entity

import (
	"strings"
	"time"
)

// MovementType tipo semántico de un movimiento de stock.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementTypePurchase   MovementType = "PURCHASE"   // compra (entrada)
	MovementTypeSale       MovementType = "SALE"       // venta (salida)
	MovementTypeReturnIn   MovementType = "RETURN_IN"  // devolución de cliente (entrada)
	MovementTypeReturnOut  MovementType = "RETURN_OUT" // devolución a proveedor (salida)
	MovementTypeConsume    MovementType = "CONSUME"    // consumo interno (salida)
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // ajuste (delta con signo)
	MovementTypeTransfer   MovementType = "TRANSFER"   // traslado entre productos (dos movimientos)
)

// ParseMovementType resuelve un string (case-insensitive) al tipo de movimiento.
// ok=false si el string no corresponde a ningún tipo conocido.
func ParseMovementType(s string) (MovementType, bool) {
	switch MovementType(strings.ToUpper(strings.TrimSpace(s))) {
	case MovementTypePurchase:
		return MovementTypePurchase, true
	case MovementTypeSale:
		return MovementTypeSale, true
	case MovementTypeReturnIn:
		return MovementTypeReturnIn, true
	case MovementTypeReturnOut:
		return MovementTypeReturnOut, true
	case MovementTypeConsume:
		return MovementTypeConsume, true
	case MovementTypeAdjustment:
		return MovementTypeAdjustment, true
	case MovementTypeTransfer:
		return MovementTypeTransfer, true
	}
	return "", false
}

// StockMovement representa un hecho inmutable del ledger: un cambio con signo
// sobre el stock de un producto, con su causa y procedencia.
// Qty positivo = entrada, negativo = salida; siempre igual al delta aplicado al stock.
type StockMovement struct {
	ID         int
	ProductID  int
	Qty        int
	MoveType   MovementType
	RefTable   string     // documento origen (p. ej. "sales_orders"); vacío si no aplica
	RefID      *int       // id del documento origen
	BatchNo    string     // lote
	ExpiryDate *time.Time // vencimiento del lote
	SerialNo   string
	MovedAt    time.Time // asignado al crear; se preserva en actualizaciones de metadatos
	MovedBy    int       // UserID del actor
	Note       string
	// ProductName campo denormalizado, solo poblado en lecturas con join; no autoritativo.
	ProductName string
}
