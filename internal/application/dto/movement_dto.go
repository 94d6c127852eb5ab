package dto

import (
	"time"

	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
)

// expiryLayout formato de fecha de vencimiento en la API (YYYY-MM-DD).
const expiryLayout = "2006-01-02"

// RegisterMovementRequest cuerpo para POST /api/inventory/movements.
type RegisterMovementRequest struct {
	ProductID  int    `json:"product_id"`
	Qty        int    `json:"qty"`
	Type       string `json:"type"` // purchase|sale|return_in|return_out|consume|adjustment
	RefTable   string `json:"ref_table"`
	RefID      *int   `json:"ref_id"`
	BatchNo    string `json:"batch_no"`
	ExpiryDate string `json:"expiry_date"` // YYYY-MM-DD, opcional
	SerialNo   string `json:"serial_no"`
	Note       string `json:"note"`
}

// TransferRequest cuerpo para POST /api/inventory/transfers.
type TransferRequest struct {
	FromProductID int    `json:"from_product_id"`
	ToProductID   int    `json:"to_product_id"`
	Qty           int    `json:"qty"`
	RefTable      string `json:"ref_table"`
	RefID         *int   `json:"ref_id"`
	BatchNo       string `json:"batch_no"`
	ExpiryDate    string `json:"expiry_date"`
	SerialNo      string `json:"serial_no"`
	Note          string `json:"note"`
}

// UpdateMovementRequest cuerpo para PUT /api/inventory/movements/:id.
// Corrección de metadatos: no re-aplica cantidades al stock.
type UpdateMovementRequest struct {
	ProductID  int    `json:"product_id"`
	Qty        int    `json:"qty"`
	Type       string `json:"type"`
	RefTable   string `json:"ref_table"`
	RefID      *int   `json:"ref_id"`
	BatchNo    string `json:"batch_no"`
	ExpiryDate string `json:"expiry_date"`
	SerialNo   string `json:"serial_no"`
	Note       string `json:"note"`
}

// OpeningStockLineRequest una línea de carga inicial.
type OpeningStockLineRequest struct {
	ProductID  int    `json:"product_id"`
	Qty        int    `json:"qty"`
	BatchNo    string `json:"batch_no"`
	ExpiryDate string `json:"expiry_date"`
	SerialNo   string `json:"serial_no"`
	Note       string `json:"note"`
}

// OpeningStockRequest cuerpo para POST /api/inventory/opening-stock.
type OpeningStockRequest struct {
	Lines []OpeningStockLineRequest `json:"lines"`
}

// ListMovementsRequest query params para GET /api/inventory/movements.
type ListMovementsRequest struct {
	ProductID int    `query:"product_id"`
	From      string `query:"from"` // YYYY-MM-DD
	To        string `query:"to"`   // YYYY-MM-DD
	BatchNo   string `query:"batch_no"`
	SerialNo  string `query:"serial_no"`
	PageRequest
}

// MovementResponse representación JSON de un movimiento del ledger.
type MovementResponse struct {
	ID          int    `json:"id"`
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Qty         int    `json:"qty"`
	Type        string `json:"type"`
	RefTable    string `json:"ref_table,omitempty"`
	RefID       *int   `json:"ref_id,omitempty"`
	BatchNo     string `json:"batch_no,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	SerialNo    string `json:"serial_no,omitempty"`
	MovedAt     string `json:"moved_at"`
	MovedBy     int    `json:"moved_by"`
	Note        string `json:"note,omitempty"`
}

// OnHandResponse respuesta de GET /api/inventory/products/:id/on-hand.
type OnHandResponse struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// ParseExpiry convierte un string YYYY-MM-DD en *time.Time; nil si está vacío.
// ok=false si el formato es inválido.
func ParseExpiry(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(expiryLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// FromMovement mapea la entidad a su representación JSON.
func FromMovement(m *entity.StockMovement) MovementResponse {
	out := MovementResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Qty:         m.Qty,
		Type:        string(m.MoveType),
		RefTable:    m.RefTable,
		RefID:       m.RefID,
		BatchNo:     m.BatchNo,
		SerialNo:    m.SerialNo,
		MovedAt:     m.MovedAt.Format(time.RFC3339),
		MovedBy:     m.MovedBy,
		Note:        m.Note,
	}
	if m.ExpiryDate != nil {
		out.ExpiryDate = m.ExpiryDate.Format(expiryLayout)
	}
	return out
}

// FromMovements mapea una lista de entidades.
func FromMovements(ms []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromMovement(m))
	}
	return out
}
