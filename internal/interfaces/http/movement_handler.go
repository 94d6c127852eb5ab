package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dsalazarc/clinica-stock-api/internal/application/dto"
	"github.com/dsalazarc/clinica-stock-api/internal/application/inventory"
	"github.com/dsalazarc/clinica-stock-api/internal/domain"
)

// MovementHandler maneja las peticiones HTTP del ledger de movimientos (protegido).
type MovementHandler struct {
	movements *inventory.StockMovementService
	stock     *inventory.InventoryService
}

// NewMovementHandler construye el handler.
func NewMovementHandler(movements *inventory.StockMovementService, stock *inventory.InventoryService) *MovementHandler {
	return &MovementHandler{movements: movements, stock: stock}
}

// mapDomainError traduce errores de dominio a códigos HTTP.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnsupportedMovementType):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNSUPPORTED_TYPE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrQuantityOverflow):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "QUANTITY_OVERFLOW", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, qty, type (purchase|sale|return_in|return_out|consume|adjustment), referencias opcionales"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *MovementHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	expiry, ok := dto.ParseExpiry(in.ExpiryDate)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "expiry_date inválido (YYYY-MM-DD)"})
	}

	m, err := h.movements.RecordMovementByType(c.Context(), in.Type, inventory.MovementInput{
		ProductID: in.ProductID,
		Qty:       in.Qty,
		RefTable:  in.RefTable,
		RefID:     in.RefID,
		BatchNo:   in.BatchNo,
		Expiry:    expiry,
		SerialNo:  in.SerialNo,
		MovedBy:   userID,
		Note:      in.Note,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMovement(m))
}

// RegisterTransfer godoc
// @Summary      Registrar traslado entre productos (dos patas TRANSFER)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "from_product_id, to_product_id, qty"
// @Success      201   {object}  map[string]dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *MovementHandler) RegisterTransfer(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	expiry, ok := dto.ParseExpiry(in.ExpiryDate)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "expiry_date inválido (YYYY-MM-DD)"})
	}

	out, inMv, err := h.movements.RecordTransfer(c.Context(), inventory.TransferInput{
		FromProductID: in.FromProductID,
		ToProductID:   in.ToProductID,
		Qty:           in.Qty,
		RefTable:      in.RefTable,
		RefID:         in.RefID,
		BatchNo:       in.BatchNo,
		Expiry:        expiry,
		SerialNo:      in.SerialNo,
		MovedBy:       userID,
		Note:          in.Note,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"out": dto.FromMovement(out),
		"in":  dto.FromMovement(inMv),
	})
}

// UpdateMovement godoc
// @Summary      Corregir metadatos de un movimiento existente
// @Description  No re-aplica cantidades al stock: es una corrección de metadatos.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                        true  "ID del movimiento"
// @Param        body  body  dto.UpdateMovementRequest  true  "campos a sobrescribir"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [put]
func (h *MovementHandler) UpdateMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.UpdateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	expiry, ok := dto.ParseExpiry(in.ExpiryDate)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "expiry_date inválido (YYYY-MM-DD)"})
	}

	found, err := h.movements.UpdateMovement(c.Context(), inventory.UpdateMovementInput{
		MovementID: id,
		ProductID:  in.ProductID,
		Qty:        in.Qty,
		MoveType:   in.Type,
		RefTable:   in.RefTable,
		RefID:      in.RefID,
		BatchNo:    in.BatchNo,
		Expiry:     expiry,
		SerialNo:   in.SerialNo,
		MovedBy:    userID,
		Note:       in.Note,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "movimiento no encontrado"})
	}
	return c.JSON(fiber.Map{"message": "movimiento actualizado"})
}

// GetMovement godoc
// @Summary      Obtener un movimiento por ID
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *MovementHandler) GetMovement(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	m, err := h.movements.GetMovement(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "movimiento no encontrado"})
	}
	return c.JSON(dto.FromMovement(m))
}

// ListMovements godoc
// @Summary      Listar movimientos (más recientes primero)
// @Description  count es la cantidad de elementos devueltos en la página, no el total de filas.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  int     false  "Filtrar por producto"
// @Param        from        query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to          query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        batch_no    query  string  false  "Filtrar por lote"
// @Param        serial_no   query  string  false  "Filtrar por serial"
// @Param        limit       query  int     false  "Máximo por página (default 20)"
// @Param        offset      query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *MovementHandler) ListMovements(c *fiber.Ctx) error {
	var q dto.ListMovementsRequest
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	q.DefaultPage()

	if q.BatchNo != "" || q.SerialNo != "" {
		list, err := h.movements.FindByBatchOrSerial(c.Context(), q.BatchNo, q.SerialNo)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{"count": len(list), "movements": dto.FromMovements(list)})
	}

	var from, to *time.Time
	if t, ok := dto.ParseExpiry(q.From); ok {
		from = t
	} else {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido (YYYY-MM-DD)"})
	}
	if t, ok := dto.ParseExpiry(q.To); ok {
		to = t
	} else {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido (YYYY-MM-DD)"})
	}

	list, err := h.movements.ListMovements(c.Context(), q.ProductID, from, to, q.Limit, q.Offset)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"count": len(list), "movements": dto.FromMovements(list)})
}

// GetOnHand godoc
// @Summary      Stock disponible de un producto
// @Description  Devuelve 0 si el producto aún no tiene registro de stock.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "ID del producto"
// @Success      200  {object}  dto.OnHandResponse
// @Router       /api/inventory/products/{id}/on-hand [get]
func (h *MovementHandler) GetOnHand(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	qty, err := h.stock.GetOnHand(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.OnHandResponse{ProductID: id, Quantity: qty})
}

// RegisterOpeningStock godoc
// @Summary      Carga inicial de stock (lote, todo o nada)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpeningStockRequest  true  "líneas de carga inicial"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/opening-stock [post]
func (h *MovementHandler) RegisterOpeningStock(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.OpeningStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	lines := make([]inventory.OpeningStockLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		expiry, ok := dto.ParseExpiry(l.ExpiryDate)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: fmt.Sprintf("expiry_date inválido en línea %d (YYYY-MM-DD)", i+1)})
		}
		lines = append(lines, inventory.OpeningStockLine{
			ProductID: l.ProductID,
			Qty:       l.Qty,
			BatchNo:   l.BatchNo,
			Expiry:    expiry,
			SerialNo:  l.SerialNo,
			Note:      l.Note,
		})
	}

	movements, err := h.movements.RecordOpeningStock(c.Context(), lines, userID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"count":     len(movements),
		"movements": dto.FromMovements(movements),
	})
}
