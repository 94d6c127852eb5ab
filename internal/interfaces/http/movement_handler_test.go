package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsalazarc/clinica-stock-api/internal/application/inventory"
	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
	apphttp "github.com/dsalazarc/clinica-stock-api/internal/interfaces/http"
	"github.com/dsalazarc/clinica-stock-api/pkg/jwt"
	"github.com/dsalazarc/clinica-stock-api/pkg/logger"
)

const testSecret = "secret-de-test"

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de test en memoria
// ──────────────────────────────────────────────────────────────────────────────

type stubInventory struct {
	mu  sync.Mutex
	qty map[int]int
}

func (s *stubInventory) GetQty(_ context.Context, productID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qty[productID], nil
}

func (s *stubInventory) UpsertQty(_ context.Context, productID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qty[productID] = qty
	return nil
}

type stubLedger struct {
	mu   sync.Mutex
	seq  int
	rows map[int]*entity.StockMovement
}

func (l *stubLedger) NextID(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return l.seq, nil
}

func (l *stubLedger) Save(_ context.Context, m *entity.StockMovement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *m
	l.rows[m.ID] = &cp
	return nil
}

func (l *stubLedger) SaveAll(ctx context.Context, ms []*entity.StockMovement) error {
	for _, m := range ms {
		if err := l.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (l *stubLedger) FindByID(_ context.Context, id int) (*entity.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (l *stubLedger) Update(_ context.Context, m *entity.StockMovement) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[m.ID]; !ok {
		return false, nil
	}
	cp := *m
	l.rows[m.ID] = &cp
	return true, nil
}

func (l *stubLedger) FindAll(_ context.Context, limit, offset int) ([]*entity.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range l.rows {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (l *stubLedger) FindByProduct(_ context.Context, productID int, _, _ *time.Time, _, _ int) ([]*entity.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range l.rows {
		if m.ProductID == productID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *stubLedger) FindByBatchOrSerial(_ context.Context, batchNo, serialNo string) ([]*entity.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range l.rows {
		if (batchNo != "" && m.BatchNo == batchNo) || (serialNo != "" && m.SerialNo == serialNo) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

type stubProducts struct {
	active map[int]bool
}

func (p *stubProducts) ExistsActive(_ context.Context, productID int) (bool, error) {
	return p.active[productID], nil
}

func (p *stubProducts) GetByID(_ context.Context, productID int) (*entity.Product, error) {
	if !p.active[productID] {
		return nil, nil
	}
	return &entity.Product{ID: productID, Name: "producto", Active: true}, nil
}

// newTestApp arma la app Fiber completa con stores en memoria y productos 1 y 2 activos.
func newTestApp(t *testing.T) (*fiber.App, *stubInventory, *stubLedger) {
	t.Helper()
	inv := &stubInventory{qty: map[int]int{}}
	led := &stubLedger{rows: map[int]*entity.StockMovement{}}
	prods := &stubProducts{active: map[int]bool{1: true, 2: true}}

	log := logger.New(logger.Config{Env: "development", Level: "error"})
	stock := inventory.NewInventoryService(inv)
	svc := inventory.NewStockMovementService(led, stock, prods, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Movements: svc,
		Stock:     stock,
		JWTSecret: testSecret,
	})
	return app, inv, led
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.Generate(testSecret, 7, "clinica-stock-api", 5)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestRutasProtegidas_SinToken(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, body := doJSON(t, app, "GET", "/api/inventory/products/1/on-hand", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", body["code"])

	status, body = doJSON(t, app, "GET", "/api/inventory/products/1/on-hand", "Bearer token-roto", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", body["code"])
}

func TestRutasProtegidas_TokenDeOtroSecret(t *testing.T) {
	app, _, _ := newTestApp(t)

	token, err := jwt.Generate("otro-secret", 7, "clinica-stock-api", 5)
	require.NoError(t, err)
	status, _ := doJSON(t, app, "GET", "/api/inventory/products/1/on-hand", "Bearer "+token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro de movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_Creado(t *testing.T) {
	app, inv, _ := newTestApp(t)
	auth := bearer(t)

	status, body := doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 1,
		"qty":        5,
		"type":       "purchase",
		"batch_no":   "L-001",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.EqualValues(t, 5, body["qty"])
	assert.Equal(t, "PURCHASE", body["type"])
	assert.EqualValues(t, 7, body["moved_by"], "el actor sale del token, no del cuerpo")
	assert.Equal(t, 5, inv.qty[1])

	// y el on-hand lo refleja
	status, body = doJSON(t, app, "GET", "/api/inventory/products/1/on-hand", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 5, body["quantity"])
}

func TestRegisterMovement_ErroresDeDominio(t *testing.T) {
	app, _, _ := newTestApp(t)
	auth := bearer(t)

	// tipo desconocido -> 400
	status, body := doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 1, "qty": 5, "type": "donation",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "UNSUPPORTED_TYPE", body["code"])

	// producto inexistente -> 404
	status, body = doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 99, "qty": 5, "type": "purchase",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	// stock insuficiente -> 409
	status, body = doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 1, "qty": 5, "type": "sale",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])

	// fecha mal formada -> 400 antes de llegar al servicio
	status, body = doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 1, "qty": 5, "type": "purchase", "expiry_date": "31-12-2026",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterTransfer(t *testing.T) {
	app, inv, _ := newTestApp(t)
	auth := bearer(t)
	inv.qty[1] = 10

	status, body := doJSON(t, app, "POST", "/api/inventory/transfers", auth, map[string]interface{}{
		"from_product_id": 1, "to_product_id": 2, "qty": 4,
	})
	require.Equal(t, fiber.StatusCreated, status)

	out, ok := body["out"].(map[string]interface{})
	require.True(t, ok)
	in, ok := body["in"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, -4, out["qty"])
	assert.EqualValues(t, 4, in["qty"])
	assert.Equal(t, 6, inv.qty[1])
	assert.Equal(t, 4, inv.qty[2])
}

func TestRegisterTransfer_StockInsuficiente(t *testing.T) {
	app, inv, _ := newTestApp(t)
	auth := bearer(t)
	inv.qty[1] = 1

	status, body := doJSON(t, app, "POST", "/api/inventory/transfers", auth, map[string]interface{}{
		"from_product_id": 1, "to_product_id": 2, "qty": 4,
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Consulta y corrección
// ──────────────────────────────────────────────────────────────────────────────

func TestGetMovement(t *testing.T) {
	app, _, _ := newTestApp(t)
	auth := bearer(t)

	status, created := doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 1, "qty": 3, "type": "purchase",
	})
	require.Equal(t, fiber.StatusCreated, status)
	id := int(created["id"].(float64))

	status, body := doJSON(t, app, "GET", "/api/inventory/movements/"+itoa(id), auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 3, body["qty"])

	status, body = doJSON(t, app, "GET", "/api/inventory/movements/9999", auth, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

// Corregir metadatos no toca el on-hand.
func TestUpdateMovement_NoAlteraOnHand(t *testing.T) {
	app, inv, led := newTestApp(t)
	auth := bearer(t)

	status, created := doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
		"product_id": 1, "qty": 5, "type": "purchase",
	})
	require.Equal(t, fiber.StatusCreated, status)
	id := int(created["id"].(float64))
	require.Equal(t, 5, inv.qty[1])

	status, _ = doJSON(t, app, "PUT", "/api/inventory/movements/"+itoa(id), auth, map[string]interface{}{
		"product_id": 1, "qty": 99, "type": "purchase", "note": "corrección",
	})
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, 5, inv.qty[1], "la corrección no re-aplica el delta")
	m, err := led.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 99, m.Qty)
}

func TestUpdateMovement_NoExiste(t *testing.T) {
	app, _, _ := newTestApp(t)
	auth := bearer(t)

	status, body := doJSON(t, app, "PUT", "/api/inventory/movements/12345", auth, map[string]interface{}{
		"product_id": 1, "qty": 1, "type": "sale",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestListMovements_PorLote(t *testing.T) {
	app, _, _ := newTestApp(t)
	auth := bearer(t)

	for _, batch := range []string{"L-001", "L-001", "L-002"} {
		status, _ := doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
			"product_id": 1, "qty": 1, "type": "purchase", "batch_no": batch,
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := doJSON(t, app, "GET", "/api/inventory/movements?batch_no=L-001", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])
}

// count refleja los elementos devueltos en la página, acotados por limit.
func TestListMovements_Paginado(t *testing.T) {
	app, _, _ := newTestApp(t)
	auth := bearer(t)

	for i := 0; i < 3; i++ {
		status, _ := doJSON(t, app, "POST", "/api/inventory/movements", auth, map[string]interface{}{
			"product_id": 1, "qty": 1, "type": "purchase",
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := doJSON(t, app, "GET", "/api/inventory/movements?limit=2", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])
	movements, ok := body["movements"].([]interface{})
	require.True(t, ok)
	assert.Len(t, movements, 2)

	status, body = doJSON(t, app, "GET", "/api/inventory/movements?limit=2&offset=2", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Carga inicial
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterOpeningStock(t *testing.T) {
	app, inv, _ := newTestApp(t)
	auth := bearer(t)

	status, body := doJSON(t, app, "POST", "/api/inventory/opening-stock", auth, map[string]interface{}{
		"lines": []map[string]interface{}{
			{"product_id": 1, "qty": 10, "batch_no": "L-001"},
			{"product_id": 2, "qty": 5},
		},
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, 10, inv.qty[1])
	assert.Equal(t, 5, inv.qty[2])

	// una línea inválida rechaza el lote completo
	status, _ = doJSON(t, app, "POST", "/api/inventory/opening-stock", auth, map[string]interface{}{
		"lines": []map[string]interface{}{
			{"product_id": 1, "qty": 3},
			{"product_id": 99, "qty": 1},
		},
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, 10, inv.qty[1], "el lote rechazado no muta nada")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
