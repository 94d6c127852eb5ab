package inventory_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsalazarc/clinica-stock-api/internal/application/inventory"
	"github.com/dsalazarc/clinica-stock-api/internal/domain"
)

// Leer el on-hand no tiene efectos; un producto sin fila vale 0.
func TestGetOnHand_LecturaIdempotente(t *testing.T) {
	repo := newMemInventory()
	svc := inventory.NewInventoryService(repo)

	qty, err := svc.GetOnHand(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, qty, "producto sin fila vale 0")

	repo.qty[1] = 12
	for i := 0; i < 3; i++ {
		qty, err = svc.GetOnHand(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 12, qty)
	}
}

// Después de aplicar un delta, el on-hand es exactamente el valor anterior más el delta.
func TestApplyDelta_ConservaDelta(t *testing.T) {
	repo := newMemInventory()
	svc := inventory.NewInventoryService(repo)
	ctx := context.Background()

	newQty, err := svc.ApplyDelta(ctx, 1, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, newQty)

	newQty, err = svc.ApplyDelta(ctx, 1, -3, false)
	require.NoError(t, err)
	assert.Equal(t, 2, newQty)

	qty, err := svc.GetOnHand(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)
}

// Un delta que dejaría el stock negativo se rechaza sin mutarlo, salvo que
// allowNegative lo permita (la reversa de una compensación lo usa).
func TestApplyDelta_GuardaNegativo(t *testing.T) {
	repo := newMemInventory()
	svc := inventory.NewInventoryService(repo)
	ctx := context.Background()

	repo.qty[1] = 2

	_, err := svc.ApplyDelta(ctx, 1, -5, false)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, repo.qty[1], "el rechazo no muta el stock")

	newQty, err := svc.ApplyDelta(ctx, 1, -5, true)
	require.NoError(t, err)
	assert.Equal(t, -3, newQty, "allowNegative permite cruzar cero")
}

// Deltas que desbordan el rango de int32 se rechazan sin mutar.
func TestApplyDelta_Overflow(t *testing.T) {
	repo := newMemInventory()
	svc := inventory.NewInventoryService(repo)
	ctx := context.Background()

	repo.qty[1] = math.MaxInt32 - 1

	_, err := svc.ApplyDelta(ctx, 1, 2, false)
	assert.ErrorIs(t, err, domain.ErrQuantityOverflow)
	assert.Equal(t, math.MaxInt32-1, repo.qty[1])

	newQty, err := svc.ApplyDelta(ctx, 1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, newQty)

	repo.qty[2] = math.MinInt32 + 1
	_, err = svc.ApplyDelta(ctx, 2, -2, true)
	assert.ErrorIs(t, err, domain.ErrQuantityOverflow, "también desborda por abajo")
}
