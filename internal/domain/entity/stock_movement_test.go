package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsalazarc/clinica-stock-api/internal/domain/entity"
)

func TestParseMovementType(t *testing.T) {
	cases := []struct {
		in   string
		want entity.MovementType
		ok   bool
	}{
		{"purchase", entity.MovementTypePurchase, true},
		{"SALE", entity.MovementTypeSale, true},
		{"Return_In", entity.MovementTypeReturnIn, true},
		{"return_out", entity.MovementTypeReturnOut, true},
		{"consume", entity.MovementTypeConsume, true},
		{"adjustment", entity.MovementTypeAdjustment, true},
		{"transfer", entity.MovementTypeTransfer, true},
		{"  sale  ", entity.MovementTypeSale, true},
		{"donation", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := entity.ParseMovementType(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
