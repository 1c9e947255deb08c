package catalog_test

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validates(t *testing.T) {
	_, err := catalog.New("", "Mug", decimal.NewFromInt(1), 1)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = catalog.New("mug", "  ", decimal.NewFromInt(1), 1)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = catalog.New("mug", "Mug", decimal.NewFromInt(-1), 1)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = catalog.New("mug", "Mug", decimal.NewFromInt(1), -1)
	require.ErrorIs(t, err, domain.ErrValidation)

	p, err := catalog.New("mug", " Mug ", decimal.Zero, 0)
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
}

func TestCanFulfil(t *testing.T) {
	p, err := catalog.New("mug", "Mug", decimal.NewFromInt(3), 2)
	require.NoError(t, err)

	require.NoError(t, p.CanFulfil(2))
	require.ErrorIs(t, p.CanFulfil(0), catalog.ErrInvalidQuantity)

	err = p.CanFulfil(3)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	var se *catalog.InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Requested)
	assert.Equal(t, 2, se.Available)
	assert.False(t, errors.Is(err, catalog.ErrStockConflict))
}

func TestApplyAdjustment(t *testing.T) {
	tests := []struct {
		name                    string
		current, delta, minimum int
		want                    int
		wantErr                 bool
	}{
		{name: "decrement within stock", current: 5, delta: -2, minimum: 2, want: 3},
		{name: "decrement to zero", current: 2, delta: -2, minimum: 2, want: 0},
		{name: "below expected minimum", current: 1, delta: -2, minimum: 2, want: 1, wantErr: true},
		{name: "would go negative", current: 1, delta: -2, minimum: 0, want: 1, wantErr: true},
		{name: "restore", current: 0, delta: 4, minimum: 0, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.ApplyAdjustment(tt.current, tt.delta, tt.minimum)
			if tt.wantErr {
				require.ErrorIs(t, err, catalog.ErrStockConflict)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInsufficientStockError_UnwrapsCause(t *testing.T) {
	err := &catalog.InsufficientStockError{ProductID: "mug", Requested: 2, Available: 1, Cause: catalog.ErrStockConflict}
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.ErrorIs(t, err, catalog.ErrStockConflict)
	assert.Contains(t, err.Error(), "product mug")
}

func TestLowStock(t *testing.T) {
	p, err := catalog.New("mug", "Mug", decimal.NewFromInt(3), catalog.LowStockThreshold)
	require.NoError(t, err)
	assert.True(t, p.LowStock())
	p.Stock++
	assert.False(t, p.LowStock())
}
