package order

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLines(t *testing.T) {
	got, err := mergeLines([]reservation{
		{ProductID: "mug", Quantity: 1},
		{ProductID: "beans", Quantity: 2},
		{ProductID: "mug", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []reservation{{ProductID: "mug", Quantity: 4}, {ProductID: "beans", Quantity: 2}}, got)

	_, err = mergeLines([]reservation{{ProductID: "mug", Quantity: 0}})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = mergeLines([]reservation{{ProductID: "", Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = mergeLines(nil)
	require.ErrorIs(t, err, ErrEmptyCart)
}
