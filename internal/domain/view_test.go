package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductView_DefaultsAndReset(t *testing.T) {
	var v ProductView
	v.Show("dew-stick")
	assert.Equal(t, PurchaseOneTime, v.Mode)

	v.Select(PurchaseSubscribe)
	assert.True(t, v.DisplayPrice(productA(), usd).Equal(dec("15.30")))

	// same product keeps selection
	v.Show("dew-stick")
	assert.Equal(t, PurchaseSubscribe, v.Mode)

	v.Show("bloom-balm")
	assert.Equal(t, PurchaseOneTime, v.Mode)
	assert.Equal(t, "bloom-balm", v.ProductID)
}

func TestParsePurchaseMode(t *testing.T) {
	m, err := ParsePurchaseMode("subscribe")
	require.NoError(t, err)
	assert.True(t, m.IsSubscription())

	m, err = ParsePurchaseMode("one-time")
	require.NoError(t, err)
	assert.False(t, m.IsSubscription())

	_, err = ParsePurchaseMode("weekly")
	assert.ErrorIs(t, err, ErrUnknownPurchaseMode)
}
