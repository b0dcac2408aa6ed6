package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrder(t *testing.T) {
	o, err := NewOrder(1, 2, 1000)
	assert.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatePending, o.Status)
	assert.Equal(t, 1000.0, o.OriginalPrice)
	assert.Equal(t, 1000.0, o.FinalPrice)
	assert.Nil(t, o.AppliedCouponID)
}

func TestNewOrder_RejectsMissingFields(t *testing.T) {
	_, err := NewOrder(0, 2, 100)
	assert.Error(t, err)
	_, err = NewOrder(1, 0, 100)
	assert.Error(t, err)
	_, err = NewOrder(1, 2, -1)
	assert.Error(t, err)
}

func TestApplyCoupon(t *testing.T) {
	o, _ := NewOrder(1, 2, 1000)
	o.ApplyCoupon(7, "WELCOME20", 200, 800)
	assert.Equal(t, int64(7), *o.AppliedCouponID)
	assert.Equal(t, 200.0, o.DiscountAmount)
	assert.Equal(t, 800.0, o.FinalPrice)
}

func TestOrderStateMachine(t *testing.T) {
	o, _ := NewOrder(1, 2, 1000)

	assert.NoError(t, o.MarkPaid())
	assert.Equal(t, StatePaid, o.Status)
	assert.True(t, o.Status.Terminal())

	// 终态之后不允许再次流转
	assert.ErrorIs(t, o.MarkPaid(), ErrOrderNotPending)
	assert.ErrorIs(t, o.MarkFailed("x"), ErrOrderNotPending)
}

func TestMarkFailedRecordsReason(t *testing.T) {
	o, _ := NewOrder(1, 2, 1000)
	assert.NoError(t, o.MarkFailed("CouponLimitRaceLost"))
	assert.Equal(t, StateFailed, o.Status)
	assert.Equal(t, "CouponLimitRaceLost", o.FailureReason)
}
