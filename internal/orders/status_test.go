package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPendingPayment, StatusConfirmed}: true,
		{StatusPendingPayment, StatusCancelled}: true,
		{StatusPendingPayment, StatusExpired}:   true,
		{StatusConfirmed, StatusProcessing}:     true,
		{StatusConfirmed, StatusCancelled}:      true,
		{StatusProcessing, StatusShipped}:       true,
		{StatusShipped, StatusDelivered}:        true,
	}
	all := []Status{StatusPendingPayment, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusExpired}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.False(t, StatusPendingPayment.Terminal())
	assert.False(t, StatusShipped.Terminal())
	assert.False(t, Status("paid").Terminal())
	assert.False(t, Status("paid").Valid())
}

func TestTransitionEffect(t *testing.T) {
	assert.Equal(t, EffectRelease, TransitionEffect(StatusCancelled))
	assert.Equal(t, EffectRelease, TransitionEffect(StatusExpired))
	assert.Equal(t, EffectShip, TransitionEffect(StatusShipped))
	assert.Equal(t, EffectNone, TransitionEffect(StatusConfirmed))
	assert.Equal(t, EffectNone, TransitionEffect(StatusDelivered))
}

func TestOrderOverdue(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	o := Order{Status: StatusPendingPayment, ExpiresAt: now}
	assert.False(t, o.Overdue(now))
	assert.True(t, o.Overdue(now.Add(time.Second)))
	o.Status = StatusConfirmed
	assert.False(t, o.Overdue(now.Add(time.Hour)))
}

func TestOrderNumber(t *testing.T) {
	ts := time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC)
	assert.Equal(t, "ORD20250307090501", OrderNumber(ts))
	assert.Equal(t, "ORD20250307090501", OrderNumberAttempt(ts, 1))
	assert.Equal(t, "ORD20250307090501-3", OrderNumberAttempt(ts, 3))
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = &StockError{Details: []StockRejectedDetail{{ProductID: "p1", Required: 5, Available: 2}}}
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Contains(t, err.Error(), "p1")

	err = &TransitionError{From: StatusShipped, To: StatusCancelled}
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	inner := errors.New("boom")
	err = &ValidationError{Field: "sku", Message: "bad", Err: inner}
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, "sku: bad", err.Error())
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 10}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, Limit: 100}, Page{Page: 3, Limit: 500}.Normalize())
	assert.Equal(t, 20, Page{Page: 3, Limit: 10}.Offset())

	meta := NewPageMeta(Page{Page: 2, Limit: 10}, 21)
	assert.Equal(t, PageMeta{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, meta)
}
