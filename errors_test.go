package saleledger_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/saleledger"
)

func TestErrorClassifiers(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("context: %w", err) }

	tests := []struct {
		name      string
		err       error
		sale      bool
		auth      bool
		notFound  bool
		retryable bool
	}{
		{"Not started", saleledger.ErrSaleNotStarted, true, false, false, false},
		{"Over", wrap(saleledger.ErrSaleOver), true, false, false, false},
		{"Insufficient", wrap(saleledger.ErrInsufficientPayment), true, false, false, false},
		{"Not owner", saleledger.ErrNotOwner, false, true, false, false},
		{"Nonexistent", saleledger.ErrNonexistentToken, false, false, true, false},
		{"Conflict", wrap(saleledger.ErrStateConflict), false, false, false, true},
		{"Transfer", wrap(saleledger.ErrTransferFailed), false, false, false, true},
		{"Other", errors.New("boom"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sale, saleledger.IsSaleError(tt.err))
			assert.Equal(t, tt.auth, saleledger.IsAuthError(tt.err))
			assert.Equal(t, tt.notFound, saleledger.IsNotFound(tt.err))
			assert.Equal(t, tt.retryable, saleledger.IsRetryable(tt.err))
		})
	}
}

func TestMultiError(t *testing.T) {
	var m saleledger.MultiError
	assert.False(t, m.HasErrors())
	assert.NoError(t, m.First())

	m.Add(nil)
	m.Add(saleledger.ValidationError{Field: "caller", Message: "must not be empty"})
	m.Add(saleledger.ErrNotOwner)

	assert.True(t, m.HasErrors())
	assert.Equal(t, "saleledger: 2 errors occurred", m.Error())
	assert.ErrorIs(t, m, saleledger.ErrInvalidInput)
	assert.ErrorIs(t, m, saleledger.ErrNotOwner)

	var ve saleledger.ValidationError
	assert.ErrorAs(t, m, &ve)
	assert.Equal(t, "caller", ve.Field)
}
