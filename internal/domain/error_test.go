package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeClassifiesStockShortfallAsConflict(t *testing.T) {
	err := &InsufficientStockError{
		ProductID:   2,
		ProductName: "Laksa Paste",
		Available:   0,
		Requested:   1,
	}

	assert.Equal(t, ECONFLICT, ErrorCode(err))
	assert.Equal(t, "only 0 unit(s) of Laksa Paste left in stock", ErrorMessage(err))
}

func TestErrorCodeFindsWrappedStockShortfall(t *testing.T) {
	inner := &InsufficientStockError{ProductID: 1, ProductName: "Kopi Beans", Available: 3, Requested: 5}
	wrapped := fmt.Errorf("settling order: %w", inner)

	assert.Equal(t, ECONFLICT, ErrorCode(wrapped))
	assert.Equal(t, inner.Error(), ErrorMessage(wrapped))
}

func TestErrorMessageHidesInternalDetails(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "order.create", "insert failed")

	assert.Equal(t, EINTERNAL, ErrorCode(err))
	assert.Equal(t, "An internal error occurred. Please try again later.", ErrorMessage(err))
}
