package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExchangeCode(t *testing.T) {
	assert.Equal(t, "sh600519", ExchangeCode("600519"))
	assert.Equal(t, "sz000001", ExchangeCode("000001"))
	assert.Equal(t, "sz300750", ExchangeCode("300750"))
}

func TestValidateBars(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC) }

	assert.NoError(t, ValidateBars(nil))
	assert.NoError(t, ValidateBars([]PriceBar{{Date: d(1)}, {Date: d(2)}, {Date: d(5)}}))
	assert.Error(t, ValidateBars([]PriceBar{{Date: d(2)}, {Date: d(1)}}))
	assert.Error(t, ValidateBars([]PriceBar{{Date: d(1)}, {Date: d(1)}}), "duplicate dates rejected")
}

func TestDataErrorTyping(t *testing.T) {
	err := NewInsufficientHistoryError("600519", 10, 60)
	assert.True(t, IsType(err, ErrInsufficientHistory))
	assert.False(t, IsType(err, ErrDataUnavailable))
	assert.False(t, IsType(errors.New("plain"), ErrInsufficientHistory))
	assert.Contains(t, err.Error(), "10 bars, need 60")

	cause := errors.New("disk full")
	perr := NewPersistenceError("/tmp/x", cause)
	assert.True(t, IsType(perr, ErrPersistence))
	assert.ErrorIs(t, perr, cause)
}
