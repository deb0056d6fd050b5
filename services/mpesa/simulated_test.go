package mpesasvc

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/officialmikal/elimusmart/core"
)

func TestSimulatedGateway_RequestPayment(t *testing.T) {
	gw := NewSimulatedGateway(core.MpesaConfig{Shortcode: "174379"})
	ctx := context.Background()

	code, err := gw.RequestPayment(ctx, "+254712345678", 2500, "1023")
	if assert.NoError(t, err) {
		assert.Len(t, code, 10)
		assert.Regexp(t, "^[0-9A-F]{10}$", code)
	}

	invalid := []struct {
		phone  string
		amount int64
		ref    string
	}{
		{"", 2500, "1023"},
		{"+254712345678", 0, "1023"},
		{"+254712345678", -1, "1023"},
		{"+254712345678", 2500, ""},
	}
	for _, tt := range invalid {
		_, err := gw.RequestPayment(ctx, tt.phone, tt.amount, tt.ref)
		assert.Equal(t, ErrInvalidRequest, err)
	}
}

func TestSimulatedGateway_RequestPayment_canceled(t *testing.T) {
	gw := NewSimulatedGateway(core.MpesaConfig{Delay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.RequestPayment(ctx, "+254712345678", 2500, "1023")
	assert.Equal(t, context.DeadlineExceeded, errors.Cause(err))
	assert.True(t, time.Since(start) < time.Minute)
}
