package mpesasvc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/officialmikal/elimusmart/core"
)

var ErrInvalidRequest = errors.New("invalid payment request")

// SimulatedGateway approves every STK push after a delay, unless ctx ends first.
type SimulatedGateway struct {
	shortcode string
	delay     time.Duration
}

var _ core.PaymentGateway = (*SimulatedGateway)(nil)

func NewSimulatedGateway(conf core.MpesaConfig) *SimulatedGateway {
	return &SimulatedGateway{shortcode: conf.Shortcode, delay: conf.Delay}
}

// RequestPayment returns an M-Pesa style receipt code, eg. "QJK4T7Z2PA".
func (gw *SimulatedGateway) RequestPayment(ctx context.Context, phone string, amount int64, accountRef string) (string, error) {
	if phone == "" || amount <= 0 || accountRef == "" {
		return "", ErrInvalidRequest
	}

	timer := time.NewTimer(gw.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "waiting for payer confirmation")
	case <-timer.C:
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return code[:10], nil
}
