package core

import "context"

// Messaging channels handled by an SMSService.
const (
	ChannelSMS      = "SMS"
	ChannelWhatsApp = "WhatsApp"
)

type (
	SMSMessage struct {
		To      string // E.164 phone number
		Channel string // ChannelSMS | ChannelWhatsApp
		Body    string
	}

	// SMSService is any gateway that can deliver text messages to phones.
	SMSService interface {
		// Send delivers messages and returns how many were accepted by the gateway.
		Send(ctx context.Context, messages ...SMSMessage) (int, error)
	}
)

// PaymentGateway requests mobile money payments from a payer's phone (eg. M-Pesa STK push).
type PaymentGateway interface {
	// RequestPayment blocks until the payer confirms and returns the gateway receipt code.
	RequestPayment(ctx context.Context, phone string, amount int64, accountRef string) (string, error)
}
