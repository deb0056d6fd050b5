package smssvc

import (
	"context"
	"log"
	"sync"

	"github.com/officialmikal/elimusmart/core"
)

// ConsoleService prints text messages instead of delivering them.
type ConsoleService struct {
	logger        *log.Logger
	disableOutput bool

	mu   sync.Mutex
	sent []core.SMSMessage
}

var _ core.SMSService = (*ConsoleService)(nil)

func NewConsoleService(logger *log.Logger) *ConsoleService {
	return &ConsoleService{logger: logger}
}

// NewConsoleServiceMock records messages without printing them.
func NewConsoleServiceMock() *ConsoleService {
	return &ConsoleService{disableOutput: true}
}

func (svc *ConsoleService) Send(ctx context.Context, messages ...core.SMSMessage) (int, error) {
	var n int
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if msg.To == "" || msg.Body == "" {
			continue
		}
		if !svc.disableOutput && svc.logger != nil {
			svc.logger.Printf("%s to %s: %s", msg.Channel, msg.To, msg.Body)
		}
		svc.mu.Lock()
		svc.sent = append(svc.sent, msg)
		svc.mu.Unlock()
		n++
	}
	return n, nil
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleService) SentMessages() []core.SMSMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.SMSMessage(nil), svc.sent...)
}
