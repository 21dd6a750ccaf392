package processor

import (
	"context"

	"github.com/danilovkiri/dk-go-refill/internal/models/modeldto"
)

// Processor is the order workflow used by the API handlers.
type Processor interface {
	CreateOrder(ctx context.Context, order modeldto.NewOrder) (*modeldto.OrderCreated, error)
	PlaceOrder(ctx context.Context, order modeldto.NewOrder) (*modeldto.OrderCreated, error)
	GetOrder(ctx context.Context, id string) (*modeldto.Order, error)
}

// Gateway creates payment orders and returns their QR payloads.
type Gateway interface {
	CreateOrder(ctx context.Context, description string, minorAmount int64) (string, error)
	GetPaymentCode(ctx context.Context, orderID string) (string, error)
}

// Checker verifies that a Steam login can be refilled.
type Checker interface {
	CheckLogin(ctx context.Context, login string) error
}

// Notifier relays a text message to the operators chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
