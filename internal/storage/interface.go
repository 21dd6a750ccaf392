package storage

import (
	"context"

	"github.com/danilovkiri/dk-go-refill/internal/models/modelstorage"
)

// OrderRepository persists orders keyed by the gateway-assigned identifier.
type OrderRepository interface {
	UpsertOrder(ctx context.Context, order modelstorage.OrderStorageEntry) error
	GetOrder(ctx context.Context, id string) (*modelstorage.OrderStorageEntry, error)
}

// TokenRepository provides the shared payment gateway access token.
type TokenRepository interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// TechRepository provides the maintenance flag.
type TechRepository interface {
	GetTechStatus(ctx context.Context) (bool, error)
}

type Storage interface {
	OrderRepository
	TokenRepository
	TechRepository
}
