package port

import (
	"context"
	"errors"
)

var ErrSlotEmpty = errors.New("slot empty")

// CartSlot is a durable key-value slot holding one serialized cart.
type CartSlot interface {
	// Get returns ErrSlotEmpty when nothing has been stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Put overwrites whatever is stored under key
	Put(ctx context.Context, key string, value []byte) error

	Delete(ctx context.Context, key string) error
}
