package interfaces

import (
	"context"

	"crypto-signal-engine/internal/types"
)

// Engine builds the live decision payload for every configured symbol.
type Engine interface {
	Live(ctx context.Context) (*types.LivePayload, error)
}
