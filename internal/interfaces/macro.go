package interfaces

import (
	"context"

	"crypto-signal-engine/internal/types"
)

// MacroProvider is one source of the global macro payload.
type MacroProvider interface {
	Name() string
	Fetch(ctx context.Context) (*types.GlobalNews, error)
}

// MacroResolver returns the best macro payload available. It never fails;
// when no source has data it answers with status "sem_dados".
type MacroResolver interface {
	Resolve(ctx context.Context) *types.GlobalNews
}

// HeadlineSource returns raw headline titles.
type HeadlineSource interface {
	Headlines(ctx context.Context) ([]string, error)
}
