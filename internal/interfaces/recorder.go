package interfaces

import (
	"context"

	"crypto-signal-engine/internal/types"
)

// Recorder persists evaluated decision cycles so they can be audited later.
type Recorder interface {
	RecordPlans(ctx context.Context, live *types.LivePayload) error
	RecordMacro(ctx context.Context, macro *types.GlobalNews) error
	Close() error
}
