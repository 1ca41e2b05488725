package recorder

import (
	"context"

	"crypto-signal-engine/internal/types"
)

// NoopRecorder is used when no SQLite path is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPlans(context.Context, *types.LivePayload) error { return nil }
func (n *NoopRecorder) RecordMacro(context.Context, *types.GlobalNews) error  { return nil }
func (n *NoopRecorder) Close() error                                          { return nil }
