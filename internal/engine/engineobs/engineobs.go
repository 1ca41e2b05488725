package engineobs

import (
	"context"

	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Live(ctx context.Context) (*types.LivePayload, error) {
	op := logger.StartOperation(ctx, "engine.Live")
	logger.Debug(op.Context(), "Starting decision cycle")

	result, err := oe.engine.Live(op.Context())
	if err != nil {
		op.Fail("Decision cycle failed", err)
		return nil, err
	}

	buys := 0
	for _, v := range result.Symbols {
		if v.TradePlan.Action == types.ActionBuy {
			buys++
		}
	}
	op.End("Decision cycle completed",
		"symbols", len(result.Symbols),
		"buy_plans", buys,
		"posture", result.Macro.Posture,
	)
	return result, nil
}
