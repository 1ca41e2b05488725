package engine

import (
	"context"

	"crypto-signal-engine/internal/types"
)

// Traffic lights.
const (
	LightGreen  = "green"
	LightYellow = "yellow"
	LightRed    = "red"
)

// planner derives a trade plan from one snapshot. It never fails: missing
// inputs turn into nil levels or failing checks.
type planner struct {
	stops *stopManager
	risk  *riskManager
}

func newPlanner(targetAlloc, stageMult map[string]float64) *planner {
	return &planner{stops: newStopManager(), risk: newRiskManager(targetAlloc, stageMult)}
}

func (p *planner) build(ctx context.Context, s *types.Snapshot, posture string) types.TradePlan {
	quality := EvaluateQuality(s, posture)
	gaps := ComputeGaps(s)
	lv := p.stops.levels(s)
	action := p.risk.action(ctx, s.Symbol, s.Stage, s.Guardrails)
	base, alt := scenarios(s.Regime1W, s.Regime4H)

	return types.TradePlan{
		Action:                action,
		EntryPrice:            s.Price,
		StopPrice:             lv.OperationalStop,
		StopOperationalPrice:  lv.OperationalStop,
		StopStructuralPrice:   lv.StructuralStop,
		Target1Price:          lv.Target1,
		Target2Price:          lv.Target2,
		Confidence:            Confidence(quality.Checks),
		SuggestedAllocPct:     p.risk.allocation(s.Symbol, s.Stage),
		RiskPct:               lv.RiskPct,
		RiskOperationalPct:    lv.RiskOperationalPct,
		RiskStructuralPct:     lv.RiskStructuralPct,
		Invalidated:           p.stops.checkInvalidated(ctx, s.Symbol, action, s.Price, lv.OperationalStop),
		Quality:               quality,
		DataQualityScore:      s.DQScore,
		DataQualityThreshold:  s.DQThreshold,
		RiskPerTradePct:       s.Guardrails.TradePct,
		RiskPerTradeLimitPct:  s.Guardrails.TradeLimitPct,
		RiskPortfolioProjPct:  s.Guardrails.PortfolioProjPct,
		RiskPortfolioLimitPct: s.Guardrails.PortfolioLimit,
		GuardrailsBlocked:     s.Guardrails.Blocked,
		ScenarioBase:          base,
		ScenarioAlt:           alt,
		Bottleneck:            SelectBottleneck(quality.Checks, gaps),
		BuyNowSteps:           NextSteps(quality.Checks, gaps, s.Guardrails),
	}
}

// BuildPlan derives the plan for one snapshot with the given allocation
// tables.
func BuildPlan(ctx context.Context, s *types.Snapshot, posture string, targetAlloc, stageMult map[string]float64) types.TradePlan {
	return newPlanner(targetAlloc, stageMult).build(ctx, s, posture)
}

// DisplayAction is the action shown to the operator: an invalidated plan
// means reduce, and waiting with an open trade means hold it.
func DisplayAction(plan types.TradePlan, hasOpenTrade bool) string {
	if plan.Invalidated {
		return types.ActionReduce
	}
	if plan.Action == types.ActionWait && hasOpenTrade {
		return types.ActionHold
	}
	return plan.Action
}

func Light(plan types.TradePlan) string {
	switch {
	case plan.Invalidated || plan.GuardrailsBlocked:
		return LightRed
	case plan.Confidence >= 75:
		return LightGreen
	case plan.Confidence >= 45:
		return LightYellow
	}
	return LightRed
}

func Note(displayAction string) string {
	switch displayAction {
	case types.ActionBuy:
		return "Plano ativo. Execute com gestão de risco."
	case types.ActionHold:
		return "Posição aberta detectada. Priorize gestão de risco e proteção do capital."
	}
	return "Sem vantagem clara. Melhor esperar confirmação."
}
