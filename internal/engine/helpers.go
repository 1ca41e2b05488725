package engine

import (
	"strings"

	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

// SnapshotFromRecord normalizes the latest log row of one instrument.
// Nested blocks that are missing or mistyped read as empty.
func SnapshotFromRecord(symbol string, row tradelog.Record) *types.Snapshot {
	vol := row.Obj("volume")
	ctx := row.Obj("context_score")
	rr := row.Obj("rr_range_4h")
	dq := row.Obj("data_quality")
	rg := row.Obj("risk_guardrails")

	return &types.Snapshot{
		Symbol:       strings.ToUpper(symbol),
		TsUTC:        row.Str("ts_utc", ""),
		Price:        row.Num("price"),
		Stage:        row.Str("stage", "WAIT"),
		Regime1W:     row.Str("regime_1w", ""),
		Regime4H:     row.Str("regime_4h", ""),
		Vol1Ratio:    vol.Num("vol1_ratio"),
		Vol4Ratio:    vol.Num("vol4_ratio"),
		ContextScore: ctx.Num("value"),
		ContextLabel: ctx["label"],
		RRUpPct:      rr.Num("upside_pct"),
		RRDownPct:    rr.Num("downside_pct"),
		RRAtrRiskPct: rr.Num("rr_atr_risk_pct"),
		RRAdj:        rr.Num("rr_adj"),
		RRAtr:        rr.Num("rr_atr"),
		DQScore:      dq.Num("score"),
		DQThreshold:  dq.Num("threshold"),
		Guardrails: types.Guardrails{
			TradePct:         rg.Num("trade_capital_pct"),
			TradeLimitPct:    rg.Num("trade_limit_pct"),
			PortfolioProjPct: rg.Num("portfolio_projected_pct"),
			PortfolioLimit:   rg.Num("portfolio_limit_pct"),
			Blocked:          rg.Bool("blocked"),
			Issues:           rg.Strings("issues"),
		},
		MacroLine:    row.Str("macro_news_line", ""),
		MacroBullets: row.Strings("macro_bullets"),
	}
}

// scenarios returns the base and alternative narrative for the regimes.
func scenarios(regime1W, regime4H string) (string, string) {
	switch {
	case strings.Contains(regime1W, "ALTA") && strings.Contains(regime4H, "BAIXA"):
		return "Aguardar 4H melhorar; entradas apenas com gatilho forte 1H.",
			"Se 4H seguir em baixa, evitar novas compras."
	case strings.Contains(regime1W, "BAIXA"):
		return "Priorizar defesa; compras somente táticas e pequenas.",
			"Se 1W voltar para alta, reavaliar entradas."
	}
	return "Entrada em rompimento/continuação com gestão de risco.",
		"Se perder momentum e volume, manter em espera."
}
