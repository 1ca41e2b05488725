package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/types"
)

// healthySnapshot passes every check.
func healthySnapshot() *types.Snapshot {
	return &types.Snapshot{
		Symbol:      "BTCUSDT",
		Price:       ta.Ptr(100),
		Stage:       "MEDIUM",
		Regime1W:    "ALTA",
		Regime4H:    "LATERAL",
		Vol1Ratio:   ta.Ptr(1.1),
		Vol4Ratio:   ta.Ptr(1.05),
		RRAdj:       ta.Ptr(1.2),
		RRAtr:       ta.Ptr(1.3),
		DQScore:     ta.Ptr(80),
		DQThreshold: ta.Ptr(70),
	}
}

var defaultAlloc = map[string]float64{"BTCUSDT": 30, "ETHUSDT": 20, "XRPUSDT": 10}
var defaultMult = map[string]float64{"SMALL": 0.2, "MEDIUM": 0.5, "FULL": 1.0}

func states(q types.Quality) map[string]string {
	m := map[string]string{}
	for _, c := range q.Checks {
		m[c.Key] = c.State
	}
	return m
}

func TestEvaluateQualityAllOK(t *testing.T) {
	q := EvaluateQuality(healthySnapshot(), types.PostureRiskOn)

	require.Len(t, q.Checks, 6)
	assert.Equal(t, []string{CheckTrend, CheckStructure, CheckVolume, CheckRR, CheckData, CheckMacro},
		[]string{q.Checks[0].Key, q.Checks[1].Key, q.Checks[2].Key, q.Checks[3].Key, q.Checks[4].Key, q.Checks[5].Key})
	for _, c := range q.Checks {
		assert.Equal(t, types.StateOK, c.State, c.Key)
	}
	assert.True(t, q.Trend1W && q.Structure4H && q.Volume && q.RR && q.Data && q.Macro)
	assert.Equal(t, "risk-on", q.Checks[5].Text)
	assert.Equal(t, 100, Confidence(q.Checks))
}

func TestEvaluateQualityRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *types.Snapshot)
		posture string
		key     string
		want    string
	}{
		{"trend needs ALTA", func(s *types.Snapshot) { s.Regime1W = "LATERAL" }, types.PostureRiskOn, CheckTrend, types.StateFail},
		{"trend matches substring", func(s *types.Snapshot) { s.Regime1W = "ALTA FORTE" }, types.PostureRiskOn, CheckTrend, types.StateOK},
		{"structure fails on BAIXA", func(s *types.Snapshot) { s.Regime4H = "BAIXA" }, types.PostureRiskOn, CheckStructure, types.StateFail},
		{"structure ok when empty", func(s *types.Snapshot) { s.Regime4H = "" }, types.PostureRiskOn, CheckStructure, types.StateOK},
		{"volume 1h below min", func(s *types.Snapshot) { s.Vol1Ratio = ta.Ptr(1.04) }, types.PostureRiskOn, CheckVolume, types.StateFail},
		{"volume missing fails", func(s *types.Snapshot) { s.Vol4Ratio = nil }, types.PostureRiskOn, CheckVolume, types.StateFail},
		{"volume at bounds", func(s *types.Snapshot) { s.Vol1Ratio, s.Vol4Ratio = ta.Ptr(1.05), ta.Ptr(1.0) }, types.PostureRiskOn, CheckVolume, types.StateOK},
		{"rr ok via atr only", func(s *types.Snapshot) { s.RRAdj = ta.Ptr(0.5) }, types.PostureRiskOn, CheckRR, types.StateOK},
		{"rr fails both", func(s *types.Snapshot) { s.RRAdj, s.RRAtr = ta.Ptr(0.9), ta.Ptr(1.1) }, types.PostureRiskOn, CheckRR, types.StateFail},
		{"rr missing fails", func(s *types.Snapshot) { s.RRAdj, s.RRAtr = nil, nil }, types.PostureRiskOn, CheckRR, types.StateFail},
		{"data below threshold", func(s *types.Snapshot) { s.DQScore = ta.Ptr(60) }, types.PostureRiskOn, CheckData, types.StateFail},
		{"data missing threshold passes", func(s *types.Snapshot) { s.DQScore, s.DQThreshold = ta.Ptr(10), nil }, types.PostureRiskOn, CheckData, types.StateOK},
		{"macro risk-off", nil, types.PostureRiskOff, CheckMacro, types.StateFail},
		{"macro neutral", nil, types.PostureNeutral, CheckMacro, types.StateOK},
		{"macro no data", nil, types.PostureNoData, CheckMacro, types.StateNA},
		{"macro empty posture", nil, "", CheckMacro, types.StateNA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := healthySnapshot()
			if tt.mutate != nil {
				tt.mutate(s)
			}
			assert.Equal(t, tt.want, states(EvaluateQuality(s, tt.posture))[tt.key])
		})
	}
}

func TestConfidenceExcludesNA(t *testing.T) {
	q := EvaluateQuality(healthySnapshot(), types.PostureNoData)
	assert.Equal(t, types.StateNA, q.MacroState)
	assert.False(t, q.Macro)
	assert.Equal(t, "n/a", q.Checks[5].Text)
	assert.Equal(t, 100, Confidence(q.Checks))

	s := healthySnapshot()
	s.Regime1W = "BAIXA"
	q = EvaluateQuality(s, types.PostureNoData)
	assert.Equal(t, 80, Confidence(q.Checks))
}

func TestConfidenceBounds(t *testing.T) {
	s := &types.Snapshot{Regime4H: "BAIXA", DQScore: ta.Ptr(1), DQThreshold: ta.Ptr(2)}
	q := EvaluateQuality(s, types.PostureRiskOff)
	assert.Equal(t, 0, Confidence(q.Checks))
	assert.Equal(t, "risk-off", q.Checks[5].Text)
	assert.Equal(t, 0, Confidence(nil))
}

func TestScenarioAllChecksPass(t *testing.T) {
	plan := BuildPlan(context.Background(), healthySnapshot(), types.PostureRiskOn, defaultAlloc, defaultMult)

	assert.Equal(t, 100, plan.Confidence)
	assert.Equal(t, types.ActionBuy, plan.Action)
	assert.Equal(t, "ok", plan.Bottleneck.Key)
	assert.Equal(t, "Sem gargalo dominante", plan.Bottleneck.Label)
	assert.Equal(t, []string{"Condições centrais atendidas; executar com gestão de risco."}, plan.BuyNowSteps)
	assert.InDelta(t, 15.0, plan.SuggestedAllocPct, 1e-9)
	assert.Equal(t, "Entrada em rompimento/continuação com gestão de risco.", plan.ScenarioBase)
	assert.False(t, plan.Invalidated)
}

func TestScenarioStructureBearish(t *testing.T) {
	s := healthySnapshot()
	s.Regime4H = "BAIXA"
	plan := BuildPlan(context.Background(), s, types.PostureRiskOn, defaultAlloc, defaultMult)

	assert.Equal(t, 83, plan.Confidence)
	assert.Equal(t, "structure_4h", plan.Bottleneck.Key)
	assert.Equal(t, "Aguardar 4H melhorar; entradas apenas com gatilho forte 1H.", plan.ScenarioBase)
	assert.Equal(t, "Se 4H seguir em baixa, evitar novas compras.", plan.ScenarioAlt)
	assert.Equal(t, []string{"Esperar fechamento 4H com estrutura bullish."}, plan.BuyNowSteps)
}

func TestScenarioMacroNoData(t *testing.T) {
	s := healthySnapshot()
	s.Vol1Ratio = ta.Ptr(0.5)
	plan := BuildPlan(context.Background(), s, types.PostureNoData, defaultAlloc, defaultMult)

	assert.Equal(t, types.StateNA, plan.Quality.MacroState)
	// 4 of 5: the macro check leaves the denominator.
	assert.Equal(t, 80, plan.Confidence)
	assert.Equal(t, []string{
		"Volume 1H: precisa +0.55x para bater 1.05x.",
		"Macro sem dados (n/a): não bloqueia entrada, mas reduz contexto.",
	}, plan.BuyNowSteps)
}
