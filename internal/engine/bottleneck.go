package engine

import (
	"fmt"
	"strings"

	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/types"
)

const maxNextSteps = 5

// Gaps is how far each numeric check is from passing. A nil gap means the
// input was missing.
type Gaps struct {
	Vol1  *float64
	Vol4  *float64
	RRAdj *float64
	RRAtr *float64
}

func ComputeGaps(s *types.Snapshot) Gaps {
	return Gaps{
		Vol1:  ta.Gap(MinVol1Ratio, s.Vol1Ratio),
		Vol4:  ta.Gap(MinVol4Ratio, s.Vol4Ratio),
		RRAdj: ta.Gap(MinRRAdj, s.RRAdj),
		RRAtr: ta.Gap(MinRRAtr, s.RRAtr),
	}
}

var noBottleneck = types.Bottleneck{
	Key:    "ok",
	Label:  "Sem gargalo dominante",
	Detail: "Condições principais estão aceitáveis.",
}

type bottleneckRule struct {
	check string
	build func(g Gaps) types.Bottleneck
}

// bottleneckRules is evaluated in order; the first failing check wins.
// Trend, data and macro failures never surface as the bottleneck.
var bottleneckRules = []bottleneckRule{
	{CheckStructure, func(Gaps) types.Bottleneck {
		return types.Bottleneck{
			Key:    "structure_4h",
			Label:  "Estrutura 4H ainda em baixa",
			Detail: "Aguardar fechamento 4H com virada bullish para ganhar convicção.",
		}
	}},
	{CheckVolume, func(g Gaps) types.Bottleneck {
		g1, g4 := ta.Value(g.Vol1), ta.Value(g.Vol4)
		if g1 >= g4 {
			return types.Bottleneck{
				Key:    "volume_1h",
				Label:  "Volume 1H abaixo do mínimo",
				Detail: fmt.Sprintf("Falta +%.2fx para atingir 1.05x.", g1),
			}
		}
		return types.Bottleneck{
			Key:    "volume_4h",
			Label:  "Volume 4H abaixo do mínimo",
			Detail: fmt.Sprintf("Falta +%.2fx para atingir 1.00x.", g4),
		}
	}},
	{CheckRR, func(g Gaps) types.Bottleneck {
		detail := "Aguardando melhora da assimetria risco/retorno."
		if g.RRAdj != nil && g.RRAtr != nil {
			detail = fmt.Sprintf("Precisa RR>=1.0 (falta %.2f) ou RR_ATR>=1.2 (falta %.2f).", *g.RRAdj, *g.RRAtr)
		}
		return types.Bottleneck{Key: "rr", Label: "Assimetria risco/retorno fraca", Detail: detail}
	}},
}

// SelectBottleneck picks the single dominant reason the plan is held back.
func SelectBottleneck(checks []types.Check, g Gaps) types.Bottleneck {
	for _, rule := range bottleneckRules {
		if failed(checks, rule.check) {
			return rule.build(g)
		}
	}
	return noBottleneck
}

func failed(checks []types.Check, key string) bool {
	for _, c := range checks {
		if c.Key == key {
			return c.State == types.StateFail
		}
	}
	return false
}

func stateOf(checks []types.Check, key string) string {
	for _, c := range checks {
		if c.Key == key {
			return c.State
		}
	}
	return ""
}

// NextSteps lists what has to change before entering, most structural
// first, with guardrail issues last. At most five lines are returned.
func NextSteps(checks []types.Check, g Gaps, guard types.Guardrails) []string {
	var steps []string
	if failed(checks, CheckTrend) {
		steps = append(steps, "Esperar 1W voltar para tendência de alta.")
	}
	if failed(checks, CheckStructure) {
		steps = append(steps, "Esperar fechamento 4H com estrutura bullish.")
	}
	if failed(checks, CheckVolume) {
		if positive(g.Vol1) {
			steps = append(steps, fmt.Sprintf("Volume 1H: precisa +%.2fx para bater 1.05x.", *g.Vol1))
		}
		if positive(g.Vol4) {
			steps = append(steps, fmt.Sprintf("Volume 4H: precisa +%.2fx para bater 1.00x.", *g.Vol4))
		}
	}
	if failed(checks, CheckRR) {
		if positive(g.RRAdj) {
			steps = append(steps, fmt.Sprintf("RR ajustado: falta +%.2f para chegar em 1.00.", *g.RRAdj))
		}
		if positive(g.RRAtr) {
			steps = append(steps, fmt.Sprintf("RR_ATR: falta +%.2f para chegar em 1.20.", *g.RRAtr))
		}
	}
	switch stateOf(checks, CheckMacro) {
	case types.StateFail:
		steps = append(steps, "Macro em risk-off: evitar aumentar exposição agora.")
	case types.StateNA:
		steps = append(steps, "Macro sem dados (n/a): não bloqueia entrada, mas reduz contexto.")
	}
	if len(steps) == 0 {
		steps = append(steps, "Condições centrais atendidas; executar com gestão de risco.")
	}
	if guard.Blocked {
		for _, issue := range guard.Issues {
			if issue = strings.TrimSpace(issue); issue != "" {
				steps = append(steps, "Guardrail: "+issue)
			}
		}
	}
	if len(steps) > maxNextSteps {
		steps = steps[:maxNextSteps]
	}
	return steps
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
