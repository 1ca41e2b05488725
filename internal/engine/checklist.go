package engine

import (
	"math"
	"strings"

	"crypto-signal-engine/internal/types"
)

// Check keys, in evaluation order.
const (
	CheckTrend     = "trend_1w"
	CheckStructure = "structure_4h"
	CheckVolume    = "volume"
	CheckRR        = "rr"
	CheckData      = "data"
	CheckMacro     = "macro"
)

// Thresholds of the checklist.
const (
	MinVol1Ratio = 1.05
	MinVol4Ratio = 1.00
	MinRRAdj     = 1.0
	MinRRAtr     = 1.2
)

var checkLabels = map[string]string{
	CheckTrend:     "1W tendência",
	CheckStructure: "4H estrutura",
	CheckVolume:    "Volume",
	CheckRR:        "RR",
	CheckData:      "Dados",
	CheckMacro:     "Macro",
}

type checkRule struct {
	key  string
	eval func(s *types.Snapshot, posture string) string
}

var checklist = []checkRule{
	{CheckTrend, func(s *types.Snapshot, _ string) string {
		return state(strings.Contains(s.Regime1W, "ALTA"))
	}},
	{CheckStructure, func(s *types.Snapshot, _ string) string {
		return state(!strings.Contains(s.Regime4H, "BAIXA"))
	}},
	{CheckVolume, func(s *types.Snapshot, _ string) string {
		return state(atLeast(s.Vol1Ratio, MinVol1Ratio) && atLeast(s.Vol4Ratio, MinVol4Ratio))
	}},
	{CheckRR, func(s *types.Snapshot, _ string) string {
		return state(atLeast(s.RRAdj, MinRRAdj) || atLeast(s.RRAtr, MinRRAtr))
	}},
	{CheckData, func(s *types.Snapshot, _ string) string {
		if s.DQScore == nil || s.DQThreshold == nil {
			return types.StateOK
		}
		return state(*s.DQScore >= *s.DQThreshold)
	}},
	{CheckMacro, func(_ *types.Snapshot, posture string) string {
		return MacroState(posture)
	}},
}

func state(ok bool) string {
	if ok {
		return types.StateOK
	}
	return types.StateFail
}

func atLeast(v *float64, min float64) bool {
	return v != nil && *v >= min
}

// MacroState maps a posture to the macro check state.
func MacroState(posture string) string {
	switch posture {
	case types.PostureNoData, "":
		return types.StateNA
	case types.PostureRiskOff:
		return types.StateFail
	}
	return types.StateOK
}

// EvaluateQuality runs the six checks against one snapshot.
func EvaluateQuality(s *types.Snapshot, posture string) types.Quality {
	if posture == "" {
		posture = types.PostureNoData
	}
	q := types.Quality{MacroPosture: posture, Checks: make([]types.Check, 0, len(checklist))}
	for _, rule := range checklist {
		st := rule.eval(s, posture)
		c := types.Check{Key: rule.key, State: st, Label: checkLabels[rule.key]}
		ok := st == types.StateOK
		switch rule.key {
		case CheckTrend:
			q.Trend1W = ok
		case CheckStructure:
			q.Structure4H = ok
		case CheckVolume:
			q.Volume = ok
		case CheckRR:
			q.RR = ok
		case CheckData:
			q.Data = ok
		case CheckMacro:
			q.Macro = ok
			q.MacroState = st
			c.Text = macroText(st, posture)
		}
		q.Checks = append(q.Checks, c)
	}
	return q
}

func macroText(st, posture string) string {
	switch {
	case st == types.StateNA:
		return "n/a"
	case posture == types.PostureRiskOn || posture == types.PostureRiskOff || posture == types.PostureNeutral:
		return posture
	}
	return "ok"
}

// Confidence is the rounded share of passing checks. Checks in state na
// are left out of the denominator.
func Confidence(checks []types.Check) int {
	ok, total := 0, 0
	for _, c := range checks {
		if c.State == types.StateNA {
			continue
		}
		total++
		if c.State == types.StateOK {
			ok++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(ok) / float64(total)))
}
