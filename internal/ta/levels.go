package ta

import "math"

const (
	MaxStructuralDownPct = 20.0
	MinOperationalPct    = 1.2
	MaxOperationalPct    = 3.2
	ATRRiskMultiplier    = 1.10
)

// Levels holds the price levels derived from a snapshot's risk/reward figures.
type Levels struct {
	Target1            *float64
	Target2            *float64
	StructuralStop     *float64
	OperationalStop    *float64
	RiskStructuralPct  *float64
	RiskOperationalPct *float64
	RiskPct            *float64
}

// DeriveLevels computes targets and stops from price and the upside, downside
// and ATR risk percentages. Missing inputs leave the dependent levels nil.
func DeriveLevels(price, upPct, downPct, atrRiskPct *float64) Levels {
	lv := Levels{RiskStructuralPct: downPct}

	if price != nil && upPct != nil {
		up := math.Max(0, *upPct)
		lv.Target1 = Ptr(*price * (1 + up*0.5/100))
		lv.Target2 = Ptr(*price * (1 + up/100))
	}

	if price != nil && downPct != nil {
		downCap := StructuralCap(*downPct)
		lv.StructuralStop = Ptr(*price * (1 - downCap/100))

		op := OperationalRiskPct(downCap, atrRiskPct)
		lv.RiskOperationalPct = Ptr(op)
		lv.OperationalStop = Ptr(*price * (1 - op/100))
	}

	if lv.RiskOperationalPct != nil {
		lv.RiskPct = lv.RiskOperationalPct
	} else {
		lv.RiskPct = downPct
	}
	return lv
}

// StructuralCap is the downside used for the structural stop, clamped to [0, 20].
func StructuralCap(downPct float64) float64 {
	return Clamp(downPct, 0, MaxStructuralDownPct)
}

// OperationalRiskPct bounds the tactical stop distance to [1.2, 3.2] and never
// lets it exceed the structural cap.
func OperationalRiskPct(downCap float64, atrRiskPct *float64) float64 {
	op := downCap
	if atrRiskPct != nil {
		op = *atrRiskPct * ATRRiskMultiplier
	}
	op = Clamp(op, MinOperationalPct, MaxOperationalPct)
	return math.Min(op, downCap)
}
