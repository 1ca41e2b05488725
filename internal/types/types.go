package types

// Check states.
const (
	StateOK   = "ok"
	StateFail = "fail"
	StateNA   = "na"
)

// Macro postures.
const (
	PostureRiskOn  = "risk-on"
	PostureRiskOff = "risk-off"
	PostureNeutral = "neutro"
	PostureNoData  = "sem_dados"
)

// Plan actions.
const (
	ActionBuy    = "COMPRAR"
	ActionWait   = "AGUARDAR"
	ActionHold   = "MANTER POSIÇÃO"
	ActionReduce = "EVITAR / REDUZIR"
)

// Snapshot is the normalized view of the latest log row of one instrument.
type Snapshot struct {
	Symbol       string
	TsUTC        string
	Price        *float64
	Stage        string
	Regime1W     string
	Regime4H     string
	Vol1Ratio    *float64
	Vol4Ratio    *float64
	ContextScore *float64
	ContextLabel any
	RRUpPct      *float64
	RRDownPct    *float64
	RRAtrRiskPct *float64
	RRAdj        *float64
	RRAtr        *float64
	DQScore      *float64
	DQThreshold  *float64
	Guardrails   Guardrails
	MacroLine    string
	MacroBullets []string
}

type Guardrails struct {
	TradePct         *float64
	TradeLimitPct    *float64
	PortfolioProjPct *float64
	PortfolioLimit   *float64
	Blocked          bool
	Issues           []string
}

// Check is one entry of the quality checklist.
type Check struct {
	Key   string `json:"key"`
	State string `json:"state"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text,omitempty"`
}

type Quality struct {
	Trend1W      bool    `json:"trend_1w"`
	Structure4H  bool    `json:"structure_4h"`
	Volume       bool    `json:"volume"`
	RR           bool    `json:"rr"`
	Data         bool    `json:"data"`
	Macro        bool    `json:"macro"`
	MacroState   string  `json:"macro_state"`
	MacroPosture string  `json:"macro_posture"`
	Checks       []Check `json:"checks"`
}

type Bottleneck struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

type TradePlan struct {
	Action                string     `json:"action"`
	EntryPrice            *float64   `json:"entry_price"`
	StopPrice             *float64   `json:"stop_price"`
	StopOperationalPrice  *float64   `json:"stop_operational_price"`
	StopStructuralPrice   *float64   `json:"stop_structural_price"`
	Target1Price          *float64   `json:"target1_price"`
	Target2Price          *float64   `json:"target2_price"`
	Confidence            int        `json:"confidence"`
	SuggestedAllocPct     float64    `json:"suggested_alloc_pct"`
	RiskPct               *float64   `json:"risk_pct"`
	RiskOperationalPct    *float64   `json:"risk_operational_pct"`
	RiskStructuralPct     *float64   `json:"risk_structural_pct"`
	Invalidated           bool       `json:"invalidated"`
	Quality               Quality    `json:"quality"`
	DataQualityScore      *float64   `json:"data_quality_score"`
	DataQualityThreshold  *float64   `json:"data_quality_threshold"`
	RiskPerTradePct       *float64   `json:"risk_per_trade_pct"`
	RiskPerTradeLimitPct  *float64   `json:"risk_per_trade_limit_pct"`
	RiskPortfolioProjPct  *float64   `json:"risk_portfolio_projected_pct"`
	RiskPortfolioLimitPct *float64   `json:"risk_portfolio_limit_pct"`
	GuardrailsBlocked     bool       `json:"guardrails_blocked"`
	ScenarioBase          string     `json:"scenario_base"`
	ScenarioAlt           string     `json:"scenario_alt"`
	Bottleneck            Bottleneck `json:"bottleneck"`
	BuyNowSteps           []string   `json:"buy_now_steps"`
}

// SymbolView is one entry of the live payload.
type SymbolView struct {
	TsUTC        any       `json:"ts_utc"`
	Price        *float64  `json:"price"`
	Stage        string    `json:"stage"`
	Regime1W     string    `json:"regime_1w"`
	Regime4H     string    `json:"regime_4h"`
	Vol1Ratio    *float64  `json:"vol1_ratio"`
	Vol4Ratio    *float64  `json:"vol4_ratio"`
	ContextScore *float64  `json:"context_score"`
	ContextLabel any       `json:"context_label"`
	RRAdj        *float64  `json:"rr_adj"`
	RRAtr        *float64  `json:"rr_atr"`
	RRUpPct      *float64  `json:"rr_up_pct"`
	RRDownPct    *float64  `json:"rr_down_pct"`
	TradePlan    TradePlan `json:"trade_plan"`

	DisplayAction string `json:"display_action"`
	Light         string `json:"light"`
	Note          string `json:"note"`
	HasOpenTrade  bool   `json:"has_open_trade"`
}

type LivePayload struct {
	GeneratedAt string                `json:"generated_at"`
	Macro       MacroInfo             `json:"macro"`
	Symbols     map[string]SymbolView `json:"symbols"`
}

type MacroInfo struct {
	Badge      string   `json:"badge"`
	MacroScore *float64 `json:"macro_score"`
	Posture    string   `json:"posture"`
	UpdatedTS  *string  `json:"updated_ts"`
}

type Headline struct {
	Title           string `json:"title"`
	Impact          string `json:"impact"`
	Category        string `json:"category"`
	CryptoRelevance int    `json:"crypto_relevance"`
	Direction       string `json:"direction"`
}

type EconCard struct {
	Name         string   `json:"name"`
	Value        *float64 `json:"value"`
	Unit         string   `json:"unit"`
	Note         string   `json:"note"`
	Source       string   `json:"source"`
	Available    bool     `json:"available"`
	Signal       string   `json:"signal"`
	ImpactCrypto string   `json:"impact_crypto"`
	Delta        *float64 `json:"delta"`
	DeltaPct     *float64 `json:"delta_pct"`
}

// GlobalNews is the macro context payload.
type GlobalNews struct {
	GeneratedAt      string                `json:"generated_at"`
	Status           string                `json:"status"`
	Source           string                `json:"source,omitempty"`
	Macro            MacroInfo             `json:"macro"`
	Headlines        []Headline            `json:"headlines"`
	TopRisks         []Headline            `json:"top_risks"`
	Categories       map[string][]Headline `json:"categories"`
	Watchlist        []string              `json:"watchlist"`
	Notes            []string              `json:"notes"`
	ExecutiveSummary []string              `json:"executive_summary"`
	EconomicPanel    []EconCard            `json:"economic_panel"`
}

type Trade struct {
	Symbol              string   `json:"symbol"`
	Side                string   `json:"side"`
	Status              string   `json:"status"`
	EntryTS             *string  `json:"entry_ts"`
	ExitTS              *string  `json:"exit_ts"`
	EntryPrice          *float64 `json:"entry_price"`
	ExitPrice           *float64 `json:"exit_price"`
	CurrentPrice        *float64 `json:"current_price,omitempty"`
	TargetPrice         *float64 `json:"target_price"`
	ExpectedProfitPct   *float64 `json:"expected_profit_pct"`
	RealizedProfitPct   *float64 `json:"realized_profit_pct"`
	UnrealizedProfitPct *float64 `json:"unrealized_profit_pct,omitempty"`
	HoldHours           *float64 `json:"hold_hours"`
	Stage               any      `json:"stage"`
	LastSignal          string   `json:"last_signal"`
}

type TradesPayload struct {
	Symbol string  `json:"symbol"`
	Count  int     `json:"count"`
	Trades []Trade `json:"trades"`
	Source string  `json:"source"`
}

// PlanChange describes how one symbol's plan moved between two cycles.
type PlanChange struct {
	Symbol         string `json:"symbol"`
	PrevAction     string `json:"prev_action,omitempty"`
	Action         string `json:"action"`
	PrevConfidence int    `json:"prev_confidence"`
	Confidence     int    `json:"confidence"`
	PrevBottleneck string `json:"prev_bottleneck,omitempty"`
	Bottleneck     string `json:"bottleneck"`
	New            bool   `json:"new,omitempty"`
	Removed        bool   `json:"removed,omitempty"`
}
