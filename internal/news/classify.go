package news

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"crypto-signal-engine/internal/types"
)

const (
	ImpactHigh   = "alto"
	ImpactMedium = "médio"
	ImpactLow    = "baixo"

	CategoryRates      = "Juros/Fed"
	CategoryInflation  = "Inflação"
	CategoryGeopol     = "Geopolítica"
	CategoryRegulation = "Regulação"
	CategoryLiquidity  = "Liquidez"
	CategoryGlobal     = "Mercado Global"
)

type keywordRule struct {
	label string
	terms []string
}

var impactRules = []keywordRule{
	{ImpactHigh, []string{"fed", "fomc", "cpi", "inflation", "interest rate", "recession", "war", "conflict", "sanction", "tariff", "powell"}},
	{ImpactMedium, []string{"gdp", "employment", "unemployment", "treasury", "yield", "dollar", "bank", "oil", "opec"}},
}

var categoryRules = []keywordRule{
	{CategoryRates, []string{"fed", "fomc", "powell", "interest rate", "yield", "treasury"}},
	{CategoryInflation, []string{"cpi", "inflation", "ppi", "prices"}},
	{CategoryGeopol, []string{"war", "conflict", "sanction", "attack", "geopolitical"}},
	{CategoryRegulation, []string{"sec", "regulation", "regulatory", "law", "ban", "etf"}},
	{CategoryLiquidity, []string{"bank", "liquidity", "credit", "dollar", "funding"}},
}

var directionRules = []keywordRule{
	{types.PostureRiskOff, []string{"war", "conflict", "sanction", "inflation", "rate hike", "crisis", "default"}},
	{types.PostureRiskOn, []string{"rate cut", "disinflation", "growth", "liquidity", "stimulus", "eases"}},
}

var cryptoTerms = []string{"bitcoin", "btc", "crypto", "ether", "eth", "xrp", "etf", "stablecoin", "exchange"}

func firstMatch(text string, rules []keywordRule, def string) string {
	t := strings.ToLower(text)
	for _, r := range rules {
		for _, term := range r.terms {
			if strings.Contains(t, term) {
				return r.label
			}
		}
	}
	return def
}

func Impact(title string) string {
	return firstMatch(title, impactRules, ImpactLow)
}

func Category(title string) string {
	return firstMatch(title, categoryRules, CategoryGlobal)
}

func Direction(title string) string {
	return firstMatch(title, directionRules, types.PostureNeutral)
}

// CryptoRelevance scores 0..100 how much a headline is likely to move crypto.
func CryptoRelevance(title, category, impact string) int {
	t := strings.ToLower(title)
	score := 30
	switch impact {
	case ImpactHigh:
		score += 30
	case ImpactMedium:
		score += 18
	default:
		score += 8
	}
	switch category {
	case CategoryRates, CategoryLiquidity, CategoryRegulation:
		score += 20
	case CategoryInflation, CategoryGeopol:
		score += 12
	}
	hits := 0
	for _, term := range cryptoTerms {
		if strings.Contains(t, term) {
			hits++
		}
	}
	score += min(20, hits*6)
	return max(0, min(100, score))
}

func impactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 2
	case ImpactMedium:
		return 1
	}
	return 0
}

// CleanTitle strips markup and entities that scraped or cached titles carry.
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		} else {
			s = html.UnescapeString(s)
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Enrich classifies one title.
func Enrich(title string) types.Headline {
	impact := Impact(title)
	category := Category(title)
	return types.Headline{
		Title:           title,
		Impact:          impact,
		Category:        category,
		CryptoRelevance: CryptoRelevance(title, category, impact),
		Direction:       Direction(title),
	}
}
