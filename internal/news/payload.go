package news

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/types"
)

const (
	BadgeNeutral = "🟡"

	maxHeadlines  = 20
	maxTopRisks   = 5
	maxPerCat     = 4
	maxWatchlist  = 5
	maxNotes      = 10
	maxHighlights = 20

	NoteLocalFallback = "Fallback local ativo: usando headlines salvas dos logs do robô."
	NoteNoData        = "Sem cache macro e sem bullets em logs recentes."
	NoteScraped       = "Manchetes coletadas diretamente das fontes configuradas."
	WatchRunRefresh   = "Rodar middleware.py para atualizar cache macro e headlines."
)

// FormatTS renders t as ISO-8601 UTC with a Z suffix.
func FormatTS(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z")
}

// ParseTS accepts RFC 3339 timestamps and naive ones, which are read as UTC.
func ParseTS(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NewPayload returns the empty "no data" macro payload.
func NewPayload(now time.Time) *types.GlobalNews {
	return &types.GlobalNews{
		GeneratedAt: FormatTS(now),
		Status:      types.PostureNoData,
		Macro: types.MacroInfo{
			Badge:   BadgeNeutral,
			Posture: types.PostureNoData,
		},
		Headlines:        []types.Headline{},
		TopRisks:         []types.Headline{},
		Categories:       map[string][]types.Headline{},
		Watchlist:        []string{},
		Notes:            []string{},
		ExecutiveSummary: []string{},
		EconomicPanel:    []types.EconCard{},
	}
}

// Normalize fills nil collections so a verbatim external payload serializes
// the same way as a locally built one.
func Normalize(p *types.GlobalNews, now time.Time) *types.GlobalNews {
	if p.GeneratedAt == "" {
		p.GeneratedAt = FormatTS(now)
	}
	if p.Status == "" {
		p.Status = "ok"
	}
	if p.Macro.Badge == "" {
		p.Macro.Badge = BadgeNeutral
	}
	if p.Macro.Posture == "" {
		p.Macro.Posture = types.PostureNoData
	}
	if p.Headlines == nil {
		p.Headlines = []types.Headline{}
	}
	if p.TopRisks == nil {
		p.TopRisks = []types.Headline{}
	}
	if p.Categories == nil {
		p.Categories = map[string][]types.Headline{}
	}
	if p.Watchlist == nil {
		p.Watchlist = []string{}
	}
	if p.Notes == nil {
		p.Notes = []string{}
	}
	if p.ExecutiveSummary == nil {
		p.ExecutiveSummary = []string{}
	}
	if p.EconomicPanel == nil {
		p.EconomicPanel = []types.EconCard{}
	}
	return p
}

// ParsePosture extracts the posture from a "postura: X | ..." line.
func ParsePosture(line string) (string, bool) {
	_, after, ok := strings.Cut(line, "postura:")
	if !ok {
		return "", false
	}
	posture, _, _ := strings.Cut(after, "|")
	posture = strings.TrimSpace(posture)
	return posture, posture != ""
}

// Finalize enriches highlights into headlines, ranks them and derives the
// categories, watchlist, notes and executive summary of p.
func Finalize(p *types.GlobalNews, highlights, notes []string) *types.GlobalNews {
	enriched := make([]types.Headline, 0, len(highlights))
	for _, h := range highlights {
		title := CleanTitle(h)
		if title == "" {
			continue
		}
		enriched = append(enriched, Enrich(title))
	}
	sort.SliceStable(enriched, func(i, j int) bool {
		a, b := enriched[i], enriched[j]
		if a.CryptoRelevance != b.CryptoRelevance {
			return a.CryptoRelevance > b.CryptoRelevance
		}
		return impactRank(a.Impact) > impactRank(b.Impact)
	})

	p.Headlines = head(enriched, maxHeadlines)
	p.TopRisks = head(enriched, maxTopRisks)

	p.Categories = map[string][]types.Headline{}
	for _, it := range enriched {
		if len(p.Categories[it.Category]) < maxPerCat {
			p.Categories[it.Category] = append(p.Categories[it.Category], it)
		}
	}

	watch := append(watchlist(p.Macro.Posture, enriched), p.Watchlist...)
	if len(watch) > maxWatchlist {
		watch = watch[:maxWatchlist]
	}
	p.Watchlist = append([]string{}, watch...)

	p.Notes = []string{}
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" && len(p.Notes) < maxNotes {
			p.Notes = append(p.Notes, n)
		}
	}

	p.ExecutiveSummary = executiveSummary(p)
	return p
}

func head(h []types.Headline, n int) []types.Headline {
	if len(h) > n {
		h = h[:n]
	}
	return append([]types.Headline{}, h...)
}

func watchlist(posture string, items []types.Headline) []string {
	var hasHigh, hasRates, hasReg bool
	for _, it := range items {
		hasHigh = hasHigh || it.Impact == ImpactHigh
		hasRates = hasRates || it.Category == CategoryRates
		hasReg = hasReg || it.Category == CategoryRegulation
	}
	var w []string
	if posture == types.PostureRiskOff || posture == types.PostureNoData {
		w = append(w, "Evitar aumento agressivo de exposição até melhora de contexto macro.")
	}
	if hasHigh {
		w = append(w, "Acompanhar notícias de alto impacto antes de novas entradas.")
	}
	if hasRates {
		w = append(w, "Monitorar dados de juros/Fed: costumam mover liquidez para cripto.")
	}
	if hasReg {
		w = append(w, "Monitorar manchetes regulatórias; impacto pode ser rápido em BTC/ETH/XRP.")
	}
	return w
}

func executiveSummary(p *types.GlobalNews) []string {
	line1 := "Contexto macro: sem score numérico (fontes macro incompletas)."
	if p.Macro.MacroScore != nil {
		line1 = fmt.Sprintf("Contexto macro: score %s/100 com postura %s.", ta.FormatNumber(p.Macro.MacroScore), p.Macro.Posture)
	}

	line2 := "Risco dominante: sem manchetes suficientes no momento."
	if len(p.TopRisks) > 0 {
		top := p.TopRisks[0]
		line2 = fmt.Sprintf("Risco dominante: %s, impacto %s, direção %s", top.Category, top.Impact, top.Direction)
	}

	line3 := "Ação de hoje: manter leitura de risco antes de novas entradas."
	if len(p.Watchlist) > 0 {
		line3 = "Ação de hoje: " + p.Watchlist[0]
	}
	return []string{line1, line2, line3}
}

// Badge maps a posture to its status marker.
func Badge(posture string) string {
	switch posture {
	case types.PostureRiskOn:
		return "🟢"
	case types.PostureRiskOff:
		return "🔴"
	}
	return BadgeNeutral
}
