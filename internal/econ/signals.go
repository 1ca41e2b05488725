package econ

func Signal(name string, value *float64) string {
	if value == nil {
		return "neutral"
	}
	v := *value
	switch name {
	case VIX:
		if v >= 24 {
			return "red"
		}
		if v >= 18 {
			return "yellow"
		}
		return "green"
	case Curve:
		if v >= 0 {
			return "green"
		}
		return "red"
	case FedFunds, US10Y, US2Y:
		if v >= 4.75 {
			return "red"
		}
		if v >= 3.5 {
			return "yellow"
		}
		return "green"
	case SPX:
		if v <= -0.7 {
			return "red"
		}
		if v >= 0.7 {
			return "green"
		}
		return "yellow"
	case DXY:
		if v >= 0.6 {
			return "red"
		}
		if v <= -0.6 {
			return "green"
		}
		return "yellow"
	}
	return "neutral"
}

func ImpactCrypto(name string, value *float64, unit string) string {
	if value == nil {
		return "Sem leitura suficiente para inferir impacto em cripto."
	}
	v := *value
	switch {
	case name == VIX:
		if v >= 24 {
			return "Alta volatilidade global: tende a pressionar cripto no curto prazo."
		}
		if v >= 18 {
			return "Volatilidade moderada: manter gestão de risco mais conservadora."
		}
		return "Volatilidade controlada: ambiente mais favorável para ativos de risco."
	case name == Curve:
		if v < 0 {
			return "Curva invertida: costuma elevar cautela para posições mais agressivas."
		}
		return "Curva positiva: reduz pressão macro estrutural sobre ativos de risco."
	case name == FedFunds:
		if v >= 4.75 {
			return "Juros altos drenam liquidez; entradas em cripto pedem seletividade."
		}
		return "Juros menos restritivos ajudam o apetite por risco no médio prazo."
	case name == SPX && unit == "%":
		if v <= -0.7 {
			return "Ações em queda forte: costuma contaminar sentimento em cripto."
		}
		if v >= 0.7 {
			return "Ações em alta forte: normalmente melhora o apetite por cripto."
		}
		return "Ações sem direção forte: impacto neutro para cripto agora."
	case name == DXY && unit == "%":
		if v >= 0.6 {
			return "Dólar forte: tende a apertar condições para cripto."
		}
		if v <= -0.6 {
			return "Dólar enfraquecendo: costuma aliviar ativos de risco."
		}
		return "Dólar lateral: efeito limitado em cripto no momento."
	}
	return "Indicador de contexto estrutural para leitura macro."
}

func spreadNote(spread *float64) string {
	if spread == nil {
		return "Curva de juros sem dados."
	}
	if *spread < 0 {
		return "Curva invertida: maior cautela para risco."
	}
	return "Curva positiva: ambiente macro menos pressionado."
}

func vixNote(vix *float64) string {
	switch {
	case vix == nil:
		return "VIX sem dados."
	case *vix >= 25:
		return "Volatilidade alta (risk-off)."
	case *vix >= 20:
		return "Volatilidade em alerta."
	default:
		return "Volatilidade controlada."
	}
}

func spxNote(dp, level *float64) string {
	switch {
	case dp != nil && *dp <= -1.0:
		return "Ações em queda forte (aversão a risco)."
	case dp != nil && *dp >= 1.0:
		return "Ações em alta forte (apetite a risco)."
	case dp != nil:
		return "Movimento neutro de ações."
	case level != nil:
		return "Nível de fechamento via FRED (sem variação diária)."
	}
	return "S&P sem dados."
}

func dxyNote(dp, level *float64) string {
	switch {
	case dp != nil && *dp >= 0.6:
		return "Dólar forte, costuma apertar ativos de risco."
	case dp != nil && *dp <= -0.6:
		return "Dólar mais fraco, tende a aliviar risco."
	case dp != nil:
		return "Dólar sem direção forte."
	case level != nil:
		return "Nível de fechamento via FRED (sem variação diária)."
	}
	return "DXY sem dados."
}
