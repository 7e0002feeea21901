package httpapi

import (
	"strings"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/simulate"
)

// Catálogo fijo del motor simulado.
var defaultInstruments = []domain.Instrument{
	withName(simulate.SyntheticInstrument("RELIANCE"), "Reliance Industries"),
	withName(simulate.SyntheticInstrument("TCS"), "Tata Consultancy Services"),
	withName(simulate.SyntheticInstrument("INFY"), "Infosys"),
	withName(simulate.SyntheticInstrument("HDFCBANK"), "HDFC Bank"),
	withName(simulate.SyntheticInstrument("ICICIBANK"), "ICICI Bank"),
	withName(simulate.SyntheticInstrument("SBIN"), "State Bank of India"),
	withName(simulate.SyntheticInstrument("WIPRO"), "Wipro"),
	withName(simulate.SyntheticInstrument("HCLTECH"), "HCL Technologies"),
	withName(simulate.SyntheticInstrument("ITC"), "ITC"),
	withName(simulate.SyntheticInstrument("LT"), "Larsen & Toubro"),
}

var defaultUniverses = map[string][]string{
	"NIFTY_IT":   {"TCS", "INFY", "WIPRO", "HCLTECH"},
	"NIFTY_BANK": {"HDFCBANK", "ICICIBANK", "SBIN"},
	"NIFTY_TOP5": {"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK"},
}

func withName(in domain.Instrument, name string) domain.Instrument {
	in.DisplayName = name
	return in
}

// searchInstruments filtra por segmento exacto (si viene) y texto en símbolo o nombre.
func searchInstruments(catalog []domain.Instrument, segment, query string) []domain.Instrument {
	q := strings.ToUpper(strings.TrimSpace(query))
	out := []domain.Instrument{}
	for _, in := range catalog {
		if segment != "" && !strings.EqualFold(segment, in.ExchangeSegment) {
			continue
		}
		if q != "" &&
			!strings.Contains(in.Symbol, q) &&
			!strings.Contains(strings.ToUpper(in.DisplayName), q) {
			continue
		}
		out = append(out, in)
	}
	return out
}
