package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPath_DecisionTable(t *testing.T) {
	inst := &Instrument{Symbol: "RELIANCE"}
	uni := &Universe{ID: "NIFTY50"}

	cases := []struct {
		name string
		req  RunRequest
		want PathKind
	}{
		{"single dynamic", RunRequest{Mode: ModeSingle, Dynamic: true, Instrument: inst}, PathDynamic},
		{"single standard", RunRequest{Mode: ModeSingle, Instrument: inst}, PathStandard},
		{"universe ignores dynamic", RunRequest{Mode: ModeUniverse, Dynamic: true, Universe: uni}, PathUniverse},
		{"universe ignores instrument", RunRequest{Mode: ModeUniverse, Universe: uni, Instrument: inst}, PathUniverse},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := SelectPath(c.req)
			require.NoError(t, err)
			assert.Equal(t, c.want, p.Kind())
		})
	}
}

func TestSelectPath_SingleWithoutInstrument(t *testing.T) {
	_, err := SelectPath(RunRequest{Mode: ModeSingle, Dynamic: true})
	assert.ErrorIs(t, err, ErrInstrumentNotSelected)
}

func TestSelectPath_UnknownMode(t *testing.T) {
	_, err := SelectPath(RunRequest{Mode: "PORTFOLIO"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSelectPath_CarriesInstrument(t *testing.T) {
	p, err := SelectPath(RunRequest{Mode: ModeSingle, Instrument: &Instrument{Symbol: "TCS", SecurityID: "11536"}})
	require.NoError(t, err)
	std, ok := p.(StandardPath)
	require.True(t, ok)
	assert.Equal(t, "11536", std.Instrument.SecurityID)
}
