package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniverseRunRequest_ParamsFlattened(t *testing.T) {
	req := UniverseRunRequest{
		UniverseID: "NIFTY50",
		StrategyID: "sma_crossover",
		Timeframe:  TF1d,
		StartDate:  "2023-01-01",
		EndDate:    "2023-12-31",
		Params:     ParamSet{"fast": 10, "slow": 50},
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(b, &body))
	assert.Equal(t, "NIFTY50", body["universe_id"])
	assert.Equal(t, 10.0, body["fast"])
	assert.Equal(t, 50.0, body["slow"])
	assert.NotContains(t, body, "instrument_details")

	var back UniverseRunRequest
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "NIFTY50", back.UniverseID)
	assert.Equal(t, ParamSet{"fast": 10, "slow": 50}, back.Params)
}

func TestUniverseRunRequest_ReservedKeyRejected(t *testing.T) {
	_, err := json.Marshal(UniverseRunRequest{UniverseID: "U", Params: ParamSet{"timeframe": 5}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
