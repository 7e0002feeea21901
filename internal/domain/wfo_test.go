package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWindowsForMonths_Thresholds(t *testing.T) {
	cases := []struct {
		months int
		want   WFOWindowConfig
	}{
		{0, WFOWindowConfig{3, 1}},
		{11, WFOWindowConfig{3, 1}},
		{12, WFOWindowConfig{6, 2}},
		{23, WFOWindowConfig{6, 2}},
		{24, WFOWindowConfig{9, 3}},
		{35, WFOWindowConfig{9, 3}},
		{36, WFOWindowConfig{12, 3}},
		{120, WFOWindowConfig{12, 3}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WindowsForMonths(c.months), "months=%d", c.months)
	}
}

func TestMonthsBetween_RoundsToNearest(t *testing.T) {
	// 2023 completo: 364 días / 30.44 = 11.96 → 12
	assert.Equal(t, 12, MonthsBetween(date("2023-01-01"), date("2023-12-31")))
	// 45 días → 1.48 → 1
	assert.Equal(t, 1, MonthsBetween(date("2023-01-01"), date("2023-02-15")))
	// 47 días → 1.54 → 2
	assert.Equal(t, 2, MonthsBetween(date("2023-01-01"), date("2023-02-17")))
}

func TestTuneWFOWindows_EighteenMonths(t *testing.T) {
	got := TuneWFOWindows(date("2022-01-01"), date("2023-07-01"))
	assert.Equal(t, WFOWindowConfig{TrainWindow: 6, TestWindow: 2}, got)
}

func TestTuneWFOWindows_Deterministic(t *testing.T) {
	a := TuneWFOWindows(date("2020-01-01"), date("2024-01-01"))
	b := TuneWFOWindows(date("2020-01-01"), date("2024-01-01"))
	assert.Equal(t, a, b)
	assert.Equal(t, WFOWindowConfig{TrainWindow: 12, TestWindow: 3}, a)
}
