package domain

import (
	"math"
	"time"
)

// avgMonthDays es la duración media de un mes usada para contar meses.
const avgMonthDays = 30.44

// WFOWindowConfig son las ventanas de walk-forward en meses.
type WFOWindowConfig struct {
	TrainWindow int `json:"trainWindow" yaml:"train_window"`
	TestWindow  int `json:"testWindow" yaml:"test_window"`
}

// wfoThresholds: la primera fila cuyo límite supera totalMonths gana.
var wfoThresholds = []struct {
	below int
	cfg   WFOWindowConfig
}{
	{12, WFOWindowConfig{TrainWindow: 3, TestWindow: 1}},
	{24, WFOWindowConfig{TrainWindow: 6, TestWindow: 2}},
	{36, WFOWindowConfig{TrainWindow: 9, TestWindow: 3}},
}

// MonthsBetween redondea el rango a meses enteros usando 30.44 días por mes.
func MonthsBetween(start, end time.Time) int {
	days := end.Sub(start).Hours() / 24
	return int(math.Round(days / avgMonthDays))
}

// WindowsForMonths mapea meses totales a ventanas train/test.
func WindowsForMonths(totalMonths int) WFOWindowConfig {
	for _, t := range wfoThresholds {
		if totalMonths < t.below {
			return t.cfg
		}
	}
	return WFOWindowConfig{TrainWindow: 12, TestWindow: 3}
}

// TuneWFOWindows calcula las ventanas de walk-forward para el rango de fechas dado.
// Función pura.
func TuneWFOWindows(start, end time.Time) WFOWindowConfig {
	return WindowsForMonths(MonthsBetween(start, end))
}
