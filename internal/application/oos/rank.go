package oos

import (
	"sort"

	"github.com/alejandrodnm/stratlab/internal/domain"
)

// TopParamSets devuelve los sets de las n mejores celdas del grid por Sharpe,
// desempatando por retorno. n ≤ 0 los devuelve todos.
func TopParamSets(grid []domain.OptimizationResult, n int) []domain.ParamSet {
	ranked := make([]domain.OptimizationResult, len(grid))
	copy(ranked, grid)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Sharpe != ranked[j].Sharpe {
			return ranked[i].Sharpe > ranked[j].Sharpe
		}
		return ranked[i].ReturnPct > ranked[j].ReturnPct
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]domain.ParamSet, len(ranked))
	for i, c := range ranked {
		out[i] = c.ParamSet.Clone()
	}
	return out
}
