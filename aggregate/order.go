// Package aggregate collects comparison results into season-ordered tables
// and builds the payloads consumed by CSV export and plot rendering.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/model"
)

var (
	// SeasonOrder is the column order of every output table.
	SeasonOrder = []model.Season{model.DJF, model.MAM, model.JJA, model.SON}

	// ReducedSeasons is the winter/summer subset used by the grid variant.
	ReducedSeasons = []model.Season{model.DJF, model.JJA}
)

func seasonRank(s model.Season) int {
	for i, o := range SeasonOrder {
		if o == s {
			return i
		}
	}
	return len(SeasonOrder)
}

// SortSeasons returns a deduplicated copy of seasons in SeasonOrder.
func SortSeasons(seasons []model.Season) []model.Season {
	seen := map[model.Season]bool{}
	res := make([]model.Season, 0, len(seasons))
	for _, s := range seasons {
		if seen[s] {
			continue
		}
		seen[s] = true
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return seasonRank(res[i]) < seasonRank(res[j]) })
	return res
}

// ParseSeasons accepts "all", "reduced" or a comma separated list like "JJA,DJF".
func ParseSeasons(s string) ([]model.Season, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return append([]model.Season(nil), SeasonOrder...), nil
	case "reduced":
		return append([]model.Season(nil), ReducedSeasons...), nil
	}

	var res []model.Season
	for _, name := range strings.Split(s, ",") {
		season, err := model.ParseSeason(strings.ToUpper(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, common.ErrorInvalidValue)
		}
		res = append(res, season)
	}
	return SortSeasons(res), nil
}
