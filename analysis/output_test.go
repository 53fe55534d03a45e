package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/kstail/aggregate"
	"github.com/vmihailenco/msgpack/v5"
)

func runReport(t *testing.T) *Report {
	value := func(i int) float64 { return float64(i%19) * 0.7 }
	report, err := newRunner(t, nil, func(o *Options) { o.Seasons = aggregate.ReducedSeasons }).
		Run(context.Background(), Inputs{
			Observed:   seasonal(720, value),
			Historical: seasonal(720, value),
			Future:     seasonal(720, func(i int) float64 { return value(i) + 2 }),
			Variable:   "prec",
		})
	require.NoError(t, err)
	return report
}

func TestWriteOutputs(t *testing.T) {
	report := runReport(t)
	dir := t.TempDir()
	tablePath := filepath.Join(dir, "ks.csv")
	figurePath := filepath.Join(dir, "plot.json")

	require.NoError(t, report.WriteOutputs(context.Background(), "ALP-3", tablePath, figurePath))

	for _, path := range []string{tablePath, filepath.Join(dir, "ks_future.csv")} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 3, path)
		assert.Equal(t, "lat,lon,DJF,DJF,JJA,JJA", lines[0])
		assert.Equal(t, ",,statistic,pvalue,statistic,pvalue", lines[1])
		assert.True(t, strings.HasPrefix(lines[2], "47.5,8.5,"), lines[2])
	}

	data, err := os.ReadFile(figurePath)
	require.NoError(t, err)
	var payload aggregate.PlotPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "ALP-3", payload.Label)
	assert.Equal(t, "prec", payload.Variable)
	assert.Equal(t, 85.0, payload.Percentile)
	assert.Contains(t, payload.Significance, "hist_obs")
	assert.Contains(t, payload.Significance, "hist_fut")
	assert.NotNil(t, payload.Histogram)
}

func TestWriteOutputsMsgpackWithoutFuture(t *testing.T) {
	report := runReport(t)
	delete(report.Tables, "hist_fut")
	dir := t.TempDir()
	tablePath := filepath.Join(dir, "ks.txt")
	figurePath := filepath.Join(dir, "plot.msgpack")

	require.NoError(t, report.WriteOutputs(context.Background(), "run", tablePath, figurePath))
	assert.FileExists(t, tablePath)
	assert.NoFileExists(t, filepath.Join(dir, "ks_future.txt"))

	data, err := os.ReadFile(figurePath)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(data, &decoded))
	assert.Equal(t, "run", decoded["label"])
}

func TestWriteOutputsBadPath(t *testing.T) {
	report := runReport(t)
	err := report.WriteOutputs(context.Background(), "run", filepath.Join(t.TempDir(), "missing", "ks.csv"), "")
	assert.Error(t, err)
}
