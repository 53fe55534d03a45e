package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/config"
)

func writeSeries(t *testing.T, path string, shift float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("# calendar: 360_day\n# units: days since 1961-01-01\ntime,prec\n")
	for i := 0; i < 720; i++ {
		fmt.Fprintf(&b, "%d,%g\n", i, float64(i%13)*0.9+shift)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	obs := filepath.Join(dir, "obs.csv")
	cur := filepath.Join(dir, "cur.csv")
	fut := filepath.Join(dir, "fut.csv")
	writeSeries(t, obs, 0)
	writeSeries(t, cur, 0)
	writeSeries(t, fut, 1)

	table := filepath.Join(dir, "ks.txt")
	figure := filepath.Join(dir, "plot.json")
	metricsFile := filepath.Join(dir, "kstail.prom")
	cfg, err := config.ParseFlags([]string{"-workers", "2", "-metrics-file", metricsFile,
		"test", obs, cur, fut, figure, "prec", table})
	require.NoError(t, err)

	require.NoError(t, run(context.Background(), cfg))
	assert.FileExists(t, table)
	assert.FileExists(t, filepath.Join(dir, "ks_future.txt"))
	assert.FileExists(t, figure)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "kstail_comparisons_total")
}

func TestRunMissingVariable(t *testing.T) {
	dir := t.TempDir()
	obs := filepath.Join(dir, "obs.csv")
	writeSeries(t, obs, 0)

	cfg, err := config.ParseFlags([]string{"test", obs, obs, "-", "", "tas", filepath.Join(dir, "ks.txt")})
	require.NoError(t, err)
	assert.ErrorIs(t, run(context.Background(), cfg), common.ErrInput)
}
