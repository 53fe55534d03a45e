package analysis

import (
	"context"
	"fmt"
	"os"

	"github.com/uyouii/kstail/aggregate"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

// WriteOutputs persists the result tables and the plot payload. The
// historical vs future table goes to aggregate.FuturePath(tablePath). An
// empty figurePath skips the payload.
func (r *Report) WriteOutputs(ctx context.Context, label, tablePath, figurePath string) error {
	logger := utils.GetLogger(ctx)

	paths := map[model.Pair]string{
		model.HistObs: tablePath,
		model.HistFut: aggregate.FuturePath(tablePath),
	}
	for _, pair := range model.AllPairs {
		table, ok := r.Tables[pair]
		if !ok {
			continue
		}
		if err := writeFile(paths[pair], func(f *os.File) error { return table.WriteCSV(f) }); err != nil {
			return fmt.Errorf("write %s table: %w", pair, err)
		}
		logger.Info("wrote result table", zap.String("pair", string(pair)), zap.String("path", paths[pair]))
	}

	if figurePath == "" {
		return nil
	}
	format := aggregate.FormatForPath(figurePath)
	payload := r.PlotPayload(label)
	if err := writeFile(figurePath, func(f *os.File) error { return payload.Encode(f, format) }); err != nil {
		return fmt.Errorf("write plot payload: %w", err)
	}
	logger.Info("wrote plot payload", zap.String("format", format), zap.String("path", figurePath))
	return nil
}

func writeFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
