// Package source loads the observational, historical and future series.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/model"
	"golang.org/x/sync/errgroup"
)

// Load reads one series. uri is a CSV file path or a sqlite:// or
// postgres:// URL carrying a table query parameter.
func Load(ctx context.Context, uri, variable string) (*model.TimeSeries, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty source", common.ErrInput)
	}
	if strings.Contains(uri, "://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInput, err)
		}
		return loadSQL(ctx, u, variable)
	}
	return loadCSVFile(ctx, uri, variable)
}

// Set is the three series of one analysis.
type Set struct {
	Observed   *model.TimeSeries
	Historical *model.TimeSeries
	Future     *model.TimeSeries
}

// LoadAll loads the three series concurrently. An empty future uri leaves
// Future nil.
func LoadAll(ctx context.Context, obs, hist, fut, variable string) (*Set, error) {
	set := &Set{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		set.Observed, err = load(ctx, "observed", obs, variable)
		return err
	})
	g.Go(func() (err error) {
		set.Historical, err = load(ctx, "historical", hist, variable)
		return err
	})
	if fut != "" {
		g.Go(func() (err error) {
			set.Future, err = load(ctx, "future", fut, variable)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func load(ctx context.Context, name, uri, variable string) (*model.TimeSeries, error) {
	ts, err := Load(ctx, uri, variable)
	if err != nil {
		return nil, fmt.Errorf("load %s %q: %w", name, uri, err)
	}
	return ts, nil
}
