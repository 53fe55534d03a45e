package source

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"slices"

	_ "github.com/lib/pq"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/model"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// A SQL source is a data table with columns time_offset, lat, lon and one
// column per variable, plus a <table>_meta table holding calendar and units.
const (
	offsetColumn = "time_offset"
	metaSuffix   = "_meta"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlTarget splits a source URI into driver, DSN and table name.
func sqlTarget(u *url.URL) (driver, dsn, table string, err error) {
	table = u.Query().Get("table")
	if !identifier.MatchString(table) {
		return "", "", "", fmt.Errorf("%w: invalid or missing table %q", common.ErrInput, table)
	}

	q := u.Query()
	q.Del("table")
	stripped := *u
	stripped.RawQuery = q.Encode()

	switch u.Scheme {
	case "sqlite":
		dsn = u.Host + u.Path
		if stripped.RawQuery != "" {
			dsn += "?" + stripped.RawQuery
		}
		return "sqlite", dsn, table, nil
	case "postgres", "postgresql":
		return "postgres", stripped.String(), table, nil
	}
	return "", "", "", fmt.Errorf("%w: unsupported scheme %q", common.ErrInput, u.Scheme)
}

func loadSQL(ctx context.Context, u *url.URL, variable string) (*model.TimeSeries, error) {
	logger := utils.GetLogger(ctx)

	if !identifier.MatchString(variable) {
		return nil, fmt.Errorf("%w: invalid variable name %q", common.ErrInput, variable)
	}
	driver, dsn, table, err := sqlTarget(u)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrInput, driver, err)
	}
	defer db.Close()

	ts, err := querySeries(ctx, db, table, variable)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded sql series", zap.String("driver", driver), zap.String("table", table),
		zap.String("series", ts.DebugString()))
	return ts, nil
}

func querySeries(ctx context.Context, db *sql.DB, table, variable string) (*model.TimeSeries, error) {
	var cal, units string
	row := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT calendar, units FROM %s%s LIMIT 1`, table, metaSuffix))
	if err := row.Scan(&cal, &units); err != nil {
		return nil, fmt.Errorf("%w: read %s%s: %v", common.ErrInput, table, metaSuffix, err)
	}

	probe, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT 0`, table))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrInput, table, err)
	}
	columns, err := probe.Columns()
	probe.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s columns: %v", common.ErrInput, table, err)
	}
	if !slices.Contains(columns, variable) {
		return nil, fmt.Errorf("%w: variable %q not found in table %s", common.ErrInput, variable, table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s, lat, lon, %s FROM %s ORDER BY %s, lat, lon`, offsetColumn, variable, table, offsetColumn))
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", common.ErrInput, table, err)
	}
	defer rows.Close()

	b := newBuilder(variable, cal, units)
	for rows.Next() {
		var offset float64
		var loc model.Location
		var value sql.NullFloat64
		if err := rows.Scan(&offset, &loc.Lat, &loc.Lon, &value); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", common.ErrInput, table, err)
		}
		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		b.add(offset, loc, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", common.ErrInput, table, err)
	}
	return b.build(), nil
}
