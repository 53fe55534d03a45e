package aggregate

import (
	"encoding/json"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Float is a float64 that encodes NaN and Inf as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func toFloats(values []float64) []Float {
	res := make([]Float, len(values))
	for i, v := range values {
		res[i] = Float(v)
	}
	return res
}

// PlotPayload is everything a renderer needs to draw the figure: significance
// rasters per comparison pair and season, plus the histogram view for
// single-point runs.
type PlotPayload struct {
	Label        string                     `json:"label"`
	Variable     string                     `json:"variable"`
	Percentile   float64                    `json:"percentile"`
	Significance map[string]map[string]Grid `json:"significance"`
	Histogram    *HistogramView             `json:"histogram,omitempty"`
}

const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// FormatForPath picks msgpack for .msgpack and .mp files, JSON otherwise.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return FormatMsgpack
	default:
		return FormatJSON
	}
}

func (p *PlotPayload) Encode(w io.Writer, format string) error {
	if format == FormatMsgpack {
		encoder := msgpack.NewEncoder(w)
		encoder.SetCustomStructTag("json")
		return encoder.Encode(p)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(p)
}
