package calendar

const (
	Fixed360Name = "360_day"

	DaysPerMonth360 = 30
	DaysPerYear360  = 360

	secondsPerDay = 86400.0
)

var unitSeconds = map[string]float64{
	"day":     secondsPerDay,
	"days":    secondsPerDay,
	"d":       secondsPerDay,
	"hour":    3600,
	"hours":   3600,
	"hr":      3600,
	"h":       3600,
	"minute":  60,
	"minutes": 60,
	"min":     60,
	"second":  1,
	"seconds": 1,
	"sec":     1,
	"s":       1,
}
