package assessment

import (
	"math"
	"strconv"

	"github.com/campushq/exam-office-api/internal/models"
)

// Round applies a pattern's rounding method at the given decimal precision.
// floor, ceil and round scale by 10^precision and round directionally; none
// reduces to the requested precision through fixed-point formatting without a
// directional guarantee.
func Round(value float64, method models.RoundingMethod, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	multiplier := math.Pow(10, float64(precision))

	switch method {
	case models.RoundingFloor:
		return math.Floor(value*multiplier) / multiplier
	case models.RoundingCeil:
		return math.Ceil(value*multiplier) / multiplier
	case models.RoundingNone:
		fixed, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', precision, 64), 64)
		if err != nil {
			return value
		}
		return fixed
	default:
		return math.Round(value*multiplier) / multiplier
	}
}
