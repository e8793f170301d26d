package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campushq/exam-office-api/internal/models"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		method    models.RoundingMethod
		precision int
		expected  float64
	}{
		{"round two decimals up", 66.666666, models.RoundingRound, 2, 66.67},
		{"floor two decimals", 66.666666, models.RoundingFloor, 2, 66.66},
		{"ceil two decimals", 66.666666, models.RoundingCeil, 2, 66.67},
		{"none truncates via fixed-point formatting", 66.666666, models.RoundingNone, 2, 66.67},
		{"round whole marks", 17.5, models.RoundingRound, 0, 18},
		{"floor whole marks", 17.9, models.RoundingFloor, 0, 17},
		{"ceil whole marks", 17.1, models.RoundingCeil, 0, 18},
		{"ceil exact value unchanged", 17.25, models.RoundingCeil, 2, 17.25},
		{"negative precision treated as zero", 17.6, models.RoundingRound, -1, 18},
		{"zero value", 0, models.RoundingRound, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Round(tt.value, tt.method, tt.precision), 1e-9)
		})
	}
}

func TestRoundUnknownMethodDefaultsToRound(t *testing.T) {
	assert.InDelta(t, 66.67, Round(66.666666, models.RoundingMethod("half_even"), 2), 1e-9)
}
