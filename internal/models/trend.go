package models

import (
	"errors"
	"math"
	"strings"
)

// Status is the categorical direction of a keyword's interest.
type Status string

const (
	StatusRising    Status = "Rising"
	StatusDeclining Status = "Declining"
	StatusPeaking   Status = "Peaking"
	StatusStable    Status = "Stable"
)

// Classification thresholds. Velocity is checked before strength.
const (
	RisingVelocity    = 5.0
	DecliningVelocity = -5.0
	PeakingStrength   = 70.0

	velocityWeight = 0.6
	strengthWeight = 0.4
)

// TrendRecord is one scored keyword. Confidence and Status are always derived
// from Velocity and Strength; build records with NewTrendRecord.
type TrendRecord struct {
	Keyword      string  `json:"keyword"`
	Status       Status  `json:"status"`
	Confidence   float64 `json:"confidence"`
	Velocity     float64 `json:"velocity"`
	Strength     float64 `json:"strength"`
	CurrentValue float64 `json:"current_value"`
	PeakValue    float64 `json:"peak_value"`
}

// Confidence blends the magnitude of velocity with strength.
// Declining keywords score as high as rising ones of the same magnitude.
func Confidence(velocity, strength float64) float64 {
	return math.Abs(velocity)*velocityWeight + strength*strengthWeight
}

// Classify maps (velocity, strength) to a Status.
func Classify(velocity, strength float64) Status {
	switch {
	case velocity > RisingVelocity:
		return StatusRising
	case velocity < DecliningVelocity:
		return StatusDeclining
	case strength > PeakingStrength:
		return StatusPeaking
	default:
		return StatusStable
	}
}

// NewTrendRecord derives confidence and status and validates the result.
func NewTrendRecord(keyword string, velocity, strength, current, peak float64) (TrendRecord, error) {
	rec := TrendRecord{
		Keyword:      keyword,
		Status:       Classify(velocity, strength),
		Confidence:   Confidence(velocity, strength),
		Velocity:     velocity,
		Strength:     strength,
		CurrentValue: current,
		PeakValue:    peak,
	}
	if err := rec.Validate(); err != nil {
		return TrendRecord{}, err
	}
	return rec, nil
}

// Validate checks record field constraints.
func (r *TrendRecord) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return errors.New("keyword must not be empty")
	}
	for _, v := range []float64{r.Velocity, r.Strength, r.CurrentValue, r.PeakValue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("trend values must be finite")
		}
	}
	if r.Status != Classify(r.Velocity, r.Strength) {
		return errors.New("status does not match velocity and strength")
	}
	return nil
}
