package trend

import (
	"math/rand/v2"
	"sync"

	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/models"
)

// DefaultSampleSize is the number of keywords the sampler fills in.
const DefaultSampleSize = 5

// Bounds of the substitute distribution.
const (
	minSyntheticStrength = 40.0
	maxSyntheticStrength = 80.0
	minSyntheticVelocity = -10.0
	maxSyntheticVelocity = 15.0
	syntheticPeakFactor  = 1.2
)

// Sampler produces placeholder trend records when no real data is available.
// Its numbers are random and say nothing about real interest; only the
// record shape and classification rules match the Scorer.
type Sampler struct {
	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewSampler uses rng for every draw. A nil rng is seeded from the runtime.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{rng: rng}
}

// Synthesize returns one record for each of the first sampleSize keywords,
// in input order. A sampleSize below 1 uses DefaultSampleSize.
func (s *Sampler) Synthesize(keywords []string, sampleSize int) []models.TrendRecord {
	if sampleSize < 1 {
		sampleSize = DefaultSampleSize
	}
	if len(keywords) > sampleSize {
		keywords = keywords[:sampleSize]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.TrendRecord, 0, len(keywords))
	for _, keyword := range keywords {
		strength := s.uniform(minSyntheticStrength, maxSyntheticStrength)
		velocity := s.uniform(minSyntheticVelocity, maxSyntheticVelocity)

		rec, err := models.NewTrendRecord(keyword, velocity, strength, strength, strength*syntheticPeakFactor)
		if err != nil {
			logger.Warn("Skipping synthetic record for %q: %v", keyword, err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *Sampler) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
