// Package trend scores keyword interest series and synthesizes substitute
// records when no real signal is available.
package trend

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/models"
)

// Fetcher returns the raw interest series for one keyword, oldest first.
type Fetcher interface {
	FetchInterest(ctx context.Context, keyword string) ([]float64, error)
}

type Config struct {
	// Concurrency bounds in-flight fetches. Values below 1 fetch sequentially.
	Concurrency int
	// FetchTimeout applies to each keyword. Zero disables it.
	FetchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:  4,
		FetchTimeout: 20 * time.Second,
	}
}

// Scorer turns raw samples into ranked trend records. It holds no state
// between calls.
type Scorer struct {
	fetcher Fetcher
	config  Config
}

func NewScorer(f Fetcher, config Config) *Scorer {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Scorer{fetcher: f, config: config}
}

// Score fetches at most maxKeywords keywords, keeps records with
// confidence >= minConfidence and returns them by confidence descending.
// Keywords that fail to fetch or carry no signal are skipped; if every
// keyword is skipped the result is empty.
func (s *Scorer) Score(ctx context.Context, keywords []string, minConfidence float64, maxKeywords int) []models.TrendRecord {
	if maxKeywords >= 0 && len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	if len(keywords) == 0 {
		return []models.TrendRecord{}
	}

	samples := s.fetchAll(ctx, keywords)

	var skipped int
	records := make([]models.TrendRecord, 0, len(keywords))
	for i, keyword := range keywords {
		rec, ok := ScoreSample(keyword, samples[i])
		if !ok {
			skipped++
			continue
		}
		if rec.Confidence < minConfidence {
			logger.Debug("Keyword %q below confidence threshold: %.2f < %.2f", keyword, rec.Confidence, minConfidence)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Confidence > records[j].Confidence
	})

	logger.Debug("Scored %d keywords: %d retained, %d without data", len(keywords), len(records), skipped)
	return records
}

// fetchAll returns one sample per keyword, in keyword order. Failed fetches
// leave a nil slot.
func (s *Scorer) fetchAll(ctx context.Context, keywords []string) [][]float64 {
	samples := make([][]float64, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for i, keyword := range keywords {
		g.Go(func() error {
			fctx := gctx
			if s.config.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, s.config.FetchTimeout)
				defer cancel()
			}

			sample, err := s.fetcher.FetchInterest(fctx, keyword)
			if err != nil {
				logger.Debug("Skipping keyword %q: %v", keyword, err)
				return nil
			}
			samples[i] = sample
			return nil
		})
	}
	_ = g.Wait()

	return samples
}

// ScoreSample computes a record from one raw sample. It reports false when
// the sample is empty or carries no signal.
func ScoreSample(keyword string, sample []float64) (models.TrendRecord, bool) {
	if !hasSignal(sample) {
		return models.TrendRecord{}, false
	}

	window := len(sample) / 4
	if window < 1 {
		window = 1
	}
	early := mean(sample[:window])
	late := mean(sample[len(sample)-window:])

	strength := late
	velocity := late - early

	peak := sample[0]
	for _, v := range sample[1:] {
		if v > peak {
			peak = v
		}
	}

	rec, err := models.NewTrendRecord(keyword, velocity, strength, sample[len(sample)-1], peak)
	if err != nil {
		logger.Debug("Discarding keyword %q: %v", keyword, err)
		return models.TrendRecord{}, false
	}
	return rec, true
}

func hasSignal(sample []float64) bool {
	for _, v := range sample {
		if v != 0 && !math.IsNaN(v) {
			return true
		}
	}
	return false
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
