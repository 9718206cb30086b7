package trend

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atim-dev/atim/internal/models"
)

// stubFetcher serves fixed samples; keywords missing from the map fail.
type stubFetcher struct {
	samples map[string][]float64
	calls   atomic.Int32
}

func (f *stubFetcher) FetchInterest(_ context.Context, keyword string) ([]float64, error) {
	f.calls.Add(1)
	s, ok := f.samples[keyword]
	if !ok {
		return nil, errors.New("no data")
	}
	return s, nil
}

func constant(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func keywordsOf(recs []models.TrendRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Keyword
	}
	return out
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name       string
		names      []string
		additional []string
		want       []string
	}{
		{"dedup keeps first", []string{"Boots", "boots", "Shoes"}, nil, []string{"boots", "shoes"}},
		{"trims and drops empty", []string{"  Loafers ", "", "   "}, nil, []string{"loafers"}},
		{"additional appended", []string{"Boots"}, []string{"Espadrilles", "BOOTS"}, []string{"boots", "espadrilles"}},
		{"empty input", nil, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.names, tt.additional)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractKeywords() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreSample(t *testing.T) {
	// 8 points: window of 2, early mean 20, late mean 50.
	sample := []float64{20, 20, 30, 35, 40, 45, 50, 50}
	rec, ok := ScoreSample("retro runners", sample)
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Strength != 50 {
		t.Errorf("strength = %v, want 50", rec.Strength)
	}
	if rec.Velocity != 30 {
		t.Errorf("velocity = %v, want 30", rec.Velocity)
	}
	if math.Abs(rec.Confidence-38) > 1e-9 {
		t.Errorf("confidence = %v, want 38", rec.Confidence)
	}
	if rec.Status != models.StatusRising {
		t.Errorf("status = %s, want Rising", rec.Status)
	}
	if rec.CurrentValue != 50 || rec.PeakValue != 50 {
		t.Errorf("current/peak = %v/%v, want 50/50", rec.CurrentValue, rec.PeakValue)
	}
}

func TestScoreSample_NoSignal(t *testing.T) {
	for _, sample := range [][]float64{nil, {}, {0, 0, 0}} {
		if _, ok := ScoreSample("x", sample); ok {
			t.Errorf("expected no record for %v", sample)
		}
	}
}

func TestScoreSample_SinglePoint(t *testing.T) {
	rec, ok := ScoreSample("suede boots", []float64{80})
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Velocity != 0 || rec.Strength != 80 || rec.Status != models.StatusPeaking {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestScore_Threshold(t *testing.T) {
	f := &stubFetcher{samples: map[string][]float64{
		"a": constant(37.5, 4), // confidence 15
		"b": constant(75, 4),   // confidence 30
	}}
	s := NewScorer(f, DefaultConfig())

	got := s.Score(context.Background(), []string{"a", "b"}, 20, 15)
	if len(got) != 1 || got[0].Keyword != "b" {
		t.Fatalf("got %v, want only b", keywordsOf(got))
	}
	if math.Abs(got[0].Confidence-30) > 1e-9 {
		t.Errorf("confidence = %v, want 30", got[0].Confidence)
	}
}

func TestScore_SortedStable(t *testing.T) {
	f := &stubFetcher{samples: map[string][]float64{
		"ten":    constant(25, 4),
		"fifty":  {0, 50},
		"thirty": constant(75, 4),
		"tie":    constant(75, 4),
	}}
	s := NewScorer(f, DefaultConfig())

	got := s.Score(context.Background(), []string{"ten", "fifty", "thirty", "tie"}, 0, 15)
	want := []string{"fifty", "thirty", "tie", "ten"}
	if !reflect.DeepEqual(keywordsOf(got), want) {
		t.Fatalf("order = %v, want %v", keywordsOf(got), want)
	}
	wantConf := []float64{50, 30, 30, 10}
	for i, r := range got {
		if math.Abs(r.Confidence-wantConf[i]) > 1e-9 {
			t.Errorf("record %d confidence = %v, want %v", i, r.Confidence, wantConf[i])
		}
	}
}

func TestScore_TruncatesBeforeFetching(t *testing.T) {
	f := &stubFetcher{samples: map[string][]float64{
		"a": constant(80, 4), "b": constant(80, 4), "c": constant(80, 4),
	}}
	s := NewScorer(f, Config{Concurrency: 1})

	got := s.Score(context.Background(), []string{"a", "b", "c"}, 0, 2)
	if calls := f.calls.Load(); calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
	if !reflect.DeepEqual(keywordsOf(got), []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", keywordsOf(got))
	}
}

func TestScore_SkipsFailures(t *testing.T) {
	f := &stubFetcher{samples: map[string][]float64{
		"zeros": constant(0, 12),
		"empty": {},
		"good":  constant(60, 12),
	}}
	s := NewScorer(f, DefaultConfig())

	got := s.Score(context.Background(), []string{"missing", "zeros", "empty", "good"}, 0, 15)
	if !reflect.DeepEqual(keywordsOf(got), []string{"good"}) {
		t.Errorf("got %v, want [good]", keywordsOf(got))
	}
}

func TestScore_AllFail(t *testing.T) {
	s := NewScorer(&stubFetcher{}, DefaultConfig())
	got := s.Score(context.Background(), []string{"a", "b"}, 20, 15)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestScore_EmptyKeywords(t *testing.T) {
	f := &stubFetcher{}
	s := NewScorer(f, DefaultConfig())
	got := s.Score(context.Background(), nil, 20, 15)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
	if f.calls.Load() != 0 {
		t.Error("fetcher should not be called for empty input")
	}
}

type blockingFetcher struct{}

func (blockingFetcher) FetchInterest(ctx context.Context, _ string) ([]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScore_TimeoutSkips(t *testing.T) {
	s := NewScorer(blockingFetcher{}, Config{Concurrency: 2, FetchTimeout: 10 * time.Millisecond})
	got := s.Score(context.Background(), []string{"slow"}, 0, 15)
	if len(got) != 0 {
		t.Errorf("expected timed out keyword to be skipped, got %v", got)
	}
}

func TestScore_Idempotent(t *testing.T) {
	f := &stubFetcher{samples: map[string][]float64{
		"boots":   {10, 20, 30, 40, 55, 60, 70, 75},
		"loafers": {80, 70, 60, 50, 40, 35, 30, 20},
		"clogs":   constant(72, 6),
	}}
	s := NewScorer(f, DefaultConfig())
	keywords := []string{"boots", "loafers", "clogs"}

	first, err := json.Marshal(s.Score(context.Background(), keywords, 0, 15))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(s.Score(context.Background(), keywords, 0, 15))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("results differ:\n%s\n%s", first, second)
	}
}

func TestSynthesize(t *testing.T) {
	s := NewSampler(rand.New(rand.NewPCG(1, 2)))
	got := s.Synthesize([]string{"x", "y", "z", "w", "v", "u"}, DefaultSampleSize)

	if !reflect.DeepEqual(keywordsOf(got), []string{"x", "y", "z", "w", "v"}) {
		t.Fatalf("keywords = %v, want first five", keywordsOf(got))
	}
	for _, r := range got {
		if r.Strength < 40 || r.Strength > 80 {
			t.Errorf("%s strength %v out of [40,80]", r.Keyword, r.Strength)
		}
		if r.Velocity < -10 || r.Velocity > 15 {
			t.Errorf("%s velocity %v out of [-10,15]", r.Keyword, r.Velocity)
		}
		if r.CurrentValue != r.Strength {
			t.Errorf("%s current %v != strength %v", r.Keyword, r.CurrentValue, r.Strength)
		}
		if r.PeakValue != r.Strength*1.2 {
			t.Errorf("%s peak %v != strength*1.2", r.Keyword, r.PeakValue)
		}
		if r.Confidence != models.Confidence(r.Velocity, r.Strength) {
			t.Errorf("%s confidence not derived from velocity and strength", r.Keyword)
		}
		if r.Status != models.Classify(r.Velocity, r.Strength) {
			t.Errorf("%s status not derived from velocity and strength", r.Keyword)
		}
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	a := NewSampler(rand.New(rand.NewPCG(7, 7))).Synthesize([]string{"a", "b"}, 5)
	b := NewSampler(rand.New(rand.NewPCG(7, 7))).Synthesize([]string{"a", "b"}, 5)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different records: %v vs %v", a, b)
	}
	if a[0].Strength == a[1].Strength && a[0].Velocity == a[1].Velocity {
		t.Error("expected independent draws per keyword")
	}
}

func TestSynthesize_Empty(t *testing.T) {
	got := NewSampler(nil).Synthesize(nil, 5)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}
