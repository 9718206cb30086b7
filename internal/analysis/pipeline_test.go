package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atim-dev/atim/internal/composer"
	"github.com/atim-dev/atim/internal/models"
	"github.com/atim-dev/atim/internal/report"
	"github.com/atim-dev/atim/internal/telegram"
	"github.com/atim-dev/atim/internal/trend"
)

type stubScorer struct {
	records  []models.TrendRecord
	keywords []string
	minConf  float64
	max      int
}

func (s *stubScorer) Score(_ context.Context, keywords []string, minConfidence float64, maxKeywords int) []models.TrendRecord {
	s.keywords = keywords
	s.minConf = minConfidence
	s.max = maxKeywords
	if s.records == nil {
		return []models.TrendRecord{}
	}
	return s.records
}

type recordingComposer struct {
	req  composer.Request
	text string
	err  error
}

func (c *recordingComposer) Compose(_ context.Context, req composer.Request) (string, error) {
	c.req = req
	return c.text, c.err
}

type memStore struct {
	reports []*models.Report
	err     error
}

func (m *memStore) AddReport(r *models.Report) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

type recordingNotifier struct {
	digests []telegram.Digest
	errs    []error
	err     error
}

func (n *recordingNotifier) SendDigest(d telegram.Digest) error {
	n.digests = append(n.digests, d)
	return n.err
}

func (n *recordingNotifier) SendError(runErr error) error {
	n.errs = append(n.errs, runErr)
	return n.err
}

type failingRenderer struct{}

func (failingRenderer) HTMLString(report.Data) (string, error) {
	return "", errors.New("template exploded")
}

func testItems() []models.InventoryItem {
	return []models.InventoryItem{
		{ProductName: "Chunky Sneakers", CurrentStock: 2, ReorderPoint: 10, UnitPrice: 80},
		{ProductName: "Waterproof Boots", CurrentStock: 30, ReorderPoint: 10, UnitPrice: 120},
		{ProductName: "chunky sneakers ", CurrentStock: 8, ReorderPoint: 8, UnitPrice: 80},
	}
}

func mustRecord(t *testing.T, keyword string, velocity, strength float64) models.TrendRecord {
	t.Helper()
	r, err := models.NewTrendRecord(keyword, velocity, strength, strength, strength)
	require.NoError(t, err)
	return r
}

func newRenderer(t *testing.T) *report.Renderer {
	t.Helper()
	r, err := report.NewRenderer()
	require.NoError(t, err)
	return r
}

func TestRun_RealTrends(t *testing.T) {
	scorer := &stubScorer{records: []models.TrendRecord{
		mustRecord(t, "chunky sneakers", 10, 60),
		mustRecord(t, "waterproof boots", 0, 55),
	}}
	comp := &recordingComposer{text: "## Restock Now\n- more sneakers"}
	store := &memStore{}
	notifier := &recordingNotifier{}

	p := New(Deps{
		Scorer:        scorer,
		Composer:      comp,
		Renderer:      newRenderer(t),
		Store:         store,
		Notifier:      notifier,
		ReportBaseURL: "http://localhost:8080/",
	})

	opts := DefaultOptions()
	opts.AdditionalKeywords = []string{"Platform Sandals"}
	opts.Season = "Late Summer"
	opts.UpcomingEvents = []string{"Labor Day"}

	res, err := p.Run(context.Background(), testItems(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"chunky sneakers", "waterproof boots", "platform sandals"}, scorer.keywords)
	assert.Equal(t, 20.0, scorer.minConf)
	assert.Equal(t, 15, scorer.max)

	assert.False(t, res.Synthetic)
	assert.Len(t, res.TrendingProducts, 2)
	assert.Equal(t, "## Restock Now\n- more sneakers", res.Recommendations)
	assert.Equal(t, 3, res.InventorySummary.TotalItems)
	assert.Equal(t, 2, res.LowStockCount)
	assert.Len(t, res.LowStockItems, 2)
	assert.Contains(t, res.HTML, "more sneakers")

	assert.Equal(t, "Late Summer", comp.req.Season)
	assert.Equal(t, []string{"Labor Day"}, comp.req.UpcomingEvents)
	assert.False(t, comp.req.Synthetic)
	assert.Len(t, comp.req.LowStock, 2)

	require.Len(t, store.reports, 1)
	assert.Equal(t, store.reports[0].ID, res.ReportID)
	assert.Equal(t, "chunky sneakers", store.reports[0].TopKeyword)
	assert.Equal(t, 2, store.reports[0].TrendCount)
	assert.Equal(t, "http://localhost:8080/reports/"+res.ReportID, res.ReportURL)

	require.Len(t, notifier.digests, 1)
	assert.Equal(t, res.ReportURL, notifier.digests[0].ReportURL)
	assert.Len(t, notifier.digests[0].Trends, 2)
}

func TestRun_FallbackWhenNoTrends(t *testing.T) {
	p := New(Deps{
		Scorer:   &stubScorer{},
		Sampler:  trend.NewSampler(rand.New(rand.NewPCG(1, 2))),
		Composer: composer.TemplateComposer{},
	})

	res, err := p.Run(context.Background(), testItems(), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, res.Synthetic)
	require.Len(t, res.TrendingProducts, 2)
	assert.Equal(t, "chunky sneakers", res.TrendingProducts[0].Keyword)
	for _, r := range res.TrendingProducts {
		assert.InDelta(t, r.Strength*1.2, r.PeakValue, 1e-9)
	}
	assert.Contains(t, res.Recommendations, "placeholders")
	assert.Empty(t, res.HTML)
	assert.Empty(t, res.ReportID)
}

func TestRun_EmptyInventory(t *testing.T) {
	p := New(Deps{Scorer: &stubScorer{}})

	res, err := p.Run(context.Background(), nil, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, res.Synthetic)
	assert.NotNil(t, res.TrendingProducts)
	assert.Empty(t, res.TrendingProducts)
	assert.NotNil(t, res.LowStockItems)
	assert.Equal(t, 0, res.LowStockCount)
}

func TestRun_TruncatesToTop(t *testing.T) {
	var records []models.TrendRecord
	for i := 0; i < 14; i++ {
		records = append(records, mustRecord(t, fmt.Sprintf("kw%d", i), 0, float64(90-i)))
	}
	store := &memStore{}
	p := New(Deps{Scorer: &stubScorer{records: records}, Renderer: newRenderer(t), Store: store})

	res, err := p.Run(context.Background(), testItems(), DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, res.TrendingProducts, TopTrends)
	assert.Len(t, res.AllTrends, 14)
	require.Len(t, store.reports, 1)
	assert.Equal(t, 14, store.reports[0].TrendCount)
}

func TestRun_CollaboratorFailuresDoNotFail(t *testing.T) {
	p := New(Deps{
		Scorer:   &stubScorer{records: []models.TrendRecord{mustRecord(t, "boots", 10, 50)}},
		Composer: &recordingComposer{err: errors.New("model offline")},
		Renderer: newRenderer(t),
		Store:    &memStore{err: errors.New("disk full")},
		Notifier: &recordingNotifier{err: errors.New("telegram down")},
	})

	res, err := p.Run(context.Background(), testItems(), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)
	assert.Empty(t, res.ReportID)
	assert.Empty(t, res.ReportURL)
	assert.NotEmpty(t, res.HTML)
}

func TestRun_InvalidOptions(t *testing.T) {
	scorer := &stubScorer{}
	p := New(Deps{Scorer: scorer})

	opts := DefaultOptions()
	opts.MinConfidence = math.NaN()
	_, err := p.Run(context.Background(), testItems(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Nil(t, scorer.keywords, "scoring must not start")
}

func TestRun_DerivesSeasonWhenUnset(t *testing.T) {
	comp := &recordingComposer{text: "ok"}
	p := New(Deps{Scorer: &stubScorer{records: []models.TrendRecord{mustRecord(t, "boots", 10, 50)}}, Composer: comp})
	p.now = func() time.Time { return time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC) }

	res, err := p.Run(context.Background(), testItems(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Fall", comp.req.Season)
	assert.Equal(t, "Fall", res.ReportData().Season)

	opts := DefaultOptions()
	opts.Season = "Resort"
	_, err = p.Run(context.Background(), testItems(), opts)
	require.NoError(t, err)
	assert.Equal(t, "Resort", comp.req.Season)
}

func TestSeasonAt(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "Winter"},
		{time.February, "Winter"},
		{time.March, "Spring"},
		{time.May, "Spring"},
		{time.June, "Summer"},
		{time.August, "Summer"},
		{time.September, "Fall"},
		{time.November, "Fall"},
		{time.December, "Winter"},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SeasonAt(time.Date(2026, tt.month, 15, 0, 0, 0, 0, time.UTC)))
		})
	}
}

func TestRun_RenderFailureAlertsNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	store := &memStore{}
	p := New(Deps{
		Scorer:   &stubScorer{records: []models.TrendRecord{mustRecord(t, "boots", 10, 50)}},
		Renderer: failingRenderer{},
		Store:    store,
		Notifier: notifier,
	})

	_, err := p.Run(context.Background(), testItems(), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template exploded")

	require.Len(t, notifier.errs, 1)
	assert.ErrorContains(t, notifier.errs[0], "failed to render report")
	assert.Empty(t, notifier.digests)
	assert.Empty(t, store.reports)
}

func TestRun_InvalidOptionsDoNotAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	p := New(Deps{Scorer: &stubScorer{}, Notifier: notifier})

	opts := DefaultOptions()
	opts.MinConfidence = math.Inf(1)
	_, err := p.Run(context.Background(), testItems(), opts)
	require.Error(t, err)
	assert.Empty(t, notifier.errs)
}

func TestResultJSONShape(t *testing.T) {
	p := New(Deps{Scorer: &stubScorer{records: []models.TrendRecord{mustRecord(t, "boots", 10, 50)}}})
	p.now = func() time.Time { return time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC) }

	res, err := p.Run(context.Background(), testItems(), DefaultOptions())
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"inventory_summary", "trending_products", "recommendations", "low_stock_count", "low_stock_items", "synthetic", "generated_at"} {
		assert.Contains(t, m, key)
	}
	assert.NotContains(t, m, "report_id")
	assert.NotContains(t, m, "HTML")
	assert.NotContains(t, m, "AllTrends")
	assert.Equal(t, "2026-08-20T09:00:00Z", m["generated_at"])
}
