// Package analysis runs one inventory through keyword extraction, trend
// scoring, recommendation and report rendering.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atim-dev/atim/internal/composer"
	"github.com/atim-dev/atim/internal/inventory"
	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/models"
	"github.com/atim-dev/atim/internal/report"
	"github.com/atim-dev/atim/internal/telegram"
	"github.com/atim-dev/atim/internal/trend"
)

// TopTrends is the number of trend records carried in a Result.
const TopTrends = 10

// Options are the caller-supplied parameters of one run.
type Options struct {
	MaxKeywords        int
	MinConfidence      float64
	FallbackSampleSize int
	AdditionalKeywords []string
	Season             string
	UpcomingEvents     []string
}

func DefaultOptions() Options {
	return Options{
		MaxKeywords:        15,
		MinConfidence:      20.0,
		FallbackSampleSize: trend.DefaultSampleSize,
	}
}

// Validate rejects values that cannot be used as numbers at all.
// Range is left to the caller.
func (o Options) Validate() error {
	if math.IsNaN(o.MinConfidence) || math.IsInf(o.MinConfidence, 0) {
		return errors.New("min_confidence must be a finite number")
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	InventorySummary models.InventorySummary `json:"inventory_summary"`
	TrendingProducts []models.TrendRecord    `json:"trending_products"`
	Recommendations  string                  `json:"recommendations"`
	LowStockCount    int                     `json:"low_stock_count"`
	LowStockItems    []models.InventoryItem  `json:"low_stock_items"`
	Synthetic        bool                    `json:"synthetic"`
	ReportID         string                  `json:"report_id,omitempty"`
	ReportURL        string                  `json:"report_url,omitempty"`
	GeneratedAt      time.Time               `json:"generated_at"`

	// AllTrends is the full ranked sequence before truncation to TopTrends.
	AllTrends []models.TrendRecord `json:"-"`
	// HTML is the rendered report page.
	HTML string `json:"-"`
	// Season and UpcomingEvents are the context the run was composed with.
	Season         string   `json:"-"`
	UpcomingEvents []string `json:"-"`
}

// ReportData returns the view model for the report renderers.
func (r *Result) ReportData() report.Data {
	return report.Data{
		GeneratedAt:     r.GeneratedAt,
		Summary:         r.InventorySummary,
		Trends:          r.TrendingProducts,
		LowStock:        r.LowStockItems,
		Recommendations: r.Recommendations,
		Synthetic:       r.Synthetic,
		Season:          r.Season,
		UpcomingEvents:  r.UpcomingEvents,
	}
}

// Scorer ranks keywords by trend confidence.
type Scorer interface {
	Score(ctx context.Context, keywords []string, minConfidence float64, maxKeywords int) []models.TrendRecord
}

// ReportStore archives rendered reports.
type ReportStore interface {
	AddReport(r *models.Report) error
}

// Notifier delivers a run digest, or the error that ended a run.
type Notifier interface {
	SendDigest(d telegram.Digest) error
	SendError(runErr error) error
}

// SeasonAt names the meteorological season of t in the northern hemisphere.
func SeasonAt(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

// Renderer turns a report view model into an HTML page.
type Renderer interface {
	HTMLString(d report.Data) (string, error)
}

// Deps are the collaborators of a Pipeline. Renderer, Store and Notifier
// are optional.
type Deps struct {
	Scorer   Scorer
	Sampler  *trend.Sampler
	Composer composer.Composer
	Renderer Renderer
	Store    ReportStore
	Notifier Notifier
	// ReportBaseURL prefixes archived report links, e.g. "http://localhost:8080".
	ReportBaseURL string
}

// Pipeline is safe for concurrent use when its collaborators are.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Pipeline {
	if deps.Sampler == nil {
		deps.Sampler = trend.NewSampler(nil)
	}
	if deps.Composer == nil {
		deps.Composer = composer.TemplateComposer{}
	}
	deps.ReportBaseURL = strings.TrimRight(deps.ReportBaseURL, "/")
	return &Pipeline{deps: deps, now: time.Now}
}

// Run analyses items. Composer, archive and notifier failures are logged and
// do not fail the run; only invalid options and rendering errors do.
func (p *Pipeline) Run(ctx context.Context, items []models.InventoryItem, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	startTime := p.now()
	if strings.TrimSpace(opts.Season) == "" {
		opts.Season = SeasonAt(startTime)
	}
	summary := inventory.Summarize(items)
	lowStock := inventory.LowStock(items)

	keywords := trend.ExtractKeywords(inventory.ProductNames(items), opts.AdditionalKeywords)
	logger.Debug("Extracted %d keywords from %d items", len(keywords), len(items))

	trends := p.deps.Scorer.Score(ctx, keywords, opts.MinConfidence, opts.MaxKeywords)
	synthetic := false
	if len(trends) == 0 && len(keywords) > 0 {
		logger.Warn("No trend met the confidence threshold, using placeholder records")
		trends = p.deps.Sampler.Synthesize(keywords, opts.FallbackSampleSize)
		synthetic = true
	}
	logger.Info("Scored %d trends (synthetic: %t)", len(trends), synthetic)

	top := trends
	if len(top) > TopTrends {
		top = top[:TopTrends]
	}

	recommendations, err := p.deps.Composer.Compose(ctx, composer.Request{
		Trends:         top,
		Synthetic:      synthetic,
		Season:         opts.Season,
		UpcomingEvents: opts.UpcomingEvents,
		Summary:        summary,
		LowStock:       lowStock,
	})
	if err != nil {
		logger.Error("Failed to compose recommendations: %v", err)
		recommendations = ""
	}

	res := &Result{
		InventorySummary: summary,
		TrendingProducts: top,
		Recommendations:  recommendations,
		LowStockCount:    len(lowStock),
		LowStockItems:    lowStock,
		Synthetic:        synthetic,
		GeneratedAt:      startTime,
		AllTrends:        trends,
		Season:           opts.Season,
		UpcomingEvents:   opts.UpcomingEvents,
	}

	if p.deps.Renderer != nil {
		html, err := p.deps.Renderer.HTMLString(res.ReportData())
		if err != nil {
			err = fmt.Errorf("failed to render report: %w", err)
			p.notifyError(err)
			return nil, err
		}
		res.HTML = html
		p.archive(res)
	}

	p.notify(res)

	logger.Info("Analysis completed in %v", p.now().Sub(startTime))
	return res, nil
}

func (p *Pipeline) archive(res *Result) {
	if p.deps.Store == nil {
		return
	}
	rep := &models.Report{
		ID:         uuid.NewString(),
		CreatedAt:  res.GeneratedAt,
		Summary:    res.InventorySummary,
		TrendCount: len(res.AllTrends),
		Synthetic:  res.Synthetic,
		HTML:       res.HTML,
	}
	if len(res.TrendingProducts) > 0 {
		rep.TopKeyword = res.TrendingProducts[0].Keyword
	}
	if err := p.deps.Store.AddReport(rep); err != nil {
		logger.Error("Failed to archive report: %v", err)
		return
	}
	res.ReportID = rep.ID
	res.ReportURL = p.deps.ReportBaseURL + "/reports/" + rep.ID
	logger.Debug("Archived report %s", rep.ID)
}

func (p *Pipeline) notify(res *Result) {
	if p.deps.Notifier == nil {
		return
	}
	err := p.deps.Notifier.SendDigest(telegram.Digest{
		GeneratedAt: res.GeneratedAt,
		Summary:     res.InventorySummary,
		Trends:      res.TrendingProducts,
		LowStock:    res.LowStockItems,
		Synthetic:   res.Synthetic,
		ReportURL:   res.ReportURL,
	})
	if err != nil {
		logger.Error("Failed to send Telegram digest: %v", err)
		return
	}
	logger.Info("Sent Telegram digest")
}

func (p *Pipeline) notifyError(runErr error) {
	if p.deps.Notifier == nil {
		return
	}
	if err := p.deps.Notifier.SendError(runErr); err != nil {
		logger.Error("Failed to send Telegram error alert: %v", err)
	}
}
