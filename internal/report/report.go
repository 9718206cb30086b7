// Package report renders analysis results as HTML pages and Markdown documents.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/atim-dev/atim/internal/models"
)

// Data is the view model shared by both renderers.
type Data struct {
	GeneratedAt     time.Time
	Summary         models.InventorySummary
	Trends          []models.TrendRecord
	LowStock        []models.InventoryItem
	Recommendations string
	Synthetic       bool
	Season          string
	UpcomingEvents  []string
}

// Renderer holds the parsed page template and the HTML sanitizer policy.
type Renderer struct {
	page   *template.Template
	policy *bluemonday.Policy
}

// NewRenderer parses the page template.
func NewRenderer() (*Renderer, error) {
	page, err := template.New("report").Funcs(template.FuncMap{
		"statusClass": statusClass,
		"signed":      func(v float64) string { return fmt.Sprintf("%+.1f", v) },
		"fixed":       func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"money":       func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"stamp":       func(t time.Time) string { return t.Format("2006-01-02 15:04 MST") },
		"inc":         func(i int) int { return i + 1 },
		"join":        strings.Join,
	}).Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{page: page, policy: policy}, nil
}

type pageView struct {
	Data
	RecommendationsHTML template.HTML
}

// HTML writes a standalone report page to w.
func (r *Renderer) HTML(w io.Writer, d Data) error {
	view := pageView{
		Data:                d,
		RecommendationsHTML: r.markdownToHTML(d.Recommendations),
	}
	if err := r.page.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// HTMLString is HTML rendered into memory, as stored in the report archive.
func (r *Renderer) HTMLString(d Data) (string, error) {
	var buf bytes.Buffer
	if err := r.HTML(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) markdownToHTML(md string) template.HTML {
	raw := blackfriday.Run([]byte(md))
	// Sanitized output is safe to embed unescaped.
	return template.HTML(r.policy.SanitizeBytes(raw))
}

// Markdown renders the report as a Markdown document.
func Markdown(d Data) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Trend & Inventory Report\n\n_Generated %s_\n\n", d.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if d.Synthetic {
		b.WriteString("> Live trend data was unavailable. Trend figures below are placeholders.\n\n")
	}

	b.WriteString("## Inventory\n\n")
	fmt.Fprintf(&b, "- Products: %d\n- Low stock: %d\n- Total value: $%.2f\n", d.Summary.TotalItems, d.Summary.LowStockItems, d.Summary.TotalValue)
	if d.Season != "" {
		fmt.Fprintf(&b, "- Season: %s\n", d.Season)
	}
	if len(d.UpcomingEvents) > 0 {
		fmt.Fprintf(&b, "- Upcoming events: %s\n", strings.Join(d.UpcomingEvents, ", "))
	}

	b.WriteString("\n## Trends\n\n")
	if len(d.Trends) == 0 {
		b.WriteString("No trends met the confidence threshold.\n")
	} else {
		b.WriteString("| # | Keyword | Status | Confidence | Velocity | Strength | Current | Peak |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for i, t := range d.Trends {
			fmt.Fprintf(&b, "| %d | %s | %s | %.1f | %+.1f | %.1f | %.1f | %.1f |\n",
				i+1, escapePipes(t.Keyword), t.Status, t.Confidence, t.Velocity, t.Strength, t.CurrentValue, t.PeakValue)
		}
	}

	b.WriteString("\n## Recommendations\n\n")
	if strings.TrimSpace(d.Recommendations) == "" {
		b.WriteString("No recommendations.\n")
	} else {
		b.WriteString(strings.TrimSpace(d.Recommendations) + "\n")
	}

	if len(d.LowStock) > 0 {
		b.WriteString("\n## Low Stock\n\n")
		b.WriteString("| Product | Stock | Reorder Point | Action |\n|---|---|---|---|\n")
		for _, item := range d.LowStock {
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", escapePipes(item.ProductName), item.CurrentStock, item.ReorderPoint, Action(item))
		}
	}

	return b.String()
}

// Action labels a low stock item as URGENT or REORDER.
func Action(item models.InventoryItem) string {
	if item.Urgent() {
		return "URGENT"
	}
	return "REORDER"
}

func statusClass(s models.Status) string {
	return "status-" + strings.ToLower(string(s))
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
