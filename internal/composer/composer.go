// Package composer turns scored trends and inventory context into restocking
// recommendations.
package composer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/models"
)

// Request is everything a composer may use. Season and events are supplied by
// the caller for each run.
type Request struct {
	Trends         []models.TrendRecord
	Synthetic      bool
	Season         string
	UpcomingEvents []string
	Summary        models.InventorySummary
	LowStock       []models.InventoryItem
}

// Composer writes Markdown recommendations.
type Composer interface {
	Compose(ctx context.Context, req Request) (string, error)
}

// Fallback uses Secondary whenever Primary fails or returns nothing.
type Fallback struct {
	Primary   Composer
	Secondary Composer
}

func (f Fallback) Compose(ctx context.Context, req Request) (string, error) {
	if f.Primary != nil {
		text, err := f.Primary.Compose(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err != nil {
			logger.Warn("Recommendation service failed, using template: %v", err)
		} else {
			logger.Warn("Recommendation service returned no text, using template")
		}
	}
	return f.Secondary.Compose(ctx, req)
}

var fencePattern = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")

// Clean strips code fences, stray carriage returns and repeated blank lines
// from generated text.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = fencePattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// BuildPrompt renders the request as instructions for a language model.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are an inventory planning assistant for a footwear retailer.\n")
	b.WriteString("Write concise restocking recommendations in Markdown with these sections: ")
	b.WriteString("\"Restock Now\", \"Reduce or Discount\", \"Watch List\" and \"Event Opportunities\".\n\n")

	fmt.Fprintf(&b, "Current season: %s\n", orNone(req.Season))
	fmt.Fprintf(&b, "Upcoming events: %s\n\n", orNone(strings.Join(req.UpcomingEvents, ", ")))

	fmt.Fprintf(&b, "Inventory: %d products, %d low on stock, total value $%.2f\n\n",
		req.Summary.TotalItems, req.Summary.LowStockItems, req.Summary.TotalValue)

	if req.Synthetic {
		b.WriteString("Note: no live trend data was available; the figures below are placeholders. Say so and keep advice general.\n\n")
	}

	b.WriteString("Trending keywords (confidence 0-100, velocity is change in interest):\n")
	if len(req.Trends) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range req.Trends {
		fmt.Fprintf(&b, "- %s: %s, confidence %.1f, velocity %+.1f, strength %.1f, peak %.1f\n",
			t.Keyword, t.Status, t.Confidence, t.Velocity, t.Strength, t.PeakValue)
	}

	if len(req.LowStock) > 0 {
		b.WriteString("\nLow stock items (current / reorder point):\n")
		for _, item := range req.LowStock {
			fmt.Fprintf(&b, "- %s: %d / %d\n", item.ProductName, item.CurrentStock, item.ReorderPoint)
		}
	}

	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
