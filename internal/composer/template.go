package composer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/atim-dev/atim/internal/models"
)

// TemplateComposer writes rule-based recommendations without calling out.
type TemplateComposer struct{}

func (TemplateComposer) Compose(_ context.Context, req Request) (string, error) {
	var b strings.Builder

	if req.Synthetic {
		b.WriteString("> Live trend data was unavailable; trend figures are placeholders.\n\n")
	}

	var rising, declining, peaking, stable []models.TrendRecord
	for _, t := range req.Trends {
		switch t.Status {
		case models.StatusRising:
			rising = append(rising, t)
		case models.StatusDeclining:
			declining = append(declining, t)
		case models.StatusPeaking:
			peaking = append(peaking, t)
		default:
			stable = append(stable, t)
		}
	}

	low := make(map[string]models.InventoryItem, len(req.LowStock))
	for _, item := range req.LowStock {
		low[strings.ToLower(strings.TrimSpace(item.ProductName))] = item
	}

	b.WriteString("## Restock Now\n\n")
	if len(rising) == 0 && len(req.LowStock) == 0 {
		b.WriteString("- Nothing urgent this cycle.\n")
	}
	for _, t := range rising {
		line := fmt.Sprintf("- **%s** is rising (velocity %+.1f, confidence %.1f).", title(t.Keyword), t.Velocity, t.Confidence)
		if item, ok := low[t.Keyword]; ok {
			line += fmt.Sprintf(" Stock is %d against a reorder point of %d: reorder immediately.", item.CurrentStock, item.ReorderPoint)
			delete(low, t.Keyword)
		} else {
			line += " Increase the next order."
		}
		b.WriteString(line + "\n")
	}
	for _, item := range req.LowStock {
		key := strings.ToLower(strings.TrimSpace(item.ProductName))
		if _, ok := low[key]; !ok {
			continue
		}
		urgency := "reorder"
		if item.Urgent() {
			urgency = "urgent reorder"
		}
		fmt.Fprintf(&b, "- **%s**: %d left (reorder point %d), %s.\n", item.ProductName, item.CurrentStock, item.ReorderPoint, urgency)
	}

	b.WriteString("\n## Reduce or Discount\n\n")
	if len(declining) == 0 {
		b.WriteString("- No declining keywords.\n")
	}
	for _, t := range declining {
		fmt.Fprintf(&b, "- **%s** is declining (velocity %+.1f). Hold orders and consider a promotion.\n", title(t.Keyword), t.Velocity)
	}

	b.WriteString("\n## Watch List\n\n")
	if len(peaking)+len(stable) == 0 {
		b.WriteString("- Nothing to watch.\n")
	}
	for _, t := range peaking {
		fmt.Fprintf(&b, "- **%s** is peaking at strength %.1f. Keep stock steady; demand may turn.\n", title(t.Keyword), t.Strength)
	}
	for _, t := range stable {
		fmt.Fprintf(&b, "- **%s** is stable. Maintain current levels.\n", title(t.Keyword))
	}

	if len(req.UpcomingEvents) > 0 || req.Season != "" {
		b.WriteString("\n## Event Opportunities\n\n")
		if req.Season != "" {
			fmt.Fprintf(&b, "- Season: %s. Feature seasonal lines on the storefront.\n", req.Season)
		}
		for _, e := range req.UpcomingEvents {
			fmt.Fprintf(&b, "- %s: bundle rising products into a themed promotion.\n", e)
		}
	}

	return strings.TrimSpace(b.String()), nil
}

func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
