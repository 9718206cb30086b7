package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atim-dev/atim/internal/analysis"
	"github.com/atim-dev/atim/internal/inventory"
	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/output"
	"github.com/atim-dev/atim/internal/report"
	"github.com/atim-dev/atim/internal/storage"
	"github.com/atim-dev/atim/internal/trend"
)

func (a *app) newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <inventory.csv>",
		Short: "Analyze an inventory file against current trends",
		Long: `Analyze loads an inventory CSV, scores each product keyword against the
trend source and prints the ranked trends, recommendations and low stock alerts.

Examples:
  atim analyze inventory.csv
  atim analyze inventory.csv --max-keywords 5 --min-confidence 30
  atim analyze inventory.csv --keyword "platform sandals" --event "Labor Day"
  atim analyze inventory.csv --json > result.json
  atim analyze inventory.csv --html report.html --markdown report.md`,
		Args: cobra.ExactArgs(1),
		RunE: a.runAnalyze,
	}

	cmd.Flags().Int("max-keywords", 15, "maximum number of keywords to score")
	cmd.Flags().Float64("min-confidence", 20.0, "minimum confidence (0-100) for a trend to be kept")
	cmd.Flags().StringSlice("keyword", nil, "additional keyword to score (repeatable)")
	cmd.Flags().String("season", "", "current season passed to the recommendations")
	cmd.Flags().StringSlice("event", nil, "upcoming event passed to the recommendations (repeatable)")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	cmd.Flags().String("markdown", "", "write a Markdown report to this path")
	cmd.Flags().String("html", "", "write the HTML report to this path")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	cmd.Flags().Bool("no-archive", false, "do not store the report in the archive")

	_ = a.v.BindPFlag("analysis.max_keywords", cmd.Flags().Lookup("max-keywords"))
	_ = a.v.BindPFlag("analysis.min_confidence", cmd.Flags().Lookup("min-confidence"))
	_ = a.v.BindPFlag("context.season", cmd.Flags().Lookup("season"))

	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	printer := a.printer(cmd)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	markdownPath, _ := cmd.Flags().GetString("markdown")
	htmlPath, _ := cmd.Flags().GetString("html")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	noArchive, _ := cmd.Flags().GetBool("no-archive")
	extraKeywords, _ := cmd.Flags().GetStringSlice("keyword")
	extraEvents, _ := cmd.Flags().GetStringSlice("event")

	opts := optionsFromConfig(a.cfg)
	opts.AdditionalKeywords = append(append([]string{}, opts.AdditionalKeywords...), extraKeywords...)
	opts.UpcomingEvents = append(append([]string{}, opts.UpcomingEvents...), extraEvents...)

	items, err := inventory.LoadFile(args[0])
	if err != nil {
		return err
	}
	logger.Info("Loaded %d items from %s", len(items), args[0])
	if len(trend.ExtractKeywords(inventory.ProductNames(items), nil)) == 0 {
		logger.Warn("Inventory names no products, scoring the default keyword list")
		opts.AdditionalKeywords = append(append([]string{}, a.cfg.Analysis.DefaultKeywords...), opts.AdditionalKeywords...)
	}

	var store *storage.Storage
	if !noArchive {
		store, err = openStore(a.cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
	}

	notifier, err := newNotifier(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}

	keywordCount := len(trend.ExtractKeywords(inventory.ProductNames(items), opts.AdditionalKeywords))
	if opts.MaxKeywords >= 0 && keywordCount > opts.MaxKeywords {
		keywordCount = opts.MaxKeywords
	}
	progress := output.NewProgress(cmd.ErrOrStderr(), keywordCount, "Fetching trends", !noProgress && !jsonOutput)
	fetcher := progressFetcher{Fetcher: newFetcher(a.cfg), progress: progress}

	pipeline, err := newPipeline(a.cfg, fetcher, store, notifier, a.cfg.Server.PublicURL)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, items, opts)
	progress.Finish()
	if err != nil {
		return err
	}

	if htmlPath != "" {
		if err := os.WriteFile(htmlPath, []byte(result.HTML), 0o644); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
	}
	if markdownPath != "" {
		if err := os.WriteFile(markdownPath, []byte(report.Markdown(result.ReportData())), 0o644); err != nil {
			return fmt.Errorf("failed to write Markdown report: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if err := printResult(printer, result); err != nil {
		return err
	}
	if htmlPath != "" {
		printer.Success("HTML report written to %s", htmlPath)
	}
	if markdownPath != "" {
		printer.Success("Markdown report written to %s", markdownPath)
	}
	if result.ReportURL != "" {
		printer.Success("Report archived as %s (%s)", result.ReportID, result.ReportURL)
	}
	return nil
}

func printResult(p *output.Printer, res *analysis.Result) error {
	p.Header("Inventory Overview")
	p.Print("Products:        %d", res.InventorySummary.TotalItems)
	p.Print("Low stock:       %d", res.InventorySummary.LowStockItems)
	p.Print("Inventory value: $%.2f", res.InventorySummary.TotalValue)

	p.Header("Trending Products")
	if res.Synthetic {
		p.Warning("Live trend data was unavailable; showing placeholder figures")
	}
	if len(res.TrendingProducts) == 0 {
		p.Print("No trends met the confidence threshold.")
	} else {
		table := output.NewTable(p.Out(), []string{"#", "Keyword", "Status", "Confidence", "Velocity", "Strength", "Current", "Peak"})
		for i, t := range res.TrendingProducts {
			table.AddRow(
				strconv.Itoa(i+1),
				p.Bold(t.Keyword),
				p.Status(t.Status),
				fmt.Sprintf("%.1f", t.Confidence),
				p.Velocity(t.Velocity),
				fmt.Sprintf("%.1f", t.Strength),
				fmt.Sprintf("%.1f", t.CurrentValue),
				fmt.Sprintf("%.1f", t.PeakValue),
			)
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render trend table: %w", err)
		}
	}

	p.Header("Recommendations")
	if strings.TrimSpace(res.Recommendations) == "" {
		p.Print("No recommendations.")
	} else {
		p.Print("%s", res.Recommendations)
	}

	if len(res.LowStockItems) > 0 {
		p.Header("Low Stock Alerts")
		table := output.NewTable(p.Out(), []string{"Product", "Stock", "Reorder Point", "Action"})
		for _, item := range res.LowStockItems {
			table.AddRow(
				item.ProductName,
				strconv.Itoa(item.CurrentStock),
				strconv.Itoa(item.ReorderPoint),
				p.Action(item.Urgent()),
			)
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render low stock table: %w", err)
		}
	}
	return nil
}
