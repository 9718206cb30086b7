package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/atim-dev/atim/internal/output"
	"github.com/atim-dev/atim/internal/storage"
)

func (a *app) newReportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect archived reports",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List archived reports, newest first",
		Args:    cobra.NoArgs,
		RunE:    a.runReportsList,
	}
	list.Flags().Int("limit", 20, "maximum number of reports to list")
	list.Flags().Bool("json", false, "output as JSON")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print or save the HTML of an archived report",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runReportsShow,
	}
	show.Flags().StringP("output", "o", "", "write the HTML to this path instead of stdout")

	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) openArchive() (*storage.Storage, error) {
	if !a.cfg.Storage.Enabled {
		return nil, errors.New("report archive is disabled (storage.enabled is false)")
	}
	store, err := openStore(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func (a *app) runReportsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.ListReports(limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	printer := a.printer(cmd)
	if len(reports) == 0 {
		printer.Info("No reports archived yet.")
		return nil
	}

	printer.Header("Archived Reports")
	table := output.NewTable(printer.Out(), []string{"ID", "Created", "Items", "Low Stock", "Trends", "Top Keyword", "Data"})
	for _, r := range reports {
		data := "live"
		if r.Synthetic {
			data = printer.Dim("placeholder")
		}
		table.AddRow(
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(r.Summary.TotalItems),
			strconv.Itoa(r.Summary.LowStockItems),
			strconv.Itoa(r.TrendCount),
			r.TopKeyword,
			data,
		)
	}
	return table.Render()
}

func (a *app) runReportsShow(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("output")

	store, err := a.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	rep, err := store.GetReport(args[0])
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), rep.HTML)
		return err
	}
	if err := os.WriteFile(outPath, []byte(rep.HTML), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	a.printer(cmd).Success("Report %s written to %s", rep.ID, outPath)
	return nil
}
