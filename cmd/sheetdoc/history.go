// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sheetdoc/internal/ledger"
	"github.com/pdiddy/sheetdoc/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past export runs from the history ledger",
	Long: `History reads the run ledger kept next to the output documents and lists
runs newest first. Use --run to show the records of one run, and --format
yaml or json to dump runs with all their records.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	runID, _ := cmd.Flags().GetInt64("run")
	outcome, _ := cmd.Flags().GetString("outcome")

	outputDir := stringSetting(cmd, "output-dir")
	store, err := ledger.NewStore(ledgerPath(cmd, outputDir))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	w := cmd.OutOrStdout()

	if runID > 0 {
		run, err := store.Run(ctx, runID)
		if err != nil {
			return err
		}
		records, err := store.Records(ctx, runID, types.Outcome(outcome))
		if err != nil {
			return err
		}
		formatRunRecords(w, run, records)
		return nil
	}

	opts := historyQueryOpts(cmd, outputDir)
	switch format {
	case "table", "":
		runs, err := store.Runs(ctx, opts)
		if err != nil {
			return err
		}
		formatRuns(w, runs)
		return nil
	case ledger.FormatYAML, ledger.FormatJSON:
		return store.Export(ctx, w, format, opts)
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml or json", format)
	}
}

func historyQueryOpts(cmd *cobra.Command, outputDir string) ledger.QueryOptions {
	workbook, _ := cmd.Flags().GetString("workbook")
	doc, _ := cmd.Flags().GetString("document")
	limit, _ := cmd.Flags().GetInt("limit")

	// A bare file name refers to a document in the output directory.
	if doc != "" && filepath.Base(doc) == doc {
		doc = filepath.Join(outputDir, doc)
	}
	return ledger.QueryOptions{Workbook: workbook, Document: doc, Limit: limit}
}

func formatRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-20s  %-30s  %5s  %6s  %8s  %6s  %s\n",
		"Run", "Started", "Workbook", "Pages", "Added", "Missing", "Failed", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range runs {
		workbook := filepath.Base(r.Workbook)
		if len(workbook) > 30 {
			workbook = workbook[:27] + "..."
		}
		status := "ok"
		switch {
		case r.Aborted:
			status = "aborted"
		case r.Failed():
			status = "failed"
		}
		fmt.Fprintf(w, "%-5d  %-20s  %-30s  %5d  %6d  %8d  %6d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), workbook,
			r.PagesVisited, r.Contributions, r.NotFound, r.RenderFailures+r.PersistFailures, status)
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func formatRunRecords(w io.Writer, run *ledger.Run, records []types.Record) {
	fmt.Fprintf(w, "Run %d: %s -> %s\n", run.ID, run.Workbook, run.OutputDir)
	fmt.Fprintf(w, "Started %s, %d page(s), %d contribution(s)\n",
		run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.PagesVisited, run.Contributions)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	fmt.Fprintln(w)

	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-20s  %-16s  %-16s  %-8s  %s\n",
		"Seq", "Page", "Region", "Outcome", "Attempts", "Document")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range records {
		page := r.PageName
		if len(page) > 20 {
			page = page[:17] + "..."
		}
		doc := filepath.Base(r.Document)
		if r.Error != "" {
			doc += " (" + r.Error + ")"
		}
		fmt.Fprintf(w, "%-4d  %-20s  %-16s  %-16s  %-8d  %s\n",
			r.Seq, page, r.Region, r.Outcome, r.Attempts, doc)
	}
}

func init() {
	historyCmd.Flags().String("output-dir", "output", "output directory whose ledger is read")
	historyCmd.Flags().String("ledger", "", "history database (default: <output-dir>/.sheetdoc/history.db)")
	historyCmd.Flags().String("workbook", "", "only runs of this workbook path")
	historyCmd.Flags().String("document", "", "only runs that contributed to this document")
	historyCmd.Flags().Int("limit", 0, "maximum runs to list (0 = use default)")
	historyCmd.Flags().Int64("run", 0, "show the records of one run")
	historyCmd.Flags().String("outcome", "", "with --run, only records with this outcome (contributed, not_found, render_failed, persist_failed)")
	historyCmd.Flags().String("format", "table", "output format: table, yaml or json")

	rootCmd.AddCommand(historyCmd)
}
