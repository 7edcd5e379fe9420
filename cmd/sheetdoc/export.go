// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sheetdoc/internal/console"
	"github.com/pdiddy/sheetdoc/internal/container"
	"github.com/pdiddy/sheetdoc/internal/document"
	"github.com/pdiddy/sheetdoc/internal/export"
	"github.com/pdiddy/sheetdoc/internal/ledger"
	"github.com/pdiddy/sheetdoc/internal/pdf"
	"github.com/pdiddy/sheetdoc/internal/render"
	"github.com/pdiddy/sheetdoc/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export [workbook]",
	Short: "Append named regions of every page to per-topic documents",
	Long: `Export opens the workbook and, for every page from --start-page on, looks up
each name in --regions. A name defined on the page (or for the whole workbook)
is rendered to an image and appended to <output-dir>/<topic>.docx under a
【page name】 heading. Names that do not exist on a page are skipped.

A region that still fails to render after --max-retries attempts is recorded
and skipped, or stops the run when --abort-on-render-failure is set. A report
is written to <output-dir>/export-summary.yaml and the run is added to the
history ledger.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

// exportFlags are bound to viper keys so they can come from the config file
// or SHEETDOC_* variables.
var exportFlags = []string{
	"workbook", "output-dir", "regions", "start-page", "image-width-cm",
	"settle-delay", "max-retries", "retry-backoff", "render-timeout",
	"resolution-order", "abort-on-render-failure", "omit-heading",
	"font", "font-size", "dpi", "max-image-px", "pdf",
}

func runExport(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("workbook", args[0])
	}

	job, err := jobFromConfig()
	if err != nil {
		return err
	}
	job = job.WithDefaults()
	if err := job.Validate(); err != nil {
		return err
	}

	out := newReporter(cmd)
	printBanner(out, job)

	ctx, stop := signalContext(cmd)
	defer stop()

	renderer, err := render.New(renderConfigFromViper())
	if err != nil {
		return err
	}
	writer, err := document.NewWriter(document.WriterOptions{})
	if err != nil {
		renderer.Close()
		return err
	}
	sink := document.NewSink(writer, renderer, document.PolicyFor(job), out)

	coord := export.New(job, export.WorkbookOpener(job.ResolutionOrder), sink, out)
	summary, runErr := coord.Run(ctx)

	if err := export.WriteSummary(summary, filepath.Join(job.OutputDir, export.SummaryFile)); err != nil {
		out.Warnf("writing summary: %v", err)
	}
	recordHistory(cmd, out, job, summary, runErr)
	printResult(out, summary, runErr)

	var pdfFailed bool
	pdfCfg := pdfConfig(cmd)
	if pdfCfg.Enabled && len(summary.Documents) > 0 {
		result, err := convertDocuments(ctx, pdfCfg, cmd, summary.Documents, pdf.Options{})
		if err != nil {
			out.Errorf("PDF conversion: %v", err)
			pdfFailed = true
		} else {
			pdfFailed = result.HasFailures()
		}
	}

	switch {
	case runErr != nil:
		return runErr
	case summary.HasFailures():
		return fmt.Errorf("%d render failure(s), %d persist failure(s)",
			len(summary.RenderFailures), len(summary.PersistFailures))
	case pdfFailed:
		return errors.New("PDF conversion failed")
	}
	return nil
}

// jobFromConfig builds an ExportJob from the merged flag, env and config
// file values. Defaults are not applied.
func jobFromConfig() (types.ExportJob, error) {
	order, err := types.ParseResolutionOrder(viper.GetString("resolution_order"))
	if err != nil {
		return types.ExportJob{}, err
	}

	// SHEETDOC_REGIONS arrives as one comma-separated string.
	var regions []string
	for _, entry := range viper.GetStringSlice("regions") {
		for _, r := range strings.Split(entry, ",") {
			if r = strings.TrimSpace(r); r != "" {
				regions = append(regions, r)
			}
		}
	}

	return types.ExportJob{
		Workbook:             viper.GetString("workbook"),
		OutputDir:            viper.GetString("output_dir"),
		Regions:              regions,
		StartPage:            viper.GetInt("start_page"),
		ImageWidthCm:         viper.GetFloat64("image_width_cm"),
		SettleDelay:          viper.GetDuration("settle_delay"),
		MaxRetries:           viper.GetInt("max_retries"),
		RetryBackoff:         viper.GetDuration("retry_backoff"),
		RenderTimeout:        viper.GetDuration("render_timeout"),
		ResolutionOrder:      order,
		AbortOnRenderFailure: viper.GetBool("abort_on_render_failure"),
		OmitHeading:          viper.GetBool("omit_heading"),
	}, nil
}

func renderConfigFromViper() types.RenderConfig {
	return types.RenderConfig{
		FontPath:   viper.GetString("font"),
		FontSizePt: viper.GetFloat64("font_size"),
		DPI:        viper.GetFloat64("dpi"),
		MaxWidthPx: viper.GetInt("max_image_px"),
	}
}

func printBanner(out console.Reporter, job types.ExportJob) {
	out.Headingf("sheetdoc export")
	out.Infof("workbook:      %s", job.Workbook)
	out.Infof("output folder: %s", job.OutputDir)
	out.Infof("regions:       %s", strings.Join(job.Regions, ", "))
	out.Infof("start page:    %d", job.StartPage)
}

func printResult(out console.Reporter, s *types.RunSummary, runErr error) {
	out.Infof("visited %d page(s), %d contribution(s) to %d document(s), %d region(s) not found in %s",
		s.PagesVisited, s.Contributions, s.DocumentCount(), len(s.NotFound), s.Duration().Round(time.Millisecond))
	for _, doc := range s.Documents {
		out.Infof("  %s (+%d)", filepath.Base(doc), s.ContributionsTo(doc))
	}
	for _, f := range s.RenderFailures {
		out.Errorf("render failed: %s on %s after %d attempt(s): %s", f.Region, f.PageName, f.Attempts, f.Error)
	}
	for _, f := range s.PersistFailures {
		out.Errorf("persist failed: %s: %s", filepath.Base(f.Document), f.Error)
	}
	for _, w := range s.Warnings {
		out.Warnf("%s", w)
	}

	switch {
	case runErr != nil:
		out.Errorf("export failed: %v", runErr)
	case s.HasFailures():
		out.Errorf("export finished with failures")
	default:
		out.Successf("export finished")
	}
}

// recordHistory adds the run to the ledger unless --no-ledger is set.
// Ledger problems are reported but never fail the export.
func recordHistory(cmd *cobra.Command, out console.Logger, job types.ExportJob, s *types.RunSummary, runErr error) {
	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); noLedger {
		return
	}
	path := ledgerPath(cmd, job.OutputDir)

	store, err := ledger.NewStore(path)
	if err != nil {
		out.Warnf("history ledger unavailable: %v", err)
		return
	}
	defer store.Close()

	id, err := store.RecordRun(context.Background(), s, runErr)
	if err != nil {
		out.Warnf("recording run: %v", err)
		return
	}
	out.Infof("recorded run #%d in %s", id, path)
}

// ledgerPath returns --ledger or the ledger key, falling back to the
// default location under outputDir.
func ledgerPath(cmd *cobra.Command, outputDir string) string {
	if p := stringSetting(cmd, "ledger"); p != "" {
		return p
	}
	return ledger.DefaultPath(outputDir)
}

func pdfConfig(cmd *cobra.Command) types.PDFConfig {
	return types.PDFConfig{
		Enabled: viper.GetBool("pdf"),
		Image:   stringSetting(cmd, "pdf-image"),
	}
}

// convertDocuments converts paths to PDF with the LibreOffice container.
func convertDocuments(ctx context.Context, cfg types.PDFConfig, cmd *cobra.Command, paths []string, opts pdf.Options) (pdf.BatchResult, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return pdf.BatchResult{}, err
	}
	conv, err := pdf.NewLibreOfficeConverter(rt, cfg.Image)
	if err != nil {
		return pdf.BatchResult{}, err
	}
	return pdf.ConvertBatch(ctx, conv, paths, opts, cmd.OutOrStdout()), nil
}

func init() {
	f := exportCmd.Flags()
	f.String("workbook", "", "path of the XLSX workbook (or pass it as the argument)")
	f.String("output-dir", "output", "directory that receives <topic>.docx files")
	f.StringSlice("regions", nil, "defined names to export from every page, in order (e.g. ACL_1,ACL_2,ACLN_1)")
	f.Int("start-page", 1, "1-based index of the first page to process")
	f.Float64("image-width-cm", types.DefaultImageWidthCm, "width every inserted image is scaled to")
	f.Duration("settle-delay", types.DefaultSettleDelay, "pause after each region attempt")
	f.Int("max-retries", types.DefaultMaxRetries, "render attempts per region")
	f.Duration("retry-backoff", types.DefaultRetryBackoff, "wait between render attempts")
	f.Duration("render-timeout", 0, "upper bound for one region's render attempts (0 = none)")
	f.String("resolution-order", string(types.PageFirst), "scope consulted first: page-first or workbook-first")
	f.Bool("abort-on-render-failure", false, "stop the run when a region cannot be rendered")
	f.Bool("omit-heading", false, "do not add the 【page】 heading before each image")
	f.String("font", "", "TTF/OTF/TTC font for cell text (default: Go Regular)")
	f.Float64("font-size", render.DefaultFontSizePt, "cell text size in points")
	f.Float64("dpi", render.DefaultDPI, "dots per inch used to rasterise regions")
	f.Int("max-image-px", render.DefaultMaxWidthPx, "downsize renderings wider than this (0 = never)")
	f.Bool("pdf", false, "convert touched documents to PDF after the run")
	f.String("pdf-image", pdf.DefaultImage, "container image providing LibreOffice")
	f.String("ledger", "", "history database (default: <output-dir>/.sheetdoc/history.db)")
	f.Bool("no-ledger", false, "do not record the run in the history ledger")

	bindFlags(f, exportFlags...)

	rootCmd.AddCommand(exportCmd)
}
