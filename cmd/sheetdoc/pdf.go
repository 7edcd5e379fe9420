// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sheetdoc/internal/pdf"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [documents...]",
	Short: "Convert output documents to PDF",
	Long: `Pdf converts each document to <name>.pdf beside it, using LibreOffice in a
docker or podman container with networking disabled. Without arguments every
.docx file in --output-dir is converted. A PDF newer than its document is
skipped unless --force is set. Failed documents are reported, not retried.`,
	RunE: runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	paths := args
	if len(paths) == 0 {
		dir := stringSetting(cmd, "output-dir")
		found, err := pdf.FindDocuments(dir)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No documents found in %s\n", dir)
			return nil
		}
		paths = found
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := convertDocuments(ctx, pdfConfig(cmd), cmd, paths, pdf.Options{Force: force})
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed conversion", result.Failed)
	}
	return nil
}

func init() {
	pdfCmd.Flags().String("output-dir", "output", "directory searched when no documents are given")
	pdfCmd.Flags().String("pdf-image", pdf.DefaultImage, "container image providing LibreOffice")
	pdfCmd.Flags().Bool("force", false, "reconvert documents whose PDF is up to date")

	rootCmd.AddCommand(pdfCmd)
}
