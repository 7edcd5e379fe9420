// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf converts output documents to PDF next to the source file.
// Conversion is one-shot: no retries, one status line per document.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Status is the outcome of converting one document.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Converter renders a DOCX file to PDF bytes written to w.
type Converter interface {
	Convert(ctx context.Context, docxPath string, w io.Writer) error
}

// Options controls a batch conversion.
type Options struct {
	// Force reconverts documents whose PDF is newer than the DOCX.
	Force bool
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// OutputPath returns the PDF path for a document.
func OutputPath(docxPath string) string {
	return strings.TrimSuffix(docxPath, filepath.Ext(docxPath)) + ".pdf"
}

// ConvertDocument converts one document, writing <name>.pdf beside it.
// A PDF newer than its document is left alone unless opts.Force is set.
func ConvertDocument(ctx context.Context, c Converter, docxPath string, opts Options, w io.Writer) Status {
	base := filepath.Base(docxPath)
	pdfPath := OutputPath(docxPath)

	src, err := os.Stat(docxPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}
	if !opts.Force {
		if dst, err := os.Stat(pdfPath); err == nil && !dst.ModTime().Before(src.ModTime()) {
			fmt.Fprintf(w, "skipped: %s (up to date)\n", base)
			return StatusSkipped
		}
	}

	var buf bytes.Buffer
	if err := c.Convert(ctx, docxPath, &buf); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		fmt.Fprintf(w, "failed:  %s (converter output is not a PDF)\n", base)
		return StatusFailed
	}

	if err := writeFile(pdfPath, buf.Bytes()); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "converted: %s -> %s\n", base, filepath.Base(pdfPath))
	return StatusConverted
}

// ConvertBatch converts every document in paths, printing per-file status
// to w and returning a summary. It stops early only when ctx ends.
func ConvertBatch(ctx context.Context, c Converter, paths []string, opts Options, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		switch ConvertDocument(ctx, c, p, opts, w) {
		case StatusConverted:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// FindDocuments lists the .docx files directly inside dir, skipping
// temporary and lock files.
func FindDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".docx") {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
