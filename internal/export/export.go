// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export walks the pages of a workbook, resolves the configured
// region names on each page and appends every resolved region to the output
// document of its topic.
//
// The run is strictly sequential. Contributions to one document are appended
// in (page ascending, region-list order). A missing region, a failed render
// or a failed save is recorded in the RunSummary and the run moves on; only
// a workbook that cannot be opened, an explicit abort policy, or a cancelled
// context end it early.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pdiddy/sheetdoc/internal/console"
	"github.com/pdiddy/sheetdoc/pkg/types"
)

// Source is an opened workbook.
type Source interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Page returns the page at a 1-based index.
	Page(index int) (types.Page, error)

	// Resolve looks a region name up on a page. A name that resolves to
	// nothing returns (nil, false); that is not an error.
	Resolve(page types.Page, name string) (*types.Region, bool)

	// Close releases the workbook.
	Close() error
}

// Opener opens the workbook at path.
type Opener func(path string) (Source, error)

// AppendOutcome reports what happened to one contribution.
type AppendOutcome struct {
	// Attempts is the number of render attempts made.
	Attempts int

	// RenderErr is set when every attempt failed. The document was still
	// persisted unless PersistErr is also set.
	RenderErr error

	// PersistErr is set when saving or closing the document failed.
	PersistErr error
}

// Sink appends rendered regions to output documents. It holds the
// authoring application for the whole run.
type Sink interface {
	// AppendAndPersist opens or creates the document at path, appends the
	// heading (skipped when empty) and the rendered region scaled to
	// widthCm, then saves and closes it.
	AppendAndPersist(ctx context.Context, path, heading string, region *types.Region, widthCm float64) AppendOutcome

	// Close releases the authoring application.
	Close() error
}

// sleep is swapped by tests to observe settling delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Coordinator runs one ExportJob against one Source and one Sink.
type Coordinator struct {
	job  types.ExportJob
	open Opener
	sink Sink
	log  console.Logger
}

// New returns a Coordinator. The coordinator takes ownership of sink and
// closes it when Run returns. A nil logger discards output.
func New(job types.ExportJob, open Opener, sink Sink, log console.Logger) *Coordinator {
	if log == nil {
		log = console.Discard
	}
	return &Coordinator{job: job, open: open, sink: sink, log: log}
}

// Run executes the job. The summary is always non-nil, even when an error
// is returned, so callers can report partial progress.
func (c *Coordinator) Run(ctx context.Context) (*types.RunSummary, error) {
	summary := &types.RunSummary{
		Workbook:  c.job.Workbook,
		OutputDir: c.job.OutputDir,
		StartedAt: time.Now().UTC(),
	}
	defer func() { summary.FinishedAt = time.Now().UTC() }()

	var src Source
	defer func() { c.release(src, summary) }()

	if err := c.job.Validate(); err != nil {
		return summary, err
	}
	if err := os.MkdirAll(c.job.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("creating output directory %s: %w", c.job.OutputDir, err)
	}

	src, err := c.open(c.job.Workbook)
	if err != nil {
		c.log.Errorf("cannot open workbook %s: %v", c.job.Workbook, err)
		return summary, &FatalOpenError{Path: c.job.Workbook, Err: err}
	}

	err = c.walk(ctx, src, summary)
	if err != nil {
		summary.Aborted = true
		summary.AbortReason = err.Error()
	}
	return summary, err
}

// walk visits pages StartPage..PageCount and the configured regions on each.
func (c *Coordinator) walk(ctx context.Context, src Source, summary *types.RunSummary) error {
	touched := make(map[string]bool)
	pages := src.PageCount()

	for i := c.job.StartPage; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := src.Page(i)
		if err != nil {
			c.log.Warnf("skipping page %d: %v", i, err)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		summary.PagesVisited++
		c.log.Infof("\nprocessing page %d: %s", page.Index, page.Name)

		for _, name := range c.job.Regions {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := c.exportRegion(ctx, src, page, name, touched, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// exportRegion resolves one region on one page and hands it to the sink.
// It returns an error only when the run must stop.
func (c *Coordinator) exportRegion(ctx context.Context, src Source, page types.Page, name string, touched map[string]bool, summary *types.RunSummary) error {
	ref := types.RegionRef{PageIndex: page.Index, PageName: page.Name, Region: name}
	rec := types.Record{
		Seq:       len(summary.Records) + 1,
		PageIndex: page.Index,
		PageName:  page.Name,
		Region:    name,
	}

	region, ok := src.Resolve(page, name)
	if !ok || region == nil {
		c.log.Warnf("region %s not found on %s", name, page.Name)
		summary.NotFound = append(summary.NotFound, ref)
		rec.Outcome = types.OutcomeNotFound
		summary.Records = append(summary.Records, rec)
		return nil
	}

	rec.Topic = Topic(name)
	rec.Document = DocumentPath(c.job.OutputDir, name)

	heading := page.Name
	if c.job.OmitHeading {
		heading = ""
	}
	out := c.sink.AppendAndPersist(ctx, rec.Document, heading, region, c.job.ImageWidthCm)
	rec.Attempts = out.Attempts

	var renderErr *RenderError
	switch {
	case out.RenderErr != nil:
		renderErr = &RenderError{Document: rec.Document, Region: name, Attempts: out.Attempts, Err: out.RenderErr}
		c.log.Errorf("%v", renderErr)
		summary.RenderFailures = append(summary.RenderFailures, types.Failure{
			RegionRef: ref, Document: rec.Document, Attempts: out.Attempts, Error: out.RenderErr.Error(),
		})
		rec.Outcome = types.OutcomeRenderFailed
		rec.Error = out.RenderErr.Error()
	case out.PersistErr != nil:
		rec.Outcome = types.OutcomePersistFailed
	default:
		rec.Outcome = types.OutcomeContributed
		summary.Contributions++
		c.log.Infof("exported %s -> %s", name, rec.Document)
	}

	if out.PersistErr != nil {
		perr := &PersistError{Document: rec.Document, Err: out.PersistErr}
		c.log.Errorf("%v", perr)
		summary.PersistFailures = append(summary.PersistFailures, types.Failure{
			RegionRef: ref, Document: rec.Document, Error: out.PersistErr.Error(),
		})
		if rec.Error == "" {
			rec.Error = out.PersistErr.Error()
		}
	} else if !touched[rec.Document] {
		touched[rec.Document] = true
		summary.Documents = append(summary.Documents, rec.Document)
	}
	summary.Records = append(summary.Records, rec)

	if renderErr != nil && c.job.AbortOnRenderFailure {
		return &AbortError{Cause: renderErr}
	}

	// The renderer needs this quantum to let go of the previous document.
	return sleep(ctx, c.job.SettleDelay)
}

// release closes the sink, then the workbook. Failures become warnings.
func (c *Coordinator) release(src Source, summary *types.RunSummary) {
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			c.log.Warnf("releasing document writer: %v", err)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("releasing document writer: %v", err))
		}
	}
	if src != nil {
		if err := src.Close(); err != nil {
			c.log.Warnf("releasing workbook: %v", err)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("releasing workbook: %v", err))
		}
	}
}

// IsFatal reports whether err ended a run before any contribution.
func IsFatal(err error) bool {
	var open *FatalOpenError
	return errors.As(err, &open) || errors.Is(err, types.ErrInvalidJob)
}
