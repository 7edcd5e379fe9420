// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/pdiddy/sheetdoc/internal/console"
	"github.com/pdiddy/sheetdoc/internal/export"
	"github.com/pdiddy/sheetdoc/internal/retry"
	"github.com/pdiddy/sheetdoc/pkg/types"
)

// Renderer turns a region into an image.
type Renderer interface {
	Render(ctx context.Context, region *types.Region) (image.Image, error)
}

// Sink is the export.Sink backed by DOCX files.
type Sink struct {
	writer   *Writer
	renderer Renderer
	policy   retry.Policy
	log      console.Logger
}

var _ export.Sink = (*Sink)(nil)

// NewSink returns a Sink. It takes ownership of w, and of r when r is an
// io.Closer; both are released by Close.
func NewSink(w *Writer, r Renderer, policy retry.Policy, log console.Logger) *Sink {
	if log == nil {
		log = console.Discard
	}
	return &Sink{writer: w, renderer: r, policy: policy, log: log}
}

// PolicyFor derives the render retry policy from a job.
func PolicyFor(job types.ExportJob) retry.Policy {
	return retry.Policy{
		Attempts: job.MaxRetries,
		Backoff:  job.RetryBackoff,
		Timeout:  job.RenderTimeout,
	}
}

// AppendAndPersist opens or creates the document at path and appends one
// figure under heading. The render-and-insert step is retried per the
// policy; an attempt that fails leaves nothing in the document. The
// document is saved and closed whether or not the step succeeded.
func (s *Sink) AppendAndPersist(ctx context.Context, path, heading string, region *types.Region, widthCm float64) export.AppendOutcome {
	var out export.AppendOutcome

	doc, err := s.writer.OpenOrCreate(path)
	if err != nil {
		out.PersistErr = err
		return out
	}

	out.Attempts, out.RenderErr = retry.Do(ctx, s.policy,
		func(ctx context.Context, _ int) error {
			return s.insert(ctx, doc, heading, region, widthCm)
		},
		func(attempt int, err error) {
			s.log.Warnf("attempt %d for %s failed, retrying: %v", attempt, region.Name, err)
		},
	)

	var persistErrs []error
	if err := doc.Save(path); err != nil {
		persistErrs = append(persistErrs, err)
	}
	if err := doc.Close(); err != nil {
		persistErrs = append(persistErrs, fmt.Errorf("closing %s: %w", path, err))
	}
	out.PersistErr = errors.Join(persistErrs...)
	return out
}

// insert is one render attempt.
func (s *Sink) insert(ctx context.Context, doc *Doc, heading string, region *types.Region, widthCm float64) error {
	img, err := s.renderer.Render(ctx, region)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", region.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = doc.AppendFigure(heading, img, widthCm)
	return err
}

// Close releases the renderer, then the writer.
func (s *Sink) Close() error {
	var errs []error
	if c, ok := s.renderer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing renderer: %w", err))
		}
	}
	if err := s.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing writer: %w", err))
	}
	return errors.Join(errs...)
}
