// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document appends rendered regions to DOCX files.
//
// A Writer plays the role of the authoring application: it is created once
// per run, hands out one Doc per contribution and is released at the end.
// Each Doc is opened (or created), appended to, saved and closed before the
// next contribution, so an interrupted run loses at most the contribution in
// flight.
package document

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/unidoc/unioffice/common"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
	"github.com/unidoc/unioffice/schema/soo/wml"

	"github.com/pdiddy/sheetdoc/internal/render"
)

// HeadingStyle is the paragraph style applied to page headings.
const HeadingStyle = "Heading2"

// ErrClosed is returned by a Writer or Doc used after Close.
var ErrClosed = errors.New("document writer is closed")

// HeadingText wraps a page name in the heading marker.
func HeadingText(page string) string {
	return "【" + page + "】"
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// StagingDir holds rendered images until their document is saved.
	// Empty creates a private temporary directory, removed by Close.
	StagingDir string
}

// Writer opens output documents and stages their images.
type Writer struct {
	staging    string
	ownStaging bool

	mu     sync.Mutex
	seq    int
	closed bool
}

// NewWriter prepares the staging area.
func NewWriter(opts WriterOptions) (*Writer, error) {
	w := &Writer{staging: opts.StagingDir}
	if w.staging == "" {
		dir, err := os.MkdirTemp("", "sheetdoc-*")
		if err != nil {
			return nil, fmt.Errorf("creating staging directory: %w", err)
		}
		w.staging = dir
		w.ownStaging = true
	} else if err := os.MkdirAll(w.staging, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory %s: %w", w.staging, err)
	}
	return w, nil
}

// OpenOrCreate opens the document at path, or starts a new one when no
// file exists there. The heading style is added if the document lacks it.
func (w *Writer) OpenOrCreate(path string) (*Doc, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	var (
		doc     *document.Document
		created bool
	)
	switch _, err := os.Stat(path); {
	case err == nil:
		doc, err = document.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		doc = document.New()
		created = true
	default:
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}

	ensureHeadingStyle(doc)
	return &Doc{w: w, path: path, doc: doc, created: created}, nil
}

// Close removes staged images. Calling Close twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.ownStaging {
		return os.RemoveAll(w.staging)
	}
	return nil
}

// stage writes img as a PNG file that lives until the owning Doc closes.
func (w *Writer) stage(img image.Image) (string, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", ErrClosed
	}
	w.seq++
	path := filepath.Join(w.staging, fmt.Sprintf("region-%04d.png", w.seq))
	w.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("staging image: %w", err)
	}
	if err := render.EncodePNG(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encoding image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("staging image: %w", err)
	}
	return path, nil
}

func ensureHeadingStyle(doc *document.Document) {
	for _, s := range doc.Styles.Styles() {
		if s.StyleID() == HeadingStyle {
			return
		}
	}
	s := doc.Styles.AddStyle(HeadingStyle, wml.ST_StyleTypeParagraph, false)
	s.SetName("heading 2")
	s.SetBasedOn("Normal")
	s.SetNextStyle("Normal")
	s.SetPrimaryStyle(true)
	s.RunProperties().SetBold(true)
	s.RunProperties().SetSize(13 * measurement.Point)
}

// Doc is one open output document.
type Doc struct {
	w       *Writer
	path    string
	doc     *document.Document
	created bool
	staged  []string
	closed  bool
}

// Created reports whether the document did not exist on disk when opened.
func (d *Doc) Created() bool { return d.created }

// ParagraphCount returns the number of body paragraphs.
func (d *Doc) ParagraphCount() int { return len(d.doc.Paragraphs()) }

// Figure is an image appended by AppendFigure.
type Figure struct {
	inline document.InlineDrawing
	px     image.Point
	paras  []document.Paragraph

	// WidthCm and HeightCm are set by Normalize.
	WidthCm  float64
	HeightCm float64
}

// AppendFigure adds the heading paragraph (skipped when heading is empty),
// a paragraph holding img as an inline drawing widthCm wide, and a blank
// paragraph. Everything that can fail is checked before the image part is
// added, so a failed call leaves no media behind.
func (d *Doc) AppendFigure(heading string, img image.Image, widthCm float64) (*Figure, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	fig := &Figure{px: img.Bounds().Size()}
	if err := fig.checkWidth(widthCm); err != nil {
		return nil, err
	}

	staged, err := d.w.stage(img)
	if err != nil {
		return nil, err
	}
	d.staged = append(d.staged, staged)

	cimg, err := common.ImageFromFile(staged)
	if err != nil {
		return nil, fmt.Errorf("loading staged image: %w", err)
	}
	iref, err := d.doc.AddImage(cimg)
	if err != nil {
		return nil, fmt.Errorf("adding image: %w", err)
	}

	if heading != "" {
		p := d.doc.AddParagraph()
		p.SetStyle(HeadingStyle)
		p.AddRun().AddText(HeadingText(heading))
		fig.paras = append(fig.paras, p)
	}

	p := d.doc.AddParagraph()
	fig.paras = append(fig.paras, p)
	inline, err := p.AddRun().AddDrawingInline(iref)
	if err != nil {
		d.Discard(fig)
		return nil, fmt.Errorf("inserting image: %w", err)
	}
	fig.inline = inline
	fig.paras = append(fig.paras, d.doc.AddParagraph())

	if err := fig.Normalize(widthCm); err != nil {
		d.Discard(fig)
		return nil, err
	}
	return fig, nil
}

// ImageCount returns the number of image parts in the document.
func (d *Doc) ImageCount() int { return len(d.doc.Images) }

// Discard removes the paragraphs a figure added.
func (d *Doc) Discard(fig *Figure) {
	if fig == nil {
		return
	}
	for _, p := range fig.paras {
		d.doc.RemoveParagraph(p)
	}
	fig.paras = nil
}

// Normalize sets the figure's width to widthCm. The height follows the
// image's pixel aspect ratio.
func (f *Figure) Normalize(widthCm float64) error {
	if err := f.checkWidth(widthCm); err != nil {
		return err
	}
	f.WidthCm = widthCm
	f.HeightCm = widthCm * float64(f.px.Y) / float64(f.px.X)
	f.inline.SetSize(
		measurement.Distance(f.WidthCm)*measurement.Centimeter,
		measurement.Distance(f.HeightCm)*measurement.Centimeter,
	)
	return nil
}

func (f *Figure) checkWidth(widthCm float64) error {
	if widthCm <= 0 {
		return fmt.Errorf("image width must be positive, got %g cm", widthCm)
	}
	if f.px.X <= 0 || f.px.Y <= 0 {
		return errors.New("figure has no pixel size")
	}
	return nil
}

// Save writes the document to path through a temporary file in the same
// directory, so an existing document is replaced only by a complete one.
func (d *Doc) Save(path string) error {
	if d.closed {
		return ErrClosed
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sheetdoc-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := d.doc.SaveToFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// Close drops the in-memory document and its staged images.
func (d *Doc) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.doc = nil
	var errs []error
	for _, p := range d.staged {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	d.staged = nil
	return errors.Join(errs...)
}
