// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unioffice/document"

	"github.com/pdiddy/sheetdoc/internal/console"
	"github.com/pdiddy/sheetdoc/internal/retry"
	"github.com/pdiddy/sheetdoc/pkg/types"
)

func init() {
	retry.BackoffScale = 0
}

// fakeRenderer fails the first failures calls, then returns a 200x100 image.
type fakeRenderer struct {
	failures int
	calls    int
	closed   int
}

func (f *fakeRenderer) Render(_ context.Context, _ *types.Region) (image.Image, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("renderer busy")
	}
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.NRGBA{R: 0x20, G: 0x60, B: 0xA0, A: 0xFF})
		}
	}
	return img, nil
}

func (f *fakeRenderer) Close() error {
	f.closed++
	return nil
}

func testRegion() *types.Region {
	return &types.Region{Name: "ACL_1", SheetName: "Summary", Ref: "A1:B2"}
}

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(WriterOptions{StagingDir: filepath.Join(t.TempDir(), "staging")})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func newTestSink(t *testing.T, r Renderer, log console.Logger) *Sink {
	t.Helper()
	return NewSink(newTestWriter(t), r, retry.Policy{Attempts: 4}, log)
}

// headings reads back the heading paragraphs of a saved document.
func headings(t *testing.T, path string) []string {
	t.Helper()
	doc, err := document.Open(path)
	require.NoError(t, err)
	var out []string
	for _, p := range doc.Paragraphs() {
		if p.Style() != HeadingStyle {
			continue
		}
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		out = append(out, sb.String())
	}
	return out
}

func imageCount(t *testing.T, path string) int {
	t.Helper()
	doc, err := document.Open(path)
	require.NoError(t, err)
	return len(doc.Images)
}

func paragraphCount(t *testing.T, path string) int {
	t.Helper()
	doc, err := document.Open(path)
	require.NoError(t, err)
	return len(doc.Paragraphs())
}

func TestHeadingText(t *testing.T) {
	assert.Equal(t, "【Summary】", HeadingText("Summary"))
}

func TestWriterOwnStagingRemovedOnClose(t *testing.T) {
	w, err := NewWriter(WriterOptions{})
	require.NoError(t, err)
	require.DirExists(t, w.staging)

	require.NoError(t, w.Close())
	assert.NoDirExists(t, w.staging)
	require.NoError(t, w.Close(), "second close is a no-op")

	_, err = w.OpenOrCreate(filepath.Join(t.TempDir(), "ACL.docx"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenOrCreate(t *testing.T) {
	w := newTestWriter(t)
	path := filepath.Join(t.TempDir(), "ACL.docx")

	doc, err := w.OpenOrCreate(path)
	require.NoError(t, err)
	assert.True(t, doc.Created())
	require.NoError(t, doc.Save(path))
	require.NoError(t, doc.Close())

	doc, err = w.OpenOrCreate(path)
	require.NoError(t, err)
	assert.False(t, doc.Created())
	require.NoError(t, doc.Close())
}

func TestOpenOrCreateCorrupt(t *testing.T) {
	w := newTestWriter(t)
	path := filepath.Join(t.TempDir(), "ACL.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := w.OpenOrCreate(path)
	assert.Error(t, err)
}

func TestAppendFigureAndNormalize(t *testing.T) {
	w := newTestWriter(t)
	path := filepath.Join(t.TempDir(), "ACL.docx")
	img, _ := (&fakeRenderer{}).Render(context.Background(), nil)

	doc, err := w.OpenOrCreate(path)
	require.NoError(t, err)
	before := doc.ParagraphCount()

	fig, err := doc.AppendFigure("Summary", img, 15)
	require.NoError(t, err)
	assert.Equal(t, before+3, doc.ParagraphCount(), "heading, image and blank paragraph")
	assert.Equal(t, 1, doc.ImageCount())
	assert.InDelta(t, 15.0, fig.WidthCm, 1e-9)
	assert.InDelta(t, 7.5, fig.HeightCm, 1e-9)

	require.NoError(t, fig.Normalize(10))
	assert.InDelta(t, 5.0, fig.HeightCm, 1e-9)
	assert.Error(t, fig.Normalize(0))

	require.NoError(t, doc.Save(path))
	require.NoError(t, doc.Close())
	assert.Equal(t, []string{"【Summary】"}, headings(t, path))
}

func TestDiscardRemovesFigure(t *testing.T) {
	w := newTestWriter(t)
	img, _ := (&fakeRenderer{}).Render(context.Background(), nil)

	doc, err := w.OpenOrCreate(filepath.Join(t.TempDir(), "ACL.docx"))
	require.NoError(t, err)
	defer doc.Close()
	before := doc.ParagraphCount()

	fig, err := doc.AppendFigure("Summary", img, 15)
	require.NoError(t, err)
	doc.Discard(fig)
	assert.Equal(t, before, doc.ParagraphCount())
}

func TestAppendFigureRejectedBeforeImageIsAdded(t *testing.T) {
	w := newTestWriter(t)
	img, _ := (&fakeRenderer{}).Render(context.Background(), nil)

	doc, err := w.OpenOrCreate(filepath.Join(t.TempDir(), "ACL.docx"))
	require.NoError(t, err)
	defer doc.Close()
	before := doc.ParagraphCount()

	for _, width := range []float64{0, -3} {
		_, err := doc.AppendFigure("Summary", img, width)
		assert.Error(t, err)
	}
	assert.Equal(t, before, doc.ParagraphCount())
	assert.Zero(t, doc.ImageCount())
}

func TestAppendFigureEmptyImage(t *testing.T) {
	w := newTestWriter(t)
	doc, err := w.OpenOrCreate(filepath.Join(t.TempDir(), "ACL.docx"))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.AppendFigure("Summary", image.NewNRGBA(image.Rect(0, 0, 0, 0)), 15)
	assert.Error(t, err)
	assert.Zero(t, doc.ImageCount())
}

func TestSinkAppendsInOrder(t *testing.T) {
	s := newTestSink(t, &fakeRenderer{}, nil)
	path := filepath.Join(t.TempDir(), "ACL.docx")

	for _, page := range []string{"Summary", "Detail", "Summary"} {
		out := s.AppendAndPersist(context.Background(), path, page, testRegion(), 15)
		require.NoError(t, out.RenderErr)
		require.NoError(t, out.PersistErr)
		assert.Equal(t, 1, out.Attempts)
	}
	assert.Equal(t, []string{"【Summary】", "【Detail】", "【Summary】"}, headings(t, path))
}

func TestSinkRetriesThenSucceeds(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{failures: 2}
	s := newTestSink(t, r, console.NewPlain(&buf))
	path := filepath.Join(t.TempDir(), "ACL.docx")

	out := s.AppendAndPersist(context.Background(), path, "Summary", testRegion(), 15)
	require.NoError(t, out.RenderErr)
	require.NoError(t, out.PersistErr)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 2, strings.Count(buf.String(), "warning:"))
	assert.Equal(t, []string{"【Summary】"}, headings(t, path))
}

func TestSinkExhaustionStillPersists(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestSink(t, r, nil)
	path := filepath.Join(t.TempDir(), "ACL.docx")

	out := s.AppendAndPersist(context.Background(), path, "Summary", testRegion(), 15)
	require.NoError(t, out.RenderErr)
	before := paragraphCount(t, path)

	r.failures, r.calls = 100, 0
	out = s.AppendAndPersist(context.Background(), path, "Detail", testRegion(), 15)
	assert.ErrorIs(t, out.RenderErr, retry.ErrExhausted)
	assert.NoError(t, out.PersistErr)
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, 4, r.calls)

	assert.Equal(t, before, paragraphCount(t, path), "failed attempts leave nothing behind")
	assert.Equal(t, []string{"【Summary】"}, headings(t, path))
}

func TestSinkExhaustionOnNewDocument(t *testing.T) {
	s := newTestSink(t, &fakeRenderer{failures: 100}, nil)
	path := filepath.Join(t.TempDir(), "ACLN.docx")

	out := s.AppendAndPersist(context.Background(), path, "Summary", testRegion(), 15)
	assert.Error(t, out.RenderErr)
	assert.NoError(t, out.PersistErr)
	assert.FileExists(t, path)
	assert.Empty(t, headings(t, path))
}

func TestSinkInvalidWidthIsRenderFailure(t *testing.T) {
	s := newTestSink(t, &fakeRenderer{}, nil)
	path := filepath.Join(t.TempDir(), "ACL.docx")

	out := s.AppendAndPersist(context.Background(), path, "Summary", testRegion(), 0)
	assert.Error(t, out.RenderErr)
	assert.Equal(t, 4, out.Attempts)
	assert.Empty(t, headings(t, path))
	assert.Zero(t, imageCount(t, path), "failed attempts leave no media parts")
}

func TestSinkWithoutHeading(t *testing.T) {
	s := newTestSink(t, &fakeRenderer{}, nil)
	path := filepath.Join(t.TempDir(), "ACL.docx")

	out := s.AppendAndPersist(context.Background(), path, "", testRegion(), 15)
	require.NoError(t, out.RenderErr)
	assert.Empty(t, headings(t, path))
}

func TestSinkCorruptDocumentIsPersistFailure(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestSink(t, r, nil)
	path := filepath.Join(t.TempDir(), "ACL.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	out := s.AppendAndPersist(context.Background(), path, "Summary", testRegion(), 15)
	assert.Error(t, out.PersistErr)
	assert.NoError(t, out.RenderErr)
	assert.Zero(t, out.Attempts)
	assert.Zero(t, r.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a zip", string(data), "existing content is never overwritten")
}

func TestSinkCancelled(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestSink(t, r, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := s.AppendAndPersist(ctx, filepath.Join(t.TempDir(), "ACL.docx"), "Summary", testRegion(), 15)
	assert.ErrorIs(t, out.RenderErr, context.Canceled)
	assert.Zero(t, r.calls)
}

func TestSinkClose(t *testing.T) {
	r := &fakeRenderer{}
	w, err := NewWriter(WriterOptions{})
	require.NoError(t, err)
	s := NewSink(w, r, retry.Policy{Attempts: 1}, nil)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, r.closed)
	assert.NoDirExists(t, w.staging)
}

func TestPolicyFor(t *testing.T) {
	job := types.ExportJob{MaxRetries: 4, RetryBackoff: 300, RenderTimeout: 5}
	p := PolicyFor(job)
	assert.Equal(t, 4, p.Attempts)
	assert.EqualValues(t, 300, p.Backoff)
	assert.EqualValues(t, 5, p.Timeout)
}
