// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render rasterises a region's cell grid to an image.
//
// The output imitates what a spreadsheet application shows for the area:
// column widths and row heights in pixels, cell fills, thin grid lines,
// merged cells drawn once across their span, and text clipped to its cell.
// It is not a layout engine; conditional formats, charts and shapes are
// not drawn.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// Defaults for Options.
const (
	DefaultFontSizePt = 11.0
	DefaultDPI        = 96.0
	DefaultMaxWidthPx = 2400
)

// ErrEmptyRegion is returned for a region with no visible cells.
var ErrEmptyRegion = errors.New("region has no visible cells")

// Options configures a Renderer. Zero fields take the package defaults.
type Options = types.RenderConfig

// Renderer draws regions. It is safe for use by one goroutine at a time;
// the face cache is guarded so concurrent use does not corrupt it.
type Renderer struct {
	opts Options
	font *opentype.Font

	mu    sync.Mutex
	faces map[int]font.Face // keyed by size in tenths of a point
}

// New loads the font and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	if opts.FontSizePt <= 0 {
		opts.FontSizePt = DefaultFontSizePt
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}

	f, err := loadFont(opts.FontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, font: f, faces: make(map[int]font.Face)}, nil
}

func loadFont(path string) (*opentype.Font, error) {
	if path == "" {
		return opentype.Parse(goregular.TTF)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parsing font collection %s: %w", path, err)
		}
		f, err := coll.Font(0)
		if err != nil {
			return nil, fmt.Errorf("font collection %s: %w", path, err)
		}
		return f, nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", path, err)
	}
	return f, nil
}

// face returns a cached face for a point size.
func (r *Renderer) face(sizePt float64) (font.Face, error) {
	if sizePt <= 0 {
		sizePt = r.opts.FontSizePt
	}
	key := int(math.Round(sizePt * 10))

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(key) / 10,
		DPI:     r.opts.DPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %.1fpt face: %w", sizePt, err)
	}
	r.faces[key] = f
	return f, nil
}

// Render draws region. The context is checked between rows.
func (r *Renderer) Render(ctx context.Context, region *types.Region) (image.Image, error) {
	if region == nil {
		return nil, ErrEmptyRegion
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := region.Grid
	if g.Empty() {
		return nil, fmt.Errorf("%s: %w", region.Name, ErrEmptyRegion)
	}

	xs := offsets(g.ColWidthsPx, g.ColHidden)
	ys := offsets(g.RowHeightsPx, g.RowHidden)
	width, height := xs[len(xs)-1], ys[len(ys)-1]
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%s: %w", region.Name, ErrEmptyRegion)
	}

	// One extra pixel keeps the right and bottom grid lines on the canvas.
	canvas := imaging.New(width+1, height+1, color.White)
	lines := make([]cellBox, 0, len(g.RowHeightsPx)*len(g.ColWidthsPx))

	for row := range g.RowHeightsPx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hidden(g.RowHidden, row) {
			continue
		}
		for col := range g.ColWidthsPx {
			if hidden(g.ColHidden, col) || covered(g, row, col) {
				continue
			}
			cell := cellAt(g, row, col)
			rowSpan, colSpan := 1, 1
			if cell != nil {
				rowSpan, colSpan = max(cell.RowSpan, 1), max(cell.ColSpan, 1)
			}
			box := cellBox{
				rect: image.Rect(
					xs[col], ys[row],
					xs[min(col+colSpan, len(xs)-1)], ys[min(row+rowSpan, len(ys)-1)],
				),
			}
			if box.rect.Empty() {
				continue
			}
			if cell != nil {
				box.style = cell.Style
				fillRect(canvas, box.rect, parseColor(cell.Style.BackgroundColor, nil))
				if err := r.drawText(canvas, box.rect, cell); err != nil {
					return nil, err
				}
			}
			lines = append(lines, box)
		}
	}

	// Borders go last so fills from neighbouring cells do not cover them.
	for _, b := range lines {
		strokeRect(canvas, b.rect, parseColor(b.style.BorderColor, gridColor))
	}

	var img image.Image = canvas
	if r.opts.MaxWidthPx > 0 && canvas.Bounds().Dx() > r.opts.MaxWidthPx {
		img = imaging.Resize(canvas, r.opts.MaxWidthPx, 0, imaging.Lanczos)
	}
	return img, nil
}

// Close releases cached font faces.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for k, f := range r.faces {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.faces, k)
	}
	return errors.Join(errs...)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

type cellBox struct {
	rect  image.Rectangle
	style types.CellStyle
}

// offsets returns cumulative pixel positions; hidden entries have no width.
// The result has len(sizes)+1 entries.
func offsets(sizes []float64, hiddenFlags []bool) []int {
	out := make([]int, len(sizes)+1)
	acc := 0.0
	for i, s := range sizes {
		out[i] = int(math.Round(acc))
		if !hidden(hiddenFlags, i) && s > 0 {
			acc += s
		}
	}
	out[len(sizes)] = int(math.Round(acc))
	return out
}

func hidden(flags []bool, i int) bool {
	return i < len(flags) && flags[i]
}

func covered(g types.Grid, row, col int) bool {
	return row < len(g.Covered) && col < len(g.Covered[row]) && g.Covered[row][col]
}

func cellAt(g types.Grid, row, col int) *types.GridCell {
	if row >= len(g.Cells) || col >= len(g.Cells[row]) {
		return nil
	}
	return g.Cells[row][col]
}
