// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// cellPaddingPx is the inner margin between a cell edge and its text.
const cellPaddingPx = 3

var gridColor color.Color = color.NRGBA{R: 0xD4, G: 0xD4, B: 0xD4, A: 0xFF}

// parseColor converts "RRGGBB" to a colour, returning fallback when the
// value is empty or malformed.
func parseColor(hex string, fallback color.Color) color.Color {
	if hex == "" {
		return fallback
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}

func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	if c == nil {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// strokeRect draws a one-pixel outline on the top-left edges of r and the
// shared edges to its right and bottom.
func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x <= r.Max.X; x++ {
		dst.Set(x, r.Min.Y, c)
		dst.Set(x, r.Max.Y, c)
	}
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		dst.Set(r.Min.X, y, c)
		dst.Set(r.Max.X, y, c)
	}
}

// drawText writes the cell value inside rect. Output outside rect is
// clipped because the drawer targets a sub-image.
func (r *Renderer) drawText(canvas *image.NRGBA, rect image.Rectangle, cell *types.GridCell) error {
	text := norm.NFC.String(strings.TrimRight(cell.Value, " \t\r\n"))
	if text == "" {
		return nil
	}
	face, err := r.face(cell.Style.FontSizePt)
	if err != nil {
		return err
	}

	inner := rect.Inset(cellPaddingPx)
	if inner.Empty() {
		return nil
	}
	clip, ok := canvas.SubImage(inner).(*image.NRGBA)
	if !ok {
		return nil
	}

	indent := int(cell.Style.IndentPx)
	avail := inner.Dx() - indent
	lines := splitLines(face, text, avail, cell.Style.WrapText)

	metrics := face.Metrics()
	lineH := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()
	total := lineH * len(lines)

	var top int
	switch cell.Style.VerticalAlign {
	case "top":
		top = inner.Min.Y
	case "middle":
		top = inner.Min.Y + (inner.Dy()-total)/2
	default:
		top = inner.Max.Y - total
	}

	halign := cell.Style.HorizontalAlign
	if halign == "" && isNumeric(text) {
		halign = "right"
	}

	d := &font.Drawer{
		Dst:  clip,
		Src:  image.NewUniform(parseColor(cell.Style.FontColor, color.Black)),
		Face: face,
	}
	for i, line := range lines {
		w := font.MeasureString(face, line).Ceil()
		var x int
		switch halign {
		case "center":
			x = inner.Min.X + (inner.Dx()-w)/2
		case "right":
			x = inner.Max.X - w - indent
		default:
			x = inner.Min.X + indent
		}
		y := top + ascent + i*lineH

		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		if cell.Style.Bold {
			d.Dot = fixed.P(x+1, y)
			d.DrawString(line)
		}
	}
	return nil
}

// splitLines breaks text on newlines and, when wrap is set, on word
// boundaries so each line fits width.
func splitLines(face font.Face, text string, width int, wrap bool) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimRight(para, "\r")
		if !wrap || width <= 0 || font.MeasureString(face, para).Ceil() <= width {
			out = append(out, para)
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && font.MeasureString(face, candidate).Ceil() > width {
				out = append(out, line)
				line = word
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%"))
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
