// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workbook

import (
	"strings"

	"github.com/unidoc/unioffice/schema/soo/dml"
	"github.com/unidoc/unioffice/schema/soo/sml"
	"github.com/unidoc/unioffice/spreadsheet"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// cellXf returns the cell format record for a style ID, or nil.
func cellXf(ss spreadsheet.StyleSheet, styleID uint32) *sml.CT_Xf {
	if ss.X() == nil || ss.X().CellXfs == nil || int(styleID) >= len(ss.X().CellXfs.Xf) {
		return nil
	}
	return ss.X().CellXfs.Xf[styleID]
}

func fontProps(ss spreadsheet.StyleSheet, xf *sml.CT_Xf) *sml.CT_Font {
	if xf == nil || xf.FontIdAttr == nil || ss.X().Fonts == nil {
		return nil
	}
	idx := int(*xf.FontIdAttr)
	if idx >= len(ss.X().Fonts.Font) {
		return nil
	}
	return ss.X().Fonts.Font[idx]
}

func fillProps(ss spreadsheet.StyleSheet, xf *sml.CT_Xf) *sml.CT_Fill {
	if xf == nil || xf.FillIdAttr == nil || ss.X().Fills == nil {
		return nil
	}
	idx := int(*xf.FillIdAttr)
	if idx >= len(ss.X().Fills.Fill) {
		return nil
	}
	return ss.X().Fills.Fill[idx]
}

func borderProps(ss spreadsheet.StyleSheet, xf *sml.CT_Xf) *sml.CT_Border {
	if xf == nil || xf.BorderIdAttr == nil || ss.X().Borders == nil {
		return nil
	}
	idx := int(*xf.BorderIdAttr)
	if idx >= len(ss.X().Borders.Border) {
		return nil
	}
	return ss.X().Borders.Border[idx]
}

// themeColor resolves a theme colour index (0-based) to "RRGGBB". Tint is
// not applied.
func themeColor(wb *spreadsheet.Workbook, idx int) (string, bool) {
	themes := wb.Themes()
	if len(themes) == 0 || themes[0] == nil || themes[0].ThemeElements == nil || themes[0].ThemeElements.ClrScheme == nil {
		return "", false
	}
	scheme := themes[0].ThemeElements.ClrScheme

	var clr *dml.CT_Color
	switch idx {
	case 0:
		clr = scheme.Dk1
	case 1:
		clr = scheme.Lt1
	case 2:
		clr = scheme.Dk2
	case 3:
		clr = scheme.Lt2
	case 4:
		clr = scheme.Accent1
	case 5:
		clr = scheme.Accent2
	case 6:
		clr = scheme.Accent3
	case 7:
		clr = scheme.Accent4
	case 8:
		clr = scheme.Accent5
	case 9:
		clr = scheme.Accent6
	case 10:
		clr = scheme.Hlink
	case 11:
		clr = scheme.FolHlink
	}
	if clr == nil {
		return "", false
	}
	if clr.SrgbClr != nil && clr.SrgbClr.ValAttr != "" {
		return clr.SrgbClr.ValAttr, true
	}
	if clr.SysClr != nil && clr.SysClr.LastClrAttr != nil {
		return *clr.SysClr.LastClrAttr, true
	}
	return "", false
}

// colorOf resolves an sml colour reference to "RRGGBB", or "".
func colorOf(wb *spreadsheet.Workbook, c *sml.CT_Color) string {
	if c == nil {
		return ""
	}
	if c.RgbAttr != nil && *c.RgbAttr != "" {
		return normalizeColor(*c.RgbAttr)
	}
	if c.ThemeAttr != nil {
		if hex, ok := themeColor(wb, int(*c.ThemeAttr)); ok {
			return hex
		}
	}
	return ""
}

// cellStyle resolves the subset of a cell format the renderer draws.
func cellStyle(wb *spreadsheet.Workbook, styleID uint32) types.CellStyle {
	var st types.CellStyle
	ss := wb.StyleSheet
	xf := cellXf(ss, styleID)
	if xf == nil {
		return st
	}

	if font := fontProps(ss, xf); font != nil {
		if len(font.Sz) > 0 {
			st.FontSizePt = font.Sz[0].ValAttr
		}
		if len(font.B) > 0 {
			st.Bold = font.B[0].ValAttr == nil || *font.B[0].ValAttr
		}
		if len(font.Color) > 0 {
			st.FontColor = colorOf(wb, font.Color[0])
		}
	}
	if fill := fillProps(ss, xf); fill != nil && fill.PatternFill != nil &&
		fill.PatternFill.PatternTypeAttr == sml.ST_PatternTypeSolid {
		st.BackgroundColor = colorOf(wb, fill.PatternFill.FgColor)
	}
	if border := borderProps(ss, xf); border != nil && border.Left != nil {
		st.BorderColor = colorOf(wb, border.Left.Color)
	}
	if xf.Alignment != nil {
		switch xf.Alignment.HorizontalAttr.String() {
		case "center", "centerContinuous", "distributed":
			st.HorizontalAlign = "center"
		case "right":
			st.HorizontalAlign = "right"
		default:
			st.HorizontalAlign = "left"
		}
		switch xf.Alignment.VerticalAttr.String() {
		case "top":
			st.VerticalAlign = "top"
		case "center":
			st.VerticalAlign = "middle"
		default:
			st.VerticalAlign = "bottom"
		}
		if xf.Alignment.WrapTextAttr != nil {
			st.WrapText = *xf.Alignment.WrapTextAttr
		}
		if xf.Alignment.IndentAttr != nil {
			st.IndentPx = float64(*xf.Alignment.IndentAttr) * 8.0
		}
	}
	return st
}

// normalizeColor converts an 8-digit ARGB hex (as used in XLSX) to 6-digit RGB.
func normalizeColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 8 {
		return strings.ToUpper(hex[2:])
	}
	return strings.ToUpper(hex)
}
