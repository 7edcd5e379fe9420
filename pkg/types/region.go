// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Page is one sheet of the workbook, identified by its 1-based position.
type Page struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

func (p Page) String() string {
	return fmt.Sprintf("%d:%s", p.Index, p.Name)
}

// Scope says where a defined name was found.
type Scope string

const (
	ScopeWorkbook Scope = "workbook"
	ScopePage     Scope = "page"
)

// Region is a resolved defined name: a rectangular cell area plus a
// snapshot of its cells, ready to render.
type Region struct {
	Name      string `json:"name" yaml:"name"`
	Scope     Scope  `json:"scope" yaml:"scope"`
	SheetName string `json:"sheet" yaml:"sheet"`
	Ref       string `json:"ref" yaml:"ref"` // e.g. "A1:F20"

	// Bounds are 1-based and inclusive.
	FromRow int `json:"from_row" yaml:"from_row"`
	FromCol int `json:"from_col" yaml:"from_col"`
	ToRow   int `json:"to_row" yaml:"to_row"`
	ToCol   int `json:"to_col" yaml:"to_col"`

	Grid Grid `json:"-" yaml:"-"`
}

// Rows returns the number of rows covered by the region.
func (r Region) Rows() int { return r.ToRow - r.FromRow + 1 }

// Cols returns the number of columns covered by the region.
func (r Region) Cols() int { return r.ToCol - r.FromCol + 1 }

func (r Region) String() string {
	return fmt.Sprintf("%s (%s!%s, %s scope)", r.Name, r.SheetName, r.Ref, r.Scope)
}

// CellStyle captures the limited set of spreadsheet styles the renderer
// honours. Colours are "RRGGBB" without a leading '#'.
type CellStyle struct {
	FontSizePt      float64
	Bold            bool
	FontColor       string
	BackgroundColor string
	BorderColor     string
	HorizontalAlign string // left|center|right
	VerticalAlign   string // top|middle|bottom
	WrapText        bool
	IndentPx        float64
}

// GridCell is one cell, or the master cell of a merged range.
type GridCell struct {
	Value   string
	ColSpan int // 1 if not merged
	RowSpan int // 1 if not merged
	Style   CellStyle
}

// Grid is the cell snapshot of a region. Cells is indexed [row][col]
// relative to the region's top-left corner; nil entries are blank or
// covered by a merge.
type Grid struct {
	ColWidthsPx  []float64
	ColHidden    []bool
	RowHeightsPx []float64
	RowHidden    []bool
	Cells        [][]*GridCell
	Covered      [][]bool // true for non-master cells inside a merge
}

// Empty reports whether the grid has no visible area.
func (g Grid) Empty() bool {
	return len(g.ColWidthsPx) == 0 || len(g.RowHeightsPx) == 0
}
