// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workbook

import (
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

type span struct{ rows, cols int }

// snapshot copies the cells of ref into a grid the renderer can draw without
// the workbook handle. Merges that start outside the area are clipped to it.
func snapshot(wb *spreadsheet.Workbook, sheet spreadsheet.Sheet, ref Reference) types.Grid {
	nRows := ref.ToRow - ref.FromRow + 1
	nCols := ref.ToCol - ref.FromCol + 1

	g := types.Grid{
		ColWidthsPx:  make([]float64, nCols),
		ColHidden:    make([]bool, nCols),
		RowHeightsPx: make([]float64, nRows),
		RowHidden:    make([]bool, nRows),
		Cells:        make([][]*types.GridCell, nRows),
		Covered:      make([][]bool, nRows),
	}
	for r := 0; r < nRows; r++ {
		g.Cells[r] = make([]*types.GridCell, nCols)
		g.Covered[r] = make([]bool, nCols)
		g.RowHeightsPx[r] = defaultRowHeightPt * ptToPx
	}

	for c := 0; c < nCols; c++ {
		col := sheet.Column(uint32(ref.FromCol + c))
		x := col.X()
		if x.WidthAttr != nil && *x.WidthAttr > 0 {
			g.ColWidthsPx[c] = *x.WidthAttr * charWidthPx
		} else {
			g.ColWidthsPx[c] = defaultColWidthChars * charWidthPx
		}
		if x.HiddenAttr != nil {
			g.ColHidden[c] = *x.HiddenAttr
		}
	}

	masters := mergesWithin(sheet, ref, g.Covered)

	for _, row := range sheet.Rows() {
		r := int(row.RowNumber()) - ref.FromRow
		if r < 0 || r >= nRows {
			continue
		}
		g.RowHidden[r] = row.IsHidden()
		if x := row.X(); x.HtAttr != nil && *x.HtAttr > 0 {
			g.RowHeightsPx[r] = *x.HtAttr * ptToPx
		}

		for _, cell := range row.Cells() {
			colName, err := cell.Column()
			if err != nil {
				continue
			}
			c := int(reference.ColumnToIndex(colName)) + 1 - ref.FromCol
			if c < 0 || c >= nCols || g.Covered[r][c] {
				continue
			}
			gc := &types.GridCell{
				Value:   cell.GetFormattedValue(),
				ColSpan: 1,
				RowSpan: 1,
			}
			if cell.X().SAttr != nil {
				gc.Style = cellStyle(wb, *cell.X().SAttr)
			}
			if sp, ok := masters[[2]int{r, c}]; ok {
				gc.RowSpan, gc.ColSpan = sp.rows, sp.cols
			}
			g.Cells[r][c] = gc
		}
	}

	// Merged ranges whose master cell has no content still span.
	for pos, sp := range masters {
		if g.Cells[pos[0]][pos[1]] == nil {
			g.Cells[pos[0]][pos[1]] = &types.GridCell{RowSpan: sp.rows, ColSpan: sp.cols}
		}
	}
	return g
}

// mergesWithin returns the merge masters inside ref keyed by grid position,
// and marks covered cells.
func mergesWithin(sheet spreadsheet.Sheet, ref Reference, covered [][]bool) map[[2]int]span {
	masters := make(map[[2]int]span)
	x := sheet.X()
	if x == nil || x.MergeCells == nil {
		return masters
	}
	for _, mc := range x.MergeCells.MergeCell {
		from, to, err := reference.ParseRangeReference(mc.RefAttr)
		if err != nil {
			continue
		}
		fromRow := max(int(from.RowIdx), ref.FromRow)
		fromCol := max(int(from.ColumnIdx)+1, ref.FromCol)
		toRow := min(int(to.RowIdx), ref.ToRow)
		toCol := min(int(to.ColumnIdx)+1, ref.ToCol)
		if fromRow > toRow || fromCol > toCol {
			continue
		}
		if fromRow == toRow && fromCol == toCol {
			continue
		}

		r0, c0 := fromRow-ref.FromRow, fromCol-ref.FromCol
		masters[[2]int{r0, c0}] = span{rows: toRow - fromRow + 1, cols: toCol - fromCol + 1}
		for r := r0; r <= toRow-ref.FromRow; r++ {
			for c := c0; c <= toCol-ref.FromCol; c++ {
				if r == r0 && c == c0 {
					continue
				}
				covered[r][c] = true
			}
		}
	}
	return masters
}
