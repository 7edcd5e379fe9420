// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workbook

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unioffice/spreadsheet"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// buildWorkbook writes a two-page workbook:
//
//	page 1 "Summary": ACL_1 page-scoped to A1:B2, merged C1:D1
//	page 2 "Detail":  ACL_1 page-scoped to A1:A1 (#REF! variant on demand)
//	workbook scope:   ACL_1 -> Detail!B2:C3, TOTAL -> 'Summary'!$A$1
func buildWorkbook(t *testing.T, extra func(wb *spreadsheet.Workbook)) string {
	t.Helper()
	wb := spreadsheet.New()

	summary := wb.AddSheet()
	summary.SetName("Summary")
	summary.Cell("A1").SetString("Region")
	summary.Cell("B1").SetString("Owner")
	summary.Cell("A2").SetString("north")
	summary.Cell("B2").SetNumber(42)
	summary.Cell("C1").SetString("Merged")
	summary.AddMergedCells("C1", "D1")
	width := 20.0
	summary.Column(2).X().WidthAttr = &width

	detail := wb.AddSheet()
	detail.SetName("Detail")
	detail.Cell("A1").SetString("page")
	detail.Cell("B2").SetString("workbook")

	page0, page1 := uint32(0), uint32(1)
	wb.AddDefinedName("ACL_1", "Summary!$A$1:$B$2").X().LocalSheetIdAttr = &page0
	wb.AddDefinedName("ACL_1", "Detail!$A$1").X().LocalSheetIdAttr = &page1
	wb.AddDefinedName("ACL_1", "Detail!$B$2:$C$3")
	wb.AddDefinedName("TOTAL", "'Summary'!$A$1")
	wb.AddDefinedName("_xlnm.Print_Area", "Summary!$A$1:$D$4")

	if extra != nil {
		extra(wb)
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, wb.SaveToFile(path))
	return path
}

func openBook(t *testing.T, path string, order types.ResolutionOrder) *Workbook {
	t.Helper()
	w, err := Open(path, order)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"), types.PageFirst)
	assert.Error(t, err)
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(t.TempDir(), types.PageFirst)
	assert.Error(t, err)
}

func TestPages(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.PageFirst)

	assert.Equal(t, 2, w.PageCount())

	p, err := w.Page(1)
	require.NoError(t, err)
	assert.Equal(t, types.Page{Index: 1, Name: "Summary"}, p)

	p, err = w.Page(2)
	require.NoError(t, err)
	assert.Equal(t, "Detail", p.Name)

	_, err = w.Page(0)
	assert.Error(t, err)
	_, err = w.Page(3)
	assert.Error(t, err)
}

func TestResolvePageFirst(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.PageFirst)
	summary, _ := w.Page(1)
	detail, _ := w.Page(2)

	r, ok := w.Resolve(summary, "ACL_1")
	require.True(t, ok)
	assert.Equal(t, types.ScopePage, r.Scope)
	assert.Equal(t, "Summary", r.SheetName)
	assert.Equal(t, "A1:B2", r.Ref)
	assert.Equal(t, 2, r.Rows())
	assert.Equal(t, 2, r.Cols())

	r, ok = w.Resolve(detail, "ACL_1")
	require.True(t, ok)
	assert.Equal(t, types.ScopePage, r.Scope)
	assert.Equal(t, "A1", r.Ref)
}

func TestResolveWorkbookFirst(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.WorkbookFirst)
	summary, _ := w.Page(1)

	r, ok := w.Resolve(summary, "ACL_1")
	require.True(t, ok)
	assert.Equal(t, types.ScopeWorkbook, r.Scope)
	assert.Equal(t, "Detail", r.SheetName)
	assert.Equal(t, "B2:C3", r.Ref)
}

func TestResolveCaseInsensitive(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.PageFirst)
	summary, _ := w.Page(1)

	r, ok := w.Resolve(summary, "acl_1")
	require.True(t, ok)
	assert.Equal(t, "acl_1", r.Name)
	assert.Equal(t, types.ScopePage, r.Scope)
}

func TestResolveFallsBackToWorkbookScope(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.PageFirst)
	detail, _ := w.Page(2)

	r, ok := w.Resolve(detail, "TOTAL")
	require.True(t, ok)
	assert.Equal(t, types.ScopeWorkbook, r.Scope)
	assert.Equal(t, "Summary", r.SheetName)
}

func TestResolveAbsent(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.PageFirst)
	summary, _ := w.Page(1)

	r, ok := w.Resolve(summary, "MISSING_1")
	assert.False(t, ok)
	assert.Nil(t, r)

	_, ok = w.Resolve(summary, "_xlnm.Print_Area")
	assert.False(t, ok, "reserved names are never regions")
}

func TestResolveBrokenReference(t *testing.T) {
	path := buildWorkbook(t, func(wb *spreadsheet.Workbook) {
		page0 := uint32(0)
		wb.AddDefinedName("BROKEN_1", "#REF!").X().LocalSheetIdAttr = &page0
		wb.AddDefinedName("BROKEN_1", "Summary!$A$2")
		wb.AddDefinedName("GONE_1", "Nowhere!$A$1")
	})
	w := openBook(t, path, types.PageFirst)
	summary, _ := w.Page(1)

	r, ok := w.Resolve(summary, "BROKEN_1")
	require.True(t, ok, "broken page definition falls through to workbook scope")
	assert.Equal(t, types.ScopeWorkbook, r.Scope)
	assert.Equal(t, "A2", r.Ref)

	_, err := w.Lookup(summary, "BROKEN_1", types.ScopePage)
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok = w.Resolve(summary, "GONE_1")
	assert.False(t, ok)
}

func TestResolveOversizedRegion(t *testing.T) {
	path := buildWorkbook(t, func(wb *spreadsheet.Workbook) {
		page0 := uint32(0)
		wb.AddDefinedName("WIDE_1", "Summary!$A$1:$XFD$1048576").X().LocalSheetIdAttr = &page0
		wb.AddDefinedName("WIDE_1", "Summary!$A$1:$B$1")
	})
	w := openBook(t, path, types.PageFirst)
	summary, _ := w.Page(1)

	_, err := w.Lookup(summary, "WIDE_1", types.ScopePage)
	assert.ErrorIs(t, err, ErrNotFound)

	r, ok := w.Resolve(summary, "WIDE_1")
	require.True(t, ok, "oversized page definition falls through to workbook scope")
	assert.Equal(t, types.ScopeWorkbook, r.Scope)
	assert.Equal(t, "A1:B1", r.Ref)
}

func TestSnapshot(t *testing.T) {
	w := openBook(t, buildWorkbook(t, nil), types.PageFirst)
	summary, _ := w.Page(1)

	r, ok := w.Resolve(summary, "ACL_1")
	require.True(t, ok)
	g := r.Grid
	require.False(t, g.Empty())
	require.Len(t, g.Cells, 2)
	require.Len(t, g.Cells[0], 2)

	assert.Equal(t, "Region", g.Cells[0][0].Value)
	assert.Equal(t, "Owner", g.Cells[0][1].Value)
	assert.Equal(t, "north", g.Cells[1][0].Value)
	assert.Equal(t, "42", g.Cells[1][1].Value)

	assert.InDelta(t, defaultColWidthChars*charWidthPx, g.ColWidthsPx[0], 0.01)
	assert.InDelta(t, 20*charWidthPx, g.ColWidthsPx[1], 0.01)
	assert.InDelta(t, defaultRowHeightPt*ptToPx, g.RowHeightsPx[0], 0.01)
}

func TestSnapshotMergedCells(t *testing.T) {
	path := buildWorkbook(t, func(wb *spreadsheet.Workbook) {
		wb.AddDefinedName("WIDE_1", "Summary!$B$1:$D$2")
		wb.AddDefinedName("CLIP_1", "Summary!$D$1:$D$2")
	})
	w := openBook(t, path, types.PageFirst)
	summary, _ := w.Page(1)

	r, ok := w.Resolve(summary, "WIDE_1")
	require.True(t, ok)
	master := r.Grid.Cells[0][1]
	require.NotNil(t, master)
	assert.Equal(t, "Merged", master.Value)
	assert.Equal(t, 2, master.ColSpan)
	assert.Equal(t, 1, master.RowSpan)
	assert.True(t, r.Grid.Covered[0][2])
	assert.Nil(t, r.Grid.Cells[0][2])

	// A merge cut by the area boundary collapses to a single cell.
	r, ok = w.Resolve(summary, "CLIP_1")
	require.True(t, ok)
	assert.False(t, r.Grid.Covered[0][0])
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Reference
		area    string
		wantErr bool
	}{
		{
			name:    "absolute range",
			content: "Sheet1!$A$1:$C$4",
			want:    Reference{Sheet: "Sheet1", FromRow: 1, FromCol: 1, ToRow: 4, ToCol: 3},
			area:    "A1:C4",
		},
		{
			name:    "quoted sheet with space",
			content: "'Sheet 1'!$B$2:$D$3",
			want:    Reference{Sheet: "Sheet 1", FromRow: 2, FromCol: 2, ToRow: 3, ToCol: 4},
			area:    "B2:D3",
		},
		{
			name:    "escaped quote",
			content: "'Bob''s'!A1",
			want:    Reference{Sheet: "Bob's", FromRow: 1, FromCol: 1, ToRow: 1, ToCol: 1},
			area:    "A1",
		},
		{
			name:    "leading equals and reversed corners",
			content: "=Data!$C$5:$A$1",
			want:    Reference{Sheet: "Data", FromRow: 1, FromCol: 1, ToRow: 5, ToCol: 3},
			area:    "A1:C5",
		},
		{name: "ref error", content: "#REF!", wantErr: true},
		{name: "ref error in area", content: "Sheet1!#REF!", wantErr: true},
		{name: "no sheet", content: "$A$1:$B$2", wantErr: true},
		{name: "multi area", content: "Sheet1!$A$1,Sheet1!$B$2", wantErr: true},
		{name: "multi area quoted", content: "'Data'!$A$1:$B$2,'Data'!$D$4:$E$5", wantErr: true},
		{
			name:    "comma inside quoted sheet",
			content: "'North, South'!$A$1:$B$2",
			want:    Reference{Sheet: "North, South", FromRow: 1, FromCol: 1, ToRow: 2, ToCol: 2},
			area:    "A1:B2",
		},
		{name: "empty", content: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.area, got.Area())
		})
	}
}

func TestCloseTwice(t *testing.T) {
	w, err := Open(buildWorkbook(t, nil), types.PageFirst)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Page(1)
	assert.Error(t, err)
}

func TestNormalizeColor(t *testing.T) {
	assert.Equal(t, "FF0000", normalizeColor("FFFF0000"))
	assert.Equal(t, "00FF00", normalizeColor("#00ff00"))
}
