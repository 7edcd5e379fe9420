// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workbook opens XLSX workbooks and resolves defined names to
// renderable regions.
//
// A region name may be defined at page scope (localSheetId set to the
// page's 0-based position) and at workbook scope. Which one wins is set by
// types.ResolutionOrder. Names are matched case-insensitively, the way
// spreadsheet applications treat them.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// Default geometry when a column or row carries no explicit size.
const (
	defaultColWidthChars = 8.43
	charWidthPx          = 8.3
	defaultRowHeightPt   = 15.0
	ptToPx               = 1.333
)

// Reserved names written by spreadsheet applications (print areas, filters).
const reservedPrefix = "_xlnm."

// maxRegionCells bounds the snapshot of one region. A name covering whole
// columns or the whole sheet is treated as absent.
const maxRegionCells = 1 << 20

// ErrNotFound is returned by Lookup when a name has no usable definition.
var ErrNotFound = errors.New("region not found")

// Workbook is an opened XLSX file. The file handle stays open until Close.
type Workbook struct {
	path   string
	f      *os.File
	wb     *spreadsheet.Workbook
	sheets []spreadsheet.Sheet
	order  types.ResolutionOrder
}

// Open reads the workbook at path.
func Open(path string, order types.ResolutionOrder) (*Workbook, error) {
	if order == "" {
		order = types.PageFirst
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	wb, err := spreadsheet.Read(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading workbook %s: %w", path, err)
	}
	return &Workbook{
		path:   path,
		f:      f,
		wb:     wb,
		sheets: wb.Sheets(),
		order:  order,
	}, nil
}

// Path returns the file the workbook was read from.
func (w *Workbook) Path() string { return w.path }

// PageCount returns the number of sheets.
func (w *Workbook) PageCount() int { return len(w.sheets) }

// Page returns the sheet at a 1-based index.
func (w *Workbook) Page(index int) (types.Page, error) {
	if w.wb == nil {
		return types.Page{}, errors.New("workbook is closed")
	}
	if index < 1 || index > len(w.sheets) {
		return types.Page{}, fmt.Errorf("page %d out of range 1..%d", index, len(w.sheets))
	}
	return types.Page{Index: index, Name: w.sheets[index-1].Name()}, nil
}

// Resolve looks name up on page following the workbook's resolution order.
// A definition whose reference is invalid counts as absent at its scope.
func (w *Workbook) Resolve(page types.Page, name string) (*types.Region, bool) {
	for _, scope := range w.scopes() {
		region, err := w.Lookup(page, name, scope)
		if err == nil {
			return region, true
		}
	}
	return nil, false
}

func (w *Workbook) scopes() []types.Scope {
	if w.order == types.WorkbookFirst {
		return []types.Scope{types.ScopeWorkbook, types.ScopePage}
	}
	return []types.Scope{types.ScopePage, types.ScopeWorkbook}
}

// Lookup resolves name at a single scope.
func (w *Workbook) Lookup(page types.Page, name string, scope types.Scope) (*types.Region, error) {
	if w.wb == nil {
		return nil, errors.New("workbook is closed")
	}
	content, ok := w.definition(page, name, scope)
	if !ok {
		return nil, ErrNotFound
	}
	ref, err := ParseReference(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
	}
	if cells := ref.Cells(); cells > maxRegionCells {
		return nil, fmt.Errorf("%w: %s covers %d cells, more than %d", ErrNotFound, name, cells, maxRegionCells)
	}
	sheet, ok := w.sheetByName(ref.Sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s refers to missing sheet %q", ErrNotFound, name, ref.Sheet)
	}

	region := &types.Region{
		Name:      name,
		Scope:     scope,
		SheetName: sheet.Name(),
		Ref:       ref.Area(),
		FromRow:   ref.FromRow,
		FromCol:   ref.FromCol,
		ToRow:     ref.ToRow,
		ToCol:     ref.ToCol,
	}
	region.Grid = snapshot(w.wb, sheet, ref)
	return region, nil
}

// definition returns the reference text of name at scope.
func (w *Workbook) definition(page types.Page, name string, scope types.Scope) (string, bool) {
	for _, dn := range w.wb.DefinedNames() {
		x := dn.X()
		if x == nil || strings.HasPrefix(dn.Name(), reservedPrefix) {
			continue
		}
		if !strings.EqualFold(dn.Name(), name) {
			continue
		}
		local := x.LocalSheetIdAttr
		switch scope {
		case types.ScopePage:
			if local != nil && int(*local) == page.Index-1 {
				return dn.Content(), true
			}
		case types.ScopeWorkbook:
			if local == nil {
				return dn.Content(), true
			}
		}
	}
	return "", false
}

func (w *Workbook) sheetByName(name string) (spreadsheet.Sheet, bool) {
	for _, s := range w.sheets {
		if strings.EqualFold(s.Name(), name) {
			return s, true
		}
	}
	return spreadsheet.Sheet{}, false
}

// Close releases the file handle. Closing twice is a no-op.
func (w *Workbook) Close() error {
	w.wb = nil
	w.sheets = nil
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// Reference is a parsed defined-name target.
type Reference struct {
	Sheet   string
	FromRow int // 1-based
	FromCol int // 1-based
	ToRow   int
	ToCol   int
}

// Cells returns the number of cells in the reference.
func (r Reference) Cells() int {
	return (r.ToRow - r.FromRow + 1) * (r.ToCol - r.FromCol + 1)
}

// Area returns the reference without sheet, e.g. "A1:C4".
func (r Reference) Area() string {
	from := reference.IndexToColumn(uint32(r.FromCol-1)) + fmt.Sprint(r.FromRow)
	if r.FromRow == r.ToRow && r.FromCol == r.ToCol {
		return from
	}
	return from + ":" + reference.IndexToColumn(uint32(r.ToCol-1)) + fmt.Sprint(r.ToRow)
}

// ParseReference parses defined-name content such as "'Sheet 1'!$A$1:$C$4"
// or "Sheet1!$B$2". Multi-area and #REF! references are rejected.
func ParseReference(content string) (Reference, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), "="))
	if s == "" {
		return Reference{}, errors.New("empty reference")
	}
	if strings.Contains(s, "#REF!") {
		return Reference{}, fmt.Errorf("broken reference %q", content)
	}
	if hasUnquotedComma(s) {
		return Reference{}, fmt.Errorf("multi-area reference %q is not supported", content)
	}
	bang := strings.LastIndex(s, "!")
	if bang <= 0 {
		return Reference{}, fmt.Errorf("reference %q has no sheet", content)
	}
	sheet, area := s[:bang], s[bang+1:]
	if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	if sheet == "" {
		return Reference{}, fmt.Errorf("reference %q has no sheet", content)
	}
	area = strings.ReplaceAll(area, "$", "")

	fromText, toText, isRange := strings.Cut(area, ":")
	if !isRange {
		toText = fromText
	}
	from, err := reference.ParseCellReference(fromText)
	if err != nil {
		return Reference{}, fmt.Errorf("parsing %q: %w", content, err)
	}
	to, err := reference.ParseCellReference(toText)
	if err != nil {
		return Reference{}, fmt.Errorf("parsing %q: %w", content, err)
	}

	ref := Reference{
		Sheet:   sheet,
		FromRow: int(from.RowIdx),
		FromCol: int(from.ColumnIdx) + 1,
		ToRow:   int(to.RowIdx),
		ToCol:   int(to.ColumnIdx) + 1,
	}
	if ref.FromRow < 1 || ref.ToRow < 1 {
		return Reference{}, fmt.Errorf("reference %q has no row", content)
	}
	if ref.FromRow > ref.ToRow {
		ref.FromRow, ref.ToRow = ref.ToRow, ref.FromRow
	}
	if ref.FromCol > ref.ToCol {
		ref.FromCol, ref.ToCol = ref.ToCol, ref.FromCol
	}
	return ref, nil
}

// hasUnquotedComma reports whether s has a comma outside a quoted sheet
// name. A doubled quote inside a name toggles twice and cancels out.
func hasUnquotedComma(s string) bool {
	quoted := false
	for _, c := range s {
		switch {
		case c == '\'':
			quoted = !quoted
		case c == ',' && !quoted:
			return true
		}
	}
	return false
}
