// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"github.com/pdiddy/sheetdoc/internal/workbook"
	"github.com/pdiddy/sheetdoc/pkg/types"
)

// WorkbookOpener opens XLSX workbooks with the given name resolution order.
func WorkbookOpener(order types.ResolutionOrder) Opener {
	return func(path string) (Source, error) {
		wb, err := workbook.Open(path, order)
		if err != nil {
			return nil, err
		}
		return wb, nil
	}
}
