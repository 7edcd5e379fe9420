// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/sheetdoc/internal/container"
)

// DefaultImage provides soffice and a POSIX shell.
const DefaultImage = "sheetdoc/libreoffice:latest"

// convertScript reads the document from stdin, converts it inside the
// container's scratch space and writes the PDF to stdout.
const convertScript = `set -e
cd "$(mktemp -d)"
cat > in.docx
soffice --headless --norestore --convert-to pdf --outdir . in.docx >&2
cat in.pdf`

// LibreOfficeConverter converts documents by piping them through a
// LibreOffice container.
type LibreOfficeConverter struct {
	runtime container.Runtime
	image   string
}

// NewLibreOfficeConverter checks that image exists locally in rt. An empty
// image selects DefaultImage.
func NewLibreOfficeConverter(rt container.Runtime, image string) (*LibreOfficeConverter, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("LibreOffice image not available in %s: %w", rt.Name(), err)
	}
	return &LibreOfficeConverter{runtime: rt, image: image}, nil
}

// Convert pipes the document at docxPath through the container.
func (l *LibreOfficeConverter) Convert(ctx context.Context, docxPath string, w io.Writer) error {
	f, err := os.Open(docxPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", docxPath, err)
	}
	defer f.Close()

	err = l.runtime.Run(ctx, container.RunSpec{
		Image:   l.image,
		Args:    []string{"sh", "-c", convertScript},
		Offline: true,
		Stdin:   f,
		Stdout:  w,
	})
	if err != nil {
		return fmt.Errorf("converting %s with LibreOffice: %w", docxPath, err)
	}
	return nil
}
