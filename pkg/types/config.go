// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// DocumentExt is the extension of every output document.
const DocumentExt = ".docx"

// Defaults applied by ExportJob.WithDefaults.
const (
	DefaultMaxRetries   = 4
	DefaultRetryBackoff = 300 * time.Millisecond
	DefaultSettleDelay  = 100 * time.Millisecond
	DefaultImageWidthCm = 15
)

// ResolutionOrder selects which defined-name scope is consulted first when a
// region name exists at both workbook and page scope.
type ResolutionOrder string

const (
	PageFirst     ResolutionOrder = "page-first"
	WorkbookFirst ResolutionOrder = "workbook-first"
)

// ParseResolutionOrder accepts "page-first" or "workbook-first". The empty
// string maps to PageFirst.
func ParseResolutionOrder(s string) (ResolutionOrder, error) {
	switch ResolutionOrder(s) {
	case "", PageFirst:
		return PageFirst, nil
	case WorkbookFirst:
		return WorkbookFirst, nil
	}
	return "", fmt.Errorf("unknown resolution order %q (want %s or %s)", s, PageFirst, WorkbookFirst)
}

// ExportJob holds everything one export run needs. It is treated as
// immutable once the run starts.
type ExportJob struct {
	// Workbook is the path of the source XLSX file.
	Workbook string `json:"workbook" yaml:"workbook"`

	// OutputDir receives one <topic>.docx per topic. Created if absent.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Regions lists the defined names looked up on every page, in order.
	Regions []string `json:"regions" yaml:"regions"`

	// StartPage is the 1-based index of the first page processed.
	StartPage int `json:"start_page" yaml:"start_page"`

	// ImageWidthCm is the physical width every inserted image is scaled to.
	ImageWidthCm float64 `json:"image_width_cm" yaml:"image_width_cm"`

	// SettleDelay is the pause after each contribution attempt (default 100ms).
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// MaxRetries is the total number of render attempts per region (default 4).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBackoff is the fixed wait between render attempts (default 300ms).
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`

	// RenderTimeout bounds one region's whole render-retry loop. Zero disables it.
	RenderTimeout time.Duration `json:"render_timeout" yaml:"render_timeout"`

	// ResolutionOrder picks page-scope or workbook-scope names first.
	ResolutionOrder ResolutionOrder `json:"resolution_order" yaml:"resolution_order"`

	// AbortOnRenderFailure stops the run at the first region whose render
	// attempts are exhausted instead of skipping it.
	AbortOnRenderFailure bool `json:"abort_on_render_failure" yaml:"abort_on_render_failure"`

	// OmitHeading drops the 【page】 heading normally placed before each image.
	OmitHeading bool `json:"omit_heading" yaml:"omit_heading"`
}

// ErrInvalidJob is wrapped by every ExportJob.Validate failure.
var ErrInvalidJob = errors.New("invalid export job")

// WithDefaults returns a copy of j with zero-valued tuning fields filled in.
func (j ExportJob) WithDefaults() ExportJob {
	if j.StartPage == 0 {
		j.StartPage = 1
	}
	if j.ImageWidthCm == 0 {
		j.ImageWidthCm = DefaultImageWidthCm
	}
	if j.MaxRetries == 0 {
		j.MaxRetries = DefaultMaxRetries
	}
	if j.RetryBackoff == 0 {
		j.RetryBackoff = DefaultRetryBackoff
	}
	if j.ResolutionOrder == "" {
		j.ResolutionOrder = PageFirst
	}
	return j
}

// Validate reports the first problem that makes the job unrunnable.
func (j ExportJob) Validate() error {
	switch {
	case j.Workbook == "":
		return fmt.Errorf("%w: workbook path is empty", ErrInvalidJob)
	case j.OutputDir == "":
		return fmt.Errorf("%w: output directory is empty", ErrInvalidJob)
	case len(j.Regions) == 0:
		return fmt.Errorf("%w: no region names configured", ErrInvalidJob)
	case j.StartPage < 1:
		return fmt.Errorf("%w: start page %d must be >= 1", ErrInvalidJob, j.StartPage)
	case j.ImageWidthCm <= 0:
		return fmt.Errorf("%w: image width %.2fcm must be positive", ErrInvalidJob, j.ImageWidthCm)
	case j.MaxRetries < 1:
		return fmt.Errorf("%w: max retries %d must be >= 1", ErrInvalidJob, j.MaxRetries)
	case j.SettleDelay < 0 || j.RetryBackoff < 0 || j.RenderTimeout < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidJob)
	}
	for i, name := range j.Regions {
		if name == "" {
			return fmt.Errorf("%w: region name %d is empty", ErrInvalidJob, i+1)
		}
	}
	if _, err := ParseResolutionOrder(string(j.ResolutionOrder)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return nil
}

// RenderConfig holds settings for rasterising regions.
type RenderConfig struct {
	// FontPath is an optional TTF, OTF or TTC file. The built-in Go font
	// lacks CJK glyphs.
	FontPath string `json:"font" yaml:"font"`

	// FontSizePt is the text size in points (default 11).
	FontSizePt float64 `json:"font_size" yaml:"font_size"`

	// DPI controls the point-to-pixel conversion (default 96).
	DPI float64 `json:"dpi" yaml:"dpi"`

	// MaxWidthPx downsizes wider renderings. Zero or negative disables it.
	MaxWidthPx int `json:"max_image_px" yaml:"max_image_px"`
}

// PDFConfig holds settings for the optional DOCX-to-PDF step.
type PDFConfig struct {
	// Enabled converts every touched document after an export run.
	Enabled bool `json:"pdf" yaml:"pdf"`

	// Image is the container image that provides soffice.
	Image string `json:"pdf_image" yaml:"pdf_image"`
}
