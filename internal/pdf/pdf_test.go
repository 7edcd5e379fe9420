// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sheetdoc/internal/container"
)

// fakeConverter returns canned output or an error.
type fakeConverter struct {
	output string
	err    error
	calls  []string
}

func (f *fakeConverter) Convert(_ context.Context, docxPath string, w io.Writer) error {
	f.calls = append(f.calls, docxPath)
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, f.output)
	return err
}

func writeDocx(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("docx"), 0o644))
	return path
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "ACL.pdf"), OutputPath(filepath.Join("out", "ACL.docx")))
}

func TestConvertDocument(t *testing.T) {
	tests := []struct {
		name       string
		converter  *fakeConverter
		preCreate  bool // create a fresh PDF before running
		force      bool
		wantStatus Status
		wantLog    string
	}{
		{
			name:       "successful conversion",
			converter:  &fakeConverter{output: "%PDF-1.7 body"},
			wantStatus: StatusConverted,
			wantLog:    "converted:",
		},
		{
			name:       "skip up to date pdf",
			converter:  &fakeConverter{output: "%PDF-1.7 body"},
			preCreate:  true,
			wantStatus: StatusSkipped,
			wantLog:    "skipped:",
		},
		{
			name:       "force reconverts",
			converter:  &fakeConverter{output: "%PDF-1.7 new"},
			preCreate:  true,
			force:      true,
			wantStatus: StatusConverted,
			wantLog:    "converted:",
		},
		{
			name:       "converter failure",
			converter:  &fakeConverter{err: errors.New("container crashed")},
			wantStatus: StatusFailed,
			wantLog:    "container crashed",
		},
		{
			name:       "output is not a pdf",
			converter:  &fakeConverter{output: "Error: source file could not be loaded"},
			wantStatus: StatusFailed,
			wantLog:    "not a PDF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			docx := writeDocx(t, dir, "ACL.docx")
			if tt.preCreate {
				require.NoError(t, os.WriteFile(OutputPath(docx), []byte("%PDF-old"), 0o644))
				future := time.Now().Add(time.Hour)
				require.NoError(t, os.Chtimes(OutputPath(docx), future, future))
			}

			var log bytes.Buffer
			status := ConvertDocument(context.Background(), tt.converter, docx, Options{Force: tt.force}, &log)

			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, log.String(), tt.wantLog)
			if status == StatusConverted {
				data, err := os.ReadFile(OutputPath(docx))
				require.NoError(t, err)
				assert.Equal(t, tt.converter.output, string(data))
			}
		})
	}
}

func TestConvertDocumentMissingSource(t *testing.T) {
	var log bytes.Buffer
	c := &fakeConverter{output: "%PDF-"}
	status := ConvertDocument(context.Background(), c, filepath.Join(t.TempDir(), "none.docx"), Options{}, &log)
	assert.Equal(t, StatusFailed, status)
	assert.Empty(t, c.calls)
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeDocx(t, dir, "ACL.docx"), writeDocx(t, dir, "ACLN.docx")}

	var log bytes.Buffer
	result := ConvertBatch(context.Background(), &fakeConverter{output: "%PDF-1.7"}, paths, Options{}, &log)
	assert.Equal(t, BatchResult{Converted: 2}, result)
	assert.False(t, result.HasFailures())
	assert.Contains(t, log.String(), "Batch summary: 2 converted, 0 skipped, 0 failed (total: 2)")

	log.Reset()
	result = ConvertBatch(context.Background(), &fakeConverter{output: "%PDF-1.7"}, paths, Options{}, &log)
	assert.Equal(t, 2, result.Skipped)

	result = ConvertBatch(context.Background(), &fakeConverter{err: errors.New("boom")}, paths, Options{Force: true}, &log)
	assert.Equal(t, 2, result.Failed)
	assert.True(t, result.HasFailures())
	assert.Equal(t, 2, result.Total())
}

func TestConvertBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeDocx(t, dir, "ACL.docx")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &fakeConverter{output: "%PDF-"}
	result := ConvertBatch(ctx, c, paths, Options{}, io.Discard)
	assert.Zero(t, result.Total())
	assert.Empty(t, c.calls)
}

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	want := []string{writeDocx(t, dir, "ACL.docx"), writeDocx(t, dir, "ACLN.docx")}
	writeDocx(t, dir, "~$ACL.docx")
	writeDocx(t, dir, ".sheetdoc-123.docx")
	writeDocx(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.docx"), 0o755))

	got, err := FindDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = FindDocuments(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	hasImage bool
	spec     container.RunSpec
	stdin    string
	runErr   error
}

func (f *fakeRuntime) Name() string    { return "docker" }
func (f *fakeRuntime) Available() bool { return true }

func (f *fakeRuntime) ImageExists(image string) error {
	if !f.hasImage {
		return errors.New("no such image " + image)
	}
	return nil
}

func (f *fakeRuntime) Run(_ context.Context, spec container.RunSpec) error {
	f.spec = spec
	data, _ := io.ReadAll(spec.Stdin)
	f.stdin = string(data)
	if f.runErr != nil {
		return f.runErr
	}
	_, err := io.WriteString(spec.Stdout, "%PDF-1.7")
	return err
}

func TestNewLibreOfficeConverterRequiresImage(t *testing.T) {
	_, err := NewLibreOfficeConverter(&fakeRuntime{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultImage)
}

func TestLibreOfficeConvert(t *testing.T) {
	rt := &fakeRuntime{hasImage: true}
	c, err := NewLibreOfficeConverter(rt, "custom/lo:7")
	require.NoError(t, err)

	docx := writeDocx(t, t.TempDir(), "ACL.docx")
	var out bytes.Buffer
	require.NoError(t, c.Convert(context.Background(), docx, &out))

	assert.Equal(t, "%PDF-1.7", out.String())
	assert.Equal(t, "docx", rt.stdin)
	assert.Equal(t, "custom/lo:7", rt.spec.Image)
	assert.True(t, rt.spec.Offline)
	require.Len(t, rt.spec.Args, 3)
	assert.True(t, strings.Contains(rt.spec.Args[2], "--convert-to pdf"))

	rt.runErr = errors.New("exit status 1")
	assert.Error(t, c.Convert(context.Background(), docx, &out))
	assert.Error(t, c.Convert(context.Background(), filepath.Join(t.TempDir(), "none.docx"), &out))
}
