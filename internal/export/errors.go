// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"errors"
	"fmt"
)

// ErrWorkbookOpen is wrapped by FatalOpenError.
var ErrWorkbookOpen = errors.New("cannot open workbook")

// ErrAborted is wrapped by AbortError.
var ErrAborted = errors.New("export aborted")

// FatalOpenError means the workbook could not be opened; nothing was exported.
type FatalOpenError struct {
	Path string
	Err  error
}

func (e *FatalOpenError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrWorkbookOpen, e.Path, e.Err)
}

func (e *FatalOpenError) Unwrap() []error { return []error{ErrWorkbookOpen, e.Err} }

// RenderError means every render attempt for a region failed. The target
// document was still persisted with its earlier content.
type RenderError struct {
	Document string
	Region   string
	Attempts int
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s into %s failed after %d attempt(s): %v", e.Region, e.Document, e.Attempts, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PersistError means saving or closing a document failed.
type PersistError struct {
	Document string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Document, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// AbortError is returned when AbortOnRenderFailure stops a run.
type AbortError struct {
	Cause *RenderError
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAborted, e.Cause)
}

func (e *AbortError) Unwrap() []error { return []error{ErrAborted, e.Cause} }
