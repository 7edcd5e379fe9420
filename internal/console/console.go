// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package console writes progress and diagnostic lines for the pipeline
// stages, optionally coloured for a terminal.
package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Logger receives one line per call. Format strings carry no trailing newline.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Reporter adds the summary styles used by command output.
type Reporter interface {
	Logger
	Successf(format string, args ...any)
	Headingf(format string, args ...any)
}

// Plain writes uncoloured lines to w, prefixing warnings and errors.
type Plain struct {
	w io.Writer
}

// NewPlain returns a Logger that writes to w.
func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

func (p *Plain) Infof(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Plain) Warnf(format string, args ...any) {
	fmt.Fprintf(p.w, "warning: "+format+"\n", args...)
}

func (p *Plain) Errorf(format string, args ...any) {
	fmt.Fprintf(p.w, "error: "+format+"\n", args...)
}

func (p *Plain) Successf(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Plain) Headingf(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Colored writes info lines as-is, warnings in yellow and errors in red.
// Colour is dropped automatically when w is not a terminal.
type Colored struct {
	w    io.Writer
	warn *color.Color
	err  *color.Color
	ok   *color.Color
	head *color.Color
}

// NewColored returns a Logger for interactive use.
func NewColored(w io.Writer) *Colored {
	return &Colored{
		w:    w,
		warn: color.New(color.FgYellow),
		err:  color.New(color.FgRed),
		ok:   color.New(color.FgGreen),
		head: color.New(color.FgCyan),
	}
}

func (c *Colored) Infof(format string, args ...any) {
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *Colored) Warnf(format string, args ...any) {
	c.warn.Fprintf(c.w, "⚠ "+format+"\n", args...)
}

func (c *Colored) Errorf(format string, args ...any) {
	c.err.Fprintf(c.w, "✗ "+format+"\n", args...)
}

// Successf prints a green line.
func (c *Colored) Successf(format string, args ...any) {
	c.ok.Fprintf(c.w, "✓ "+format+"\n", args...)
}

// Headingf prints a cyan line.
func (c *Colored) Headingf(format string, args ...any) {
	c.head.Fprintf(c.w, format+"\n", args...)
}

var (
	_ Reporter = (*Plain)(nil)
	_ Reporter = (*Colored)(nil)
)

// Discard drops everything.
var Discard Logger = NewPlain(io.Discard)
