// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome is the result of handling one region on one page.
type Outcome string

const (
	OutcomeContributed   Outcome = "contributed"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeRenderFailed  Outcome = "render_failed"
	OutcomePersistFailed Outcome = "persist_failed"
)

// RegionRef names a region on a page.
type RegionRef struct {
	PageIndex int    `json:"page_index" yaml:"page_index"`
	PageName  string `json:"page_name" yaml:"page_name"`
	Region    string `json:"region" yaml:"region"`
}

// Failure is a recovered error recorded against a region.
type Failure struct {
	RegionRef `yaml:",inline"`
	Document  string `json:"document" yaml:"document"`
	Attempts  int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Error     string `json:"error" yaml:"error"`
}

// Record is one step of the traversal, kept in traversal order.
type Record struct {
	Seq       int     `json:"seq" yaml:"seq"`
	PageIndex int     `json:"page_index" yaml:"page_index"`
	PageName  string  `json:"page_name" yaml:"page_name"`
	Region    string  `json:"region" yaml:"region"`
	Topic     string  `json:"topic,omitempty" yaml:"topic,omitempty"`
	Document  string  `json:"document,omitempty" yaml:"document,omitempty"`
	Outcome   Outcome `json:"outcome" yaml:"outcome"`
	Attempts  int     `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Error     string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunSummary is what an export run reports back to its caller.
type RunSummary struct {
	Workbook   string    `json:"workbook" yaml:"workbook"`
	OutputDir  string    `json:"output_dir" yaml:"output_dir"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	PagesVisited  int `json:"pages_visited" yaml:"pages_visited"`
	Contributions int `json:"contributions" yaml:"contributions"`

	NotFound        []RegionRef `json:"not_found,omitempty" yaml:"not_found,omitempty"`
	RenderFailures  []Failure   `json:"render_failures,omitempty" yaml:"render_failures,omitempty"`
	PersistFailures []Failure   `json:"persist_failures,omitempty" yaml:"persist_failures,omitempty"`
	Warnings        []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Documents lists every output document touched, in first-touch order.
	Documents []string `json:"documents,omitempty" yaml:"documents,omitempty"`

	Records []Record `json:"records,omitempty" yaml:"records,omitempty"`

	Aborted     bool   `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	AbortReason string `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
}

// HasFailures reports whether any render or persist failure was recorded.
func (s RunSummary) HasFailures() bool {
	return len(s.RenderFailures) > 0 || len(s.PersistFailures) > 0
}

// DocumentCount returns the number of distinct documents touched.
func (s RunSummary) DocumentCount() int {
	return len(s.Documents)
}

// ContributionsTo counts successful contributions to the document at path.
func (s RunSummary) ContributionsTo(path string) int {
	n := 0
	for _, r := range s.Records {
		if r.Document == path && r.Outcome == OutcomeContributed {
			n++
		}
	}
	return n
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
