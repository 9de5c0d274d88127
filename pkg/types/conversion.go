// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the signage workspace:
// configuration, playlists, and the outcome of a document conversion.
package types

import (
	"time"
	"unicode/utf8"
)

// OutcomeKind categorizes the result of converting a document folder.
type OutcomeKind string

const (
	OutcomeSuccess              OutcomeKind = "success"
	OutcomeInvalidInput         OutcomeKind = "invalid_input"
	OutcomeNoDocumentFound      OutcomeKind = "no_document_found"
	OutcomeConverterUnavailable OutcomeKind = "converter_unavailable"
	OutcomeEmptyDocument        OutcomeKind = "empty_document"
	OutcomeNoPagesSelected      OutcomeKind = "no_pages_selected"
	OutcomePageRenderFailure    OutcomeKind = "page_render_failure"
	OutcomeTimeout              OutcomeKind = "timeout"
)

// MaxMessageLen bounds human-readable error text carried in outcomes.
const MaxMessageLen = 500

// ConversionOutcome is the structured result of one folder conversion.
// Failures are reported as data; Kind tells the caller which category.
type ConversionOutcome struct {
	// Kind is the outcome category.
	Kind OutcomeKind `json:"kind" yaml:"kind"`

	// Count is the number of raster images written (success only).
	Count int `json:"count" yaml:"count"`

	// Team owns the folder, when the caller supplied it.
	Team string `json:"team,omitempty" yaml:"team,omitempty"`

	// Folder is the document folder that was processed.
	Folder string `json:"folder" yaml:"folder"`

	// Range is the page-selection expression as requested.
	Range string `json:"range" yaml:"range"`

	// Document is the base name of the selected source document, if any.
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	// Engine names the converter that produced the intermediate PDF.
	// Empty when the source was already a PDF.
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty"`

	// TriedEngines lists every converter attempted, in order.
	TriedEngines []string `json:"tried_engines,omitempty" yaml:"tried_engines,omitempty"`

	// Message is a bounded, human-readable description of a failure.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Hint suggests how the user can recover from a failure.
	Hint string `json:"hint,omitempty" yaml:"hint,omitempty"`

	// StartedAt is when the conversion began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Duration is the wall time spent on the conversion.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// OK reports whether the conversion succeeded.
func (o ConversionOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Truncate shortens s to at most MaxMessageLen bytes, marking the cut. The
// cut never splits a UTF-8 sequence.
func Truncate(s string) string {
	if len(s) <= MaxMessageLen {
		return s
	}
	cut := MaxMessageLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
