// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SlideType identifies what a slide displays.
type SlideType string

const (
	SlideImage    SlideType = "image"
	SlideVideo    SlideType = "video"
	SlideWebURL   SlideType = "web_url"
	SlideDocument SlideType = "document"
)

// Slide is one entry of a team playlist.
type Slide struct {
	// ID is unique within the playlist; "slide-N" is assigned when missing.
	ID string `json:"id" yaml:"id"`

	Type SlideType `json:"type" yaml:"type"`

	// Src is a path relative to the team directory, or an http(s) URL.
	Src string `json:"src" yaml:"src"`

	// Duration is the display time in seconds.
	Duration float64 `json:"duration,omitempty" yaml:"duration,omitempty"`

	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`

	// Folder is the document folder (relative to the team directory) whose
	// rasterized pages a document slide cycles through.
	Folder string `json:"folder,omitempty" yaml:"folder,omitempty"`

	// Range is the page selection used when the folder was converted.
	Range string `json:"range,omitempty" yaml:"range,omitempty"`
}

// Playlist is the content of a team's playlist.json.
type Playlist struct {
	Slides []Slide `json:"slides" yaml:"slides"`
}
