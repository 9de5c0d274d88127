// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package officeconv

import (
	"path/filepath"
	"strings"
)

// Class distinguishes how a candidate engine is driven.
type Class string

const (
	ClassHeadlessSuite    Class = "document-suite-headless"
	ClassNativeAutomation Class = "native-office-automation"
)

// Candidate is one conversion engine considered during a conversion.
type Candidate struct {
	// Name identifies the engine in logs and in the tried list.
	Name string `json:"name" yaml:"name"`

	// Path is the command name or absolute executable path.
	Path string `json:"path" yaml:"path"`

	Class Class `json:"class" yaml:"class"`
}

// genericSuiteCommands are resolved through PATH on every platform.
var genericSuiteCommands = []string{"soffice", "libreoffice"}

// windowsProgramDirs are the Program Files roots probed on Windows.
var windowsProgramDirs = []string{`C:\Program Files`, `C:\Program Files (x86)`}

// windowsSuiteDirs are install directory names under a Program Files root.
// LibreOffice installs unversioned by default; older releases and side-by-side
// installs carry a version suffix.
var windowsSuiteDirs = []string{
	"LibreOffice",
	"LibreOffice 25",
	"LibreOffice 24",
	"LibreOffice 7",
	"LibreOffice 6",
	"LibreOffice 5",
	"OpenOffice 4",
}

const macSuiteBinary = "/Applications/LibreOffice.app/Contents/MacOS/soffice"

// Candidates returns the headless document-suite engines to try on goos,
// in priority order. extra entries come first.
func Candidates(goos string, extra []string) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, Candidate{Name: path, Path: path, Class: ClassHeadlessSuite})
	}

	for _, p := range extra {
		add(p)
	}
	for _, p := range genericSuiteCommands {
		add(p)
	}
	switch goos {
	case "windows":
		for _, root := range windowsProgramDirs {
			for _, dir := range windowsSuiteDirs {
				// Join with a literal backslash: filepath would use the
				// host separator when probing from a non-Windows build.
				add(root + `\` + dir + `\program\soffice.exe`)
			}
		}
	case "darwin":
		add(macSuiteBinary)
	}
	return out
}

// SupportsNativeAutomation reports whether goos can drive installed office
// applications through COM automation.
func SupportsNativeAutomation(goos string) bool {
	return goos == "windows"
}

// AppKind is the native office application that opens a document type.
type AppKind string

const (
	AppWord       AppKind = "word"
	AppExcel      AppKind = "excel"
	AppPowerPoint AppKind = "powerpoint"
)

// AppKindFor maps a document path to the application that exports it.
func AppKindFor(path string) (AppKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".doc", ".docx":
		return AppWord, true
	case ".xls", ".xlsx":
		return AppExcel, true
	case ".ppt", ".pptx":
		return AppPowerPoint, true
	}
	return "", false
}
