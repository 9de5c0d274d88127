// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package officeconv

import (
	"fmt"
	"strings"
)

// Office export format constants.
const (
	wdExportFormatPDF = 17
	xlTypePDF         = 0
	ppSaveAsPDF       = 32
)

// psQuote renders s as a single-quoted PowerShell literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// automationScript returns a PowerShell script that opens in with the
// application for kind, exports it to out as PDF, and always closes the
// document and quits the application, even when the export throws.
func automationScript(kind AppKind, in, out string) string {
	var progID, setup, open, export, closeDoc string
	switch kind {
	case AppWord:
		progID = "Word.Application"
		setup = "$app.Visible = $false; $app.DisplayAlerts = 0"
		open = fmt.Sprintf("$app.Documents.Open(%s, $false, $true)", psQuote(in))
		export = fmt.Sprintf("$doc.ExportAsFixedFormat(%s, %d)", psQuote(out), wdExportFormatPDF)
		closeDoc = "$doc.Close($false)"
	case AppExcel:
		progID = "Excel.Application"
		setup = "$app.Visible = $false; $app.DisplayAlerts = $false"
		open = fmt.Sprintf("$app.Workbooks.Open(%s, 0, $true)", psQuote(in))
		export = fmt.Sprintf("$doc.ExportAsFixedFormat(%d, %s)", xlTypePDF, psQuote(out))
		closeDoc = "$doc.Close($false)"
	case AppPowerPoint:
		// PowerPoint refuses Visible = false; open the presentation windowless instead.
		progID = "PowerPoint.Application"
		setup = "$app.DisplayAlerts = 1"
		open = fmt.Sprintf("$app.Presentations.Open(%s, $true, $false, $false)", psQuote(in))
		export = fmt.Sprintf("$doc.SaveAs(%s, %d)", psQuote(out), ppSaveAsPDF)
		closeDoc = "$doc.Close()"
	default:
		return ""
	}

	var b strings.Builder
	b.WriteString("$ErrorActionPreference = 'Stop'\n")
	fmt.Fprintf(&b, "$app = New-Object -ComObject %s\n", progID)
	b.WriteString("try {\n")
	fmt.Fprintf(&b, "  %s\n", setup)
	fmt.Fprintf(&b, "  $doc = %s\n", open)
	b.WriteString("  try {\n")
	fmt.Fprintf(&b, "    %s\n", export)
	b.WriteString("  } finally {\n")
	fmt.Fprintf(&b, "    %s\n", closeDoc)
	b.WriteString("  }\n")
	b.WriteString("} finally {\n")
	b.WriteString("  $app.Quit()\n")
	b.WriteString("  [void][System.Runtime.InteropServices.Marshal]::ReleaseComObject($app)\n")
	b.WriteString("}\n")
	return b.String()
}
