// Package deps reports which external tools the workspace manager can use
// on this machine: document suites, PDF rasterizers, git and the Windows
// automation bridge.
package deps

import (
	"fmt"
	"strings"

	"github.com/pdiddy/signage-workspace/internal/officeconv"
	"github.com/pdiddy/signage-workspace/internal/procexec"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// Requirement is one external capability. It is satisfied by the first of
// Commands that resolves.
type Requirement struct {
	Name        string
	Commands    []string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name" yaml:"name"`
	Command     string `json:"command,omitempty" yaml:"command,omitempty"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Description string `json:"description" yaml:"description"`
	Optional    bool   `json:"optional" yaml:"optional"`
	Available   bool   `json:"available" yaml:"available"`
	Detail      string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Requirements lists the tools relevant to cfg on goos.
func Requirements(cfg types.Config, goos string) []Requirement {
	var suites []string
	for _, c := range officeconv.Candidates(goos, cfg.Conversion.OfficeBinaries) {
		suites = append(suites, c.Path)
	}
	rasterizers := cfg.Conversion.Rasterizers
	if len(rasterizers) == 0 {
		rasterizers = types.DefaultRasterizers
	}

	reqs := []Requirement{
		{
			Name:        "Document suite",
			Commands:    suites,
			Description: "Converts Office documents to PDF",
			Optional:    true,
		},
		{
			Name:        "PDF rasterizer",
			Commands:    rasterizers,
			Description: "Renders PDF pages to PNG slides",
		},
		{
			Name:        "Git",
			Commands:    []string{"git"},
			Description: "Synchronizes the workspace with its remote",
			Optional:    true,
		},
	}
	if officeconv.SupportsNativeAutomation(goos) {
		reqs = append(reqs, Requirement{
			Name:        "PowerShell",
			Commands:    []string{"powershell"},
			Description: "Drives installed Office applications when no suite is present",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the requirements against the OS search path.
func CheckBinaries(requirements []Requirement) []Status {
	return check(procexec.Default, requirements)
}

func check(exec procexec.Executor, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		var tried []string
		for _, cmd := range req.Commands {
			cmd = strings.TrimSpace(cmd)
			if cmd == "" {
				continue
			}
			tried = append(tried, cmd)
			if path, err := exec.LookPath(cmd); err == nil {
				status.Available = true
				status.Command = cmd
				status.Path = path
				break
			}
		}
		switch {
		case status.Available:
		case len(tried) == 0:
			status.Detail = "command not configured"
		case len(tried) == 1:
			status.Command = tried[0]
			status.Detail = fmt.Sprintf("binary %q not found", tried[0])
		default:
			status.Detail = fmt.Sprintf("none of %s found", strings.Join(tried, ", "))
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
